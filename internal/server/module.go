package server

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the routes group over http.
func Module(config HttpConfig) fx.Option {
	return fx.Module("server",
		fx.Supply(config),
		fx.Provide(NewLifecycleServer),
		// nothing depends on the server, request it to register its hooks
		fx.Invoke(func(s *HttpServer, log *zap.Logger) {
			log.Debug("http server configured",
				zap.String("address", s.Address()),
				zap.Bool("h2c", config.H2c),
				zap.Duration("read_header_timeout", s.server.ReadHeaderTimeout),
			)
		}),
	)
}
