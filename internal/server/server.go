package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const defaultReadHeaderTimeout = 10 * time.Second

type HttpServerParams struct {
	fx.In

	Config HttpConfig

	Routes []*Route `group:"routes"`
	Logger *zap.Logger
}

type HttpServer struct {
	address string
	server  *http.Server
	log     *zap.Logger
}

// NewMux registers the given routes on a new mux.
func NewMux(routes []*Route) *http.ServeMux {
	mux := http.NewServeMux()

	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)
	}

	return mux
}

func NewHttpServer(params HttpServerParams) *HttpServer {
	mux := NewMux(params.Routes)

	var handler http.Handler = mux
	if params.Config.H2c {
		handler = h2c.NewHandler(mux, &http2.Server{})
	}

	readHeaderTimeout := params.Config.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}

	address := params.Config.Address()

	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return &HttpServer{
		address: address,
		server:  server,
		log:     params.Logger,
	}
}

func NewLifecycleServer(params HttpServerParams, lc fx.Lifecycle, sd fx.Shutdowner) *HttpServer {
	server := NewHttpServer(params)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := server.Listen(ctx)
			if err != nil {
				return err
			}
			go func() {
				if err := server.Serve(listener); err != nil {
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
	return server
}

// Address returns the configured listen address.
func (s *HttpServer) Address() string {
	return s.address
}

// Handler returns the root handler of the server.
func (s *HttpServer) Handler() http.Handler {
	return s.server.Handler
}

// Listen opens the listener of the server.
func (s *HttpServer) Listen(ctx context.Context) (net.Listener, error) {
	cfg := net.ListenConfig{}

	listener, err := cfg.Listen(ctx, "tcp", s.address)
	if err != nil {
		s.log.Error("failed to listen", zap.Error(err), zap.String("address", s.address))
		return nil, err
	}

	s.log.Info("listening", zap.String("address", listener.Addr().String()))

	return listener, nil
}

// Serve serves http requests on listener until the server is shut down.
func (s *HttpServer) Serve(listener net.Listener) error {
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("failed to serve", zap.Error(err))
		return err
	}

	return nil
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error("failed to shutdown", zap.Error(err))
		return err
	}

	return nil
}
