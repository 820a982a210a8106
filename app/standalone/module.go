package standalone

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/edgeprefix/handler"
	"github.com/lambda-feedback/edgeprefix/internal/server"
	"github.com/lambda-feedback/edgeprefix/util/logging"
)

// Module serves the rewrite routes over http.
func Module(config server.HttpConfig) fx.Option {
	return fx.Module(
		"serve",
		// scope logger to the run mode
		logging.Scope("serve"),
		// provide rewrite and health routes
		handler.Module(),
		// provide server
		server.Module(config),
	)
}
