package lambda

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/edgeprefix/handler"
	"github.com/lambda-feedback/edgeprefix/util/logging"
)

func Module(config Config) fx.Option {
	return fx.Module(
		"lambda",
		// provide lambda config
		fx.Supply(config),
		// scope logger to the run mode
		logging.Scope("lambda"),
		// provide http routes for proxied event sources
		handler.Module(),
		// provide lambda handler
		fx.Provide(NewLifecycleHandler),
		// invoke lambda handler
		fx.Invoke(func(*LambdaHandler) {}),
	)
}
