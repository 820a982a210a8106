package app

import (
	"github.com/lambda-feedback/edgeprefix/config"
	"github.com/lambda-feedback/edgeprefix/edge"
	"github.com/lambda-feedback/edgeprefix/internal/shell"
	"github.com/lambda-feedback/edgeprefix/util/conf"
	"github.com/lambda-feedback/edgeprefix/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.FromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide rewriter
		edge.Module(config.Rewrite),
	)

	return shell.New(log, sharedModule), nil
}
