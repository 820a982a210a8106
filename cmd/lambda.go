package cmd

import (
	"github.com/lambda-feedback/edgeprefix/app"
	"github.com/lambda-feedback/edgeprefix/app/lambda"
	"github.com/lambda-feedback/edgeprefix/util/conf"
	"github.com/lambda-feedback/edgeprefix/util/logging"
	"github.com/urfave/cli/v2"
)

var (
	lambdaCmdDescription = `The lambda command starts the rewriter as an AWS Lambda
runtime interface client. By default it handles CloudFront
edge events and returns the rewritten request to CloudFront.

With an API Gateway or ALB event source, the http routes of
the serve command are exposed through the Lambda proxy
integration instead.

The command will start the AWS runtime interface client and
blocks indefinitely, processing incoming AWS Lambda events.`
	lambdaCmd = &cli.Command{
		Name:        "lambda",
		Usage:       "Run the AWS Lambda handler",
		Description: lambdaCmdDescription,
		Action:      lambdaAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "lambda-event-source",
				Usage:    "the source of the AWS Lambda event. Options: CLOUDFRONT, API_GW_V1, API_GW_V2, ALB.",
				Value:    lambda.EventSourceCloudFront.String(),
				EnvVars:  []string{"LAMBDA_EVENT_SOURCE"},
				Category: "lambda",
			},
			&cli.StringFlag{
				Name:     "api-key",
				Usage:    "require this key in the api-key header of proxied http requests.",
				EnvVars:  []string{"AUTH__KEY"},
				Category: "lambda",
			},
		},
	}
)

func lambdaAction(ctx *cli.Context) error {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return err
	}

	if _, err := loadConfig(ctx); err != nil {
		return err
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.Parse[lambda.Config](conf.ParseOptions{
		Defaults: map[string]any{
			"lambda_event_source": lambda.EventSourceCloudFront.String(),
		},
		Log: log,
		Cli: ctx,
	})
	if err != nil {
		return err
	}

	log.Info("starting AWS Lambda handler")

	return app.Run(ctx.Context, lambda.Module(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, lambdaCmd)
}
