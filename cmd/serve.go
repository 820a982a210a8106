package cmd

import (
	"github.com/lambda-feedback/edgeprefix/app"
	"github.com/lambda-feedback/edgeprefix/app/standalone"
	"github.com/urfave/cli/v2"
)

var (
	serveCmdDescription = `The serve command starts a http server that accepts edge
	events and responds with the rewritten request. This allows
	the rewriter to be exercised locally, without a CloudFront
	distribution in front of it.

	POST an event to /rewrite to rewrite it. GET /health reports
	whether the server is up.

	The command will launch the http server and blocks indefin-
	itely, processing incoming http requests.`
	serveCmd = &cli.Command{
		Name:        "serve",
		Usage:       "Start a http server and rewrite posted events.",
		Description: serveCmdDescription,
		Action:      serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to listen on. (default: localhost)",
				Category: "http",
				EnvVars:  []string{"HTTP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The port to listen on. (default: 8080)",
				Category: "http",
				EnvVars:  []string{"HTTP_PORT"},
			},
			&cli.BoolFlag{
				Name:     "h2c",
				Usage:    "Enable HTTP/2 cleartext upgrade.",
				Category: "http",
				EnvVars:  []string{"HTTP_H2C"},
			},
			&cli.DurationFlag{
				Name:     "read-header-timeout",
				Usage:    "The time allowed to read request headers. (default: 10s)",
				Category: "http",
				EnvVars:  []string{"HTTP_READ_HEADER_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:     "api-key",
				Usage:    "Require this key in the api-key header.",
				Category: "http",
				EnvVars:  []string{"AUTH__KEY"},
			},
		},
	}
)

// serveConfigKeys maps the http flags to their config keys. Defaults
// live in config.DefaultConfig, so a config file or SERVE__* env vars
// apply unless a flag is given.
var serveConfigKeys = map[string]string{
	"host":                "serve.host",
	"port":                "serve.port",
	"h2c":                 "serve.h2c",
	"read-header-timeout": "serve.read_header_timeout",
}

func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, standalone.Module(cfg.Serve))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, serveCmd)
}
