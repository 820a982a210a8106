package cmd

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/urfave/cli/v2"
)

const sentryFlushTimeout = 2 * time.Second

func newSentryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "sentry-dsn",
			Usage:    "report errors to this sentry dsn. Reporting is disabled if empty.",
			Category: "sentry",
			EnvVars:  []string{"SENTRY_DSN"},
		},
		&cli.StringFlag{
			Name:     "sentry-environment",
			Usage:    "the environment reported to sentry.",
			Value:    "local",
			Category: "sentry",
			EnvVars:  []string{"SENTRY_ENVIRONMENT"},
		},
		&cli.BoolFlag{
			Name:     "sentry-debug",
			Usage:    "print sentry sdk debug output.",
			Category: "sentry",
			EnvVars:  []string{"SENTRY_DEBUG"},
		},
	}
}

// sentryOptions builds the client options from the sentry flags. ok is
// false if no dsn is configured.
func sentryOptions(ctx *cli.Context, release string) (opts sentry.ClientOptions, ok bool) {
	dsn := ctx.String("sentry-dsn")
	if dsn == "" {
		return opts, false
	}

	return sentry.ClientOptions{
		Dsn:              dsn,
		Debug:            ctx.Bool("sentry-debug"),
		TracesSampleRate: 1.0,
		EnableTracing:    true,
		Environment:      ctx.String("sentry-environment"),
		Release:          release,
	}, true
}

func setupSentry(ctx *cli.Context, release string) error {
	opts, ok := sentryOptions(ctx, release)
	if !ok {
		return nil
	}

	return sentry.Init(opts)
}

// flushSentry waits for buffered events to be delivered. It is a no-op
// if sentry was never initialized.
func flushSentry() {
	sentry.Flush(sentryFlushTimeout)
}

func init() {
	rootApp.Flags = append(rootApp.Flags, newSentryFlags()...)
}
