package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lambda-feedback/edgeprefix/config"
	"github.com/lambda-feedback/edgeprefix/internal/shell"
	"github.com/lambda-feedback/edgeprefix/util/conf"
	"github.com/lambda-feedback/edgeprefix/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "edgeprefix"
	appUsage = `Rewrites CloudFront edge requests by prepending a fixed
path segment to the request uri.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Args:            true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "load configuration from a json or .env file.",
				EnvVars: []string{"CONFIG_FILE"},
			},
			// rewrite flags
			&cli.StringFlag{
				Name:     "prefix",
				Usage:    "the path segment prepended to the request uri.",
				Aliases:  []string{"p"},
				Category: "rewrite",
				EnvVars:  []string{"REWRITE__PREFIX"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.WithLogger(ctx.Context, log)

			// report errors to sentry, if configured
			if err := setupSentry(ctx, appRelease); err != nil {
				log.Error("sentry init failed", zap.Error(err))
				return err
			}

			// parse config using defaults, file and env
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Defaults: config.DefaultConfig(),
				FileName: ctx.Path("config"),
				Log:      log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.WithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			_ = logging.FromContextOrNop(ctx.Context).Sync()
			return nil
		},
	}
)

// cliConfigKeys maps flag names to config keys where the
// names do not line up.
var cliConfigKeys = map[string]string{
	"prefix":  "rewrite.prefix",
	"api-key": "auth.key",
}

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

// appRelease is the release reported to sentry.
var appRelease string

type ExecuteParams struct {
	Version  string
	Compiled time.Time
	Release  string
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled
	appRelease = params.Release

	if code := run(context.Background(), os.Args); code != 0 {
		os.Exit(code)
	}
}

// run runs the app and returns the process exit code. Sentry is
// flushed before returning, os.Exit skips deferred calls.
func run(ctx context.Context, args []string) int {
	defer flushSentry()

	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return 0
	}

	// errors from the shell carry the exit code requested by the app
	// and have been logged already
	var exitErr *shell.ExitError
	if !errors.As(err, &exitErr) {
		sentry.CaptureException(err)
		fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())
	}

	return shell.ExitCode(err)
}

// loadConfig parses the config again, this time including the flags
// of the invoked command, and replaces the config in the cli context.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return config.Config{}, err
	}

	cliMap := make(map[string]string)
	for _, keys := range []map[string]string{cliConfigKeys, serveConfigKeys, deployConfigKeys} {
		for k, v := range keys {
			cliMap[k] = v
		}
	}

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Cli:      ctx,
		CliMap:   cliMap,
		Defaults: config.DefaultConfig(),
		FileName: ctx.Path("config"),
		Log:      log,
	})
	if err != nil {
		return cfg, err
	}

	ctx.Context = conf.WithConfig(ctx.Context, cfg)

	return cfg, nil
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
