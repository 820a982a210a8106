package config

import (
	"time"

	"github.com/lambda-feedback/edgeprefix/deploy"
	"github.com/lambda-feedback/edgeprefix/edge"
	"github.com/lambda-feedback/edgeprefix/internal/server"
	"github.com/lambda-feedback/edgeprefix/util/conf"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Rewrite is the uri rewrite configuration
	Rewrite edge.RewriteConfig `conf:"rewrite"`

	// Auth is the auth configuration for the http harness
	Auth AuthConfig `conf:"auth"`

	// Serve is the http server configuration of the standalone harness
	Serve server.HttpConfig `conf:"serve"`

	// Deploy is the provisioning configuration
	Deploy deploy.Config `conf:"deploy"`
}

type AuthConfig struct {
	// Key is the api key expected in the `api-key` header. Auth is
	// disabled if empty.
	Key string `conf:"key"`
}

// DefaultConfig returns the flattened config defaults.
func DefaultConfig() map[string]any {
	return conf.Merge(
		map[string]any{
			"log_level":  "info",
			"log_format": "production",
		},
		conf.Namespace("rewrite", map[string]any{
			"prefix": edge.DefaultPrefix,
		}),
		conf.Namespace("serve", map[string]any{
			"host":                "localhost",
			"port":                8080,
			"h2c":                 false,
			"read_header_timeout": 10 * time.Second,
		}),
		conf.Namespace("deploy", deploy.DefaultConfig),
	)
}
