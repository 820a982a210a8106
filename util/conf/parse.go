// Package conf loads typed configuration from layered sources.
package conf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/edgeprefix/util/cliflags"
)

type ParseOptions struct {
	// Cli is the cli.Context from urfave/cli
	Cli *cli.Context

	// CliMap is a map of cli flag names to config keys
	CliMap map[string]string

	// Defaults is a flat map of default values, keyed by
	// dot-delimited config paths
	Defaults map[string]any

	// EnvPrefix is the prefix for env vars
	EnvPrefix string

	// FileName is the name of the configuration file to load. Files
	// ending in .env are parsed as dotenv, all others as json.
	FileName string

	// Log is the logger to use
	Log *zap.Logger
}

// layer is a single config source. Later layers override earlier ones.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// Parse loads C from defaults, the config file, env vars and cli
// flags, in that order of precedence.
func Parse[C any](opt ParseOptions) (C, error) {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}

	var config C

	k := koanf.New(".")

	for _, l := range opt.layers() {
		if err := k.Load(l.provider, l.parser); err != nil {
			log.Error("error loading config layer", zap.String("layer", l.name), zap.Error(err))
			return config, fmt.Errorf("load %s: %w", l.name, err)
		}
	}

	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "conf"}); err != nil {
		log.Error("error unmarshalling config", zap.Error(err))
		return config, err
	}

	return config, nil
}

func (opt ParseOptions) layers() []layer {
	var layers []layer

	if opt.Defaults != nil {
		layers = append(layers, layer{
			name:     "defaults",
			provider: confmap.Provider(opt.Defaults, "."),
		})
	}

	if opt.FileName != "" {
		layers = append(layers, layer{
			name:     "file " + opt.FileName,
			provider: file.Provider(opt.FileName),
			parser:   fileParser(opt.FileName),
		})
	}

	layers = append(layers, layer{
		name: "env",
		provider: env.Provider(opt.EnvPrefix, ".", func(s string) string {
			return transformEnv(s, opt.EnvPrefix)
		}),
	})

	if opt.Cli != nil {
		layers = append(layers, layer{
			name:     "cli flags",
			provider: cliflags.Provider(opt.Cli, ".", opt.flagKey),
		})
	}

	return layers
}

// flagKey maps a flag name to its config key. Flags without an entry
// in CliMap map to their snake_cased name.
func (opt ParseOptions) flagKey(name string) string {
	if key, ok := opt.CliMap[name]; ok {
		return key
	}

	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

func fileParser(name string) koanf.Parser {
	if filepath.Ext(name) == ".env" {
		// dotenv keys use the same nesting convention as env vars
		return dotenv.ParserEnv("", ".", func(s string) string {
			return transformEnv(s, "")
		})
	}

	return json.Parser()
}

// transformEnv turns PREFIX_A__B into a.b.
func transformEnv(s, prefix string) string {
	s = strings.TrimPrefix(s, prefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
