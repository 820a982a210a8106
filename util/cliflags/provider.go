// Package cliflags exposes the flags of a urfave/cli context as a
// koanf provider.
package cliflags

import (
	"errors"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
)

// CLIFlags provides the flags that were set on a command, either on the
// command line or through their env vars.
type CLIFlags struct {
	values map[string]any
}

// Provider collects the set flags of the app and of the invoked
// command. key maps a flag name to its config key; when delim is not
// empty, keys are unflattened along it.
func Provider(ctx *cli.Context, delim string, key func(string) string) *CLIFlags {
	values := make(map[string]any)

	for name, flag := range visibleFlags(ctx) {
		if !ctx.IsSet(name) {
			continue
		}

		value, ok := flagValue(ctx, name, flag)
		if !ok {
			continue
		}

		if key != nil {
			name = key(name)
		}

		values[name] = value
	}

	if delim != "" {
		values = maps.Unflatten(values, delim)
	}

	return &CLIFlags{values: values}
}

// ReadBytes is not supported, flags have no serialized form.
func (p *CLIFlags) ReadBytes() ([]byte, error) {
	return nil, errors.New("cli flags provider does not support ReadBytes")
}

// Read returns the collected flag values.
func (p *CLIFlags) Read() (map[string]any, error) {
	return p.values, nil
}

// visibleFlags returns the flags of the app and of the invoked command,
// keyed by their primary name.
func visibleFlags(ctx *cli.Context) map[string]cli.Flag {
	flags := make(map[string]cli.Flag)

	for _, flag := range ctx.App.VisibleFlags() {
		flags[flag.Names()[0]] = flag
	}

	if ctx.Command != nil {
		for _, flag := range ctx.Command.VisibleFlags() {
			flags[flag.Names()[0]] = flag
		}
	}

	return flags
}

func flagValue(ctx *cli.Context, name string, flag cli.Flag) (any, bool) {
	switch flag.(type) {
	case *cli.StringFlag:
		return ctx.String(name), true
	case *cli.PathFlag:
		return ctx.Path(name), true
	case *cli.StringSliceFlag:
		return ctx.StringSlice(name), true
	case *cli.IntFlag:
		return ctx.Int(name), true
	case *cli.IntSliceFlag:
		return ctx.IntSlice(name), true
	case *cli.Int64Flag:
		return ctx.Int64(name), true
	case *cli.Int64SliceFlag:
		return ctx.Int64Slice(name), true
	case *cli.Float64Flag:
		return ctx.Float64(name), true
	case *cli.Float64SliceFlag:
		return ctx.Float64Slice(name), true
	case *cli.BoolFlag:
		return ctx.Bool(name), true
	case *cli.DurationFlag:
		return ctx.Duration(name), true
	default:
		return nil, false
	}
}
