package conf

import (
	"context"
	"errors"
	"fmt"
)

// configKey gives every config type its own context slot.
type configKey[C any] struct{}

// ErrConfigNotFound is returned when a context carries no config of
// the requested type.
var ErrConfigNotFound = errors.New("config not found in context")

// WithConfig returns a copy of ctx that carries cfg.
func WithConfig[C any](ctx context.Context, cfg C) context.Context {
	return context.WithValue(ctx, configKey[C]{}, cfg)
}

// FromContext returns the config of type C carried by ctx.
func FromContext[C any](ctx context.Context) (C, error) {
	cfg, ok := ctx.Value(configKey[C]{}).(C)
	if !ok {
		return cfg, fmt.Errorf("%w: %T", ErrConfigNotFound, cfg)
	}

	return cfg, nil
}
