// Package logging hands the process logger from the cli layer to the
// fx graph.
package logging

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type loggerKey struct{}

// ErrNoLogger is returned when a context does not carry a logger.
var ErrNoLogger = errors.New("no logger in context")

// WithLogger returns a copy of ctx that carries log.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger carried by ctx.
func FromContext(ctx context.Context) (*zap.Logger, error) {
	log, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok || log == nil {
		return nil, ErrNoLogger
	}

	return log, nil
}

// FromContextOrNop returns the logger carried by ctx, or a no-op logger
// if there is none.
func FromContextOrNop(ctx context.Context) *zap.Logger {
	if log, err := FromContext(ctx); err == nil {
		return log
	}

	return zap.NewNop()
}

// Scope decorates the logger of the enclosing fx module. Entries are
// named after the module and tagged with the run mode.
func Scope(mode string) fx.Option {
	return fx.Decorate(func(log *zap.Logger) *zap.Logger {
		return log.Named(mode).With(zap.String("mode", mode))
	})
}
