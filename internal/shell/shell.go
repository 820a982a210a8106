// Package shell runs an fx app in the foreground and translates its
// shutdown into a process exit code.
package shell

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Shell runs a set of shared modules together with the modules of the
// selected run mode.
type Shell struct {
	log    *zap.Logger
	shared []fx.Option
}

func New(log *zap.Logger, shared ...fx.Option) *Shell {
	return &Shell{
		log:    log,
		shared: shared,
	}
}

// Run starts the app built from the shared modules and mode, then
// blocks until the app asks to shut down or ctx is cancelled. A non-zero
// exit code requested by the app is returned as an *ExitError, as is a
// failure to start or stop.
func (s *Shell) Run(ctx context.Context, mode ...fx.Option) error {
	defer func() { _ = s.log.Sync() }()

	// the app context is handed to the modules and cancelled before
	// they are stopped
	appCtx, cancelApp := context.WithCancel(ctx)
	defer cancelApp()

	app := s.newApp(appCtx, mode...)

	if err := s.start(ctx, app); err != nil {
		return err
	}

	exitCode := s.wait(ctx, app)

	cancelApp()

	if err := s.stop(app); err != nil {
		return err
	}

	if exitCode != 0 {
		return NewExitError(exitCode)
	}

	return nil
}

func (s *Shell) start(ctx context.Context, app *fx.App) error {
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		s.log.Error("failed to start", zap.Error(err))
		return NewExitError(1)
	}

	return nil
}

func (s *Shell) wait(ctx context.Context, app *fx.App) int {
	select {
	case sig := <-app.Wait():
		s.log.Debug("received shutdown signal", zap.Int("exit_code", sig.ExitCode))
		return sig.ExitCode
	case <-ctx.Done():
		s.log.Debug("context cancelled, shutting down", zap.Error(ctx.Err()))
		return 0
	}
}

func (s *Shell) stop(app *fx.App) error {
	// stopping runs on a fresh context, the parent may be cancelled
	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		s.log.Error("failed to stop", zap.Error(err))
		return NewExitError(1)
	}

	return nil
}

func (s *Shell) newApp(ctx context.Context, mode ...fx.Option) *fx.App {
	return fx.New(
		// modules receive the app context and the process logger
		fx.Supply(fx.Annotate(ctx, fx.As(new(context.Context)))),
		fx.Supply(s.log),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: s.log.Named("fx")}
		}),
		fx.Options(s.shared...),
		fx.Options(mode...),
	)
}
