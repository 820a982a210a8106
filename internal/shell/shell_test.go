package shell_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"

	"github.com/lambda-feedback/edgeprefix/internal/shell"
)

func shutdownWith(code int) fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() { _ = sd.Shutdown(fx.ExitCode(code)) }()
				return nil
			},
		})
	})
}

func TestShell_Run_CleanExit(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	err := s.Run(context.Background(), shutdownWith(0))
	assert.NoError(t, err)
}

func TestShell_Run_ExitCode(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	err := s.Run(context.Background(), shutdownWith(3))

	var exitErr *shell.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, shell.ExitCode(err))
}

func TestShell_Run_StartFails(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	err := s.Run(context.Background(), fx.Invoke(func(lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return assert.AnError },
		})
	}))

	var exitErr *shell.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestShell_Run_ProvidesContextAndLogger(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	var gotCtx bool
	err := s.Run(context.Background(),
		fx.Invoke(func(ctx context.Context) { gotCtx = ctx != nil }),
		shutdownWith(0),
	)
	require.NoError(t, err)
	assert.True(t, gotCtx)
}

func TestShell_Run_ContextCancelled(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var appCtxDoneOnStop bool
	err := s.Run(ctx, fx.Invoke(func(lc fx.Lifecycle, appCtx context.Context) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				time.AfterFunc(50*time.Millisecond, cancel)
				return nil
			},
			OnStop: func(context.Context) error {
				appCtxDoneOnStop = appCtx.Err() != nil
				return nil
			},
		})
	}))

	require.NoError(t, err)
	assert.True(t, appCtxDoneOnStop)
}

func TestShell_Run_StopFails(t *testing.T) {
	s := shell.New(zaptest.NewLogger(t))

	err := s.Run(context.Background(),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return assert.AnError },
			})
		}),
		shutdownWith(0),
	)

	assert.Equal(t, 1, shell.ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, shell.ExitCode(nil))
	assert.Equal(t, 1, shell.ExitCode(assert.AnError))
	assert.Equal(t, 2, shell.ExitCode(shell.NewExitError(2)))
	assert.Equal(t, 4, shell.ExitCode(fmt.Errorf("serve: %w", shell.NewExitError(4))))
}
