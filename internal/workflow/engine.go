// Package workflow composes the catalog, the binary locator and the
// executor into the check, batch, single-run and chat operations. It is
// consumed by both the CLI and the MCP server.
package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/deixis/exrun/internal/config"
	"github.com/deixis/exrun/internal/locator"
	"github.com/deixis/exrun/internal/runner"
)

// Executor runs example processes.
// Implemented by runner.Runner.
type Executor interface {
	Run(ctx context.Context, path, dir string, timeout time.Duration) *runner.Result
	Passthrough(ctx context.Context, path, dir string, stdio runner.Stdio) (*runner.PassthroughResult, error)
}

// Engine holds shared dependencies for all workflow operations.
// It runs at most one child process at a time.
type Engine struct {
	Config   *config.Config
	Runner   Executor
	Location locator.Location
	Out      io.Writer    // status lines; defaults to stdout
	Stdio    runner.Stdio // streams for chat mode; defaults to the terminal
	Logger   *zap.Logger
}

// New builds an Engine from a loaded configuration.
func New(loaded *config.LoadResult, logger *zap.Logger) *Engine {
	cfg := loaded.Config
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Config:   cfg,
		Location: locator.Resolve(cfg.BinDir(loaded.ProjectRoot)),
		Runner: &runner.Runner{
			GracePeriod: cfg.GracePeriod(),
			MaxOutput:   cfg.MaxOutputBytes(),
			Logger:      logger,
		},
		Out:    os.Stdout,
		Stdio:  runner.TerminalStdio(),
		Logger: logger,
	}
}

func (e *Engine) out() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e *Engine) printf(format string, args ...any) {
	fmt.Fprintf(e.out(), format, args...)
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
