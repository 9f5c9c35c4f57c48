package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Stdio is the set of streams handed to an interactive process.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// TerminalStdio connects the child to the invoking terminal.
func TerminalStdio() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// PassthroughResult reports how an interactive process ended.
type PassthroughResult struct {
	PID      int
	ExitCode int  // valid when Exited
	Exited   bool // the process was observed to exit
	Stopped  bool // the operator interrupted the wait
}

// Passthrough runs path with its streams wired to stdio and no time
// budget. It blocks until the process exits or ctx is cancelled.
//
// On cancellation the interrupt is forwarded to the child explicitly and
// Passthrough waits up to GracePeriod for it to exit. It never kills the
// child; a process still running after the grace period is left alone
// and reported with Exited == false.
func (r *Runner) Passthrough(ctx context.Context, path, dir string, stdio Stdio) (*PassthroughResult, error) {
	log := r.logger().With(zap.String("path", path))

	cmd := exec.Command(path)
	cmd.Dir = dir
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}
	res := &PassthroughResult{PID: cmd.Process.Pid}
	log = log.With(zap.Int("pid", res.PID))
	log.Debug("launched interactive")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		res.Exited = true
		res.ExitCode, _ = exitCode(cmd, err)
		return res, nil
	case <-ctx.Done():
	}

	res.Stopped = true
	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("forwarding interrupt failed", zap.Error(err))
	}

	grace := time.NewTimer(r.gracePeriod())
	defer grace.Stop()

	select {
	case err := <-done:
		res.Exited = true
		res.ExitCode, _ = exitCode(cmd, err)
		log.Debug("stopped by operator", zap.Int("exit_code", res.ExitCode))
	case <-grace.C:
		log.Warn("process still running after interrupt", zap.Duration("grace_period", r.gracePeriod()))
	}
	return res, nil
}
