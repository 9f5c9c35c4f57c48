// Package runner launches example executables under a time budget,
// escalating from a graceful termination to a forced kill when the
// budget runs out.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults used when the corresponding Runner field is zero.
const (
	DefaultGracePeriod = 5 * time.Second
	DefaultMaxOutput   = 1 << 20 // 1 MB
)

// pipeDrainDelay bounds how long output is still read after the process
// has been reaped, e.g. when an orphaned grandchild holds the pipes.
const pipeDrainDelay = time.Second

// Runner executes one process at a time and never blocks longer than
// timeout + GracePeriod (plus pipe draining).
type Runner struct {
	GracePeriod time.Duration // wait between terminate and kill
	MaxOutput   int           // bytes captured per stream
	Logger      *zap.Logger
}

// Run launches path with working directory dir and waits up to timeout
// for it to exit. It always returns a Result; launch failures and
// timeouts are reported through Result.Status, not as errors.
//
// Cancelling ctx starts the same terminate/kill escalation as a timeout
// and marks the result Interrupted.
func (r *Runner) Run(ctx context.Context, path, dir string, timeout time.Duration) *Result {
	res := &Result{RunID: uuid.New().String(), Path: path}
	log := r.logger().With(zap.String("run_id", res.RunID), zap.String("path", path))

	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &limitWriter{limit: limit}
	stderr := &limitWriter{limit: limit}

	cmd := exec.Command(path)
	cmd.Dir = dir
	out, err := newCapture(cmd, stdout, stderr)
	if err != nil {
		log.Debug("creating pipes failed", zap.Error(err))
		res.Status = LaunchFailed
		res.Reason = err.Error()
		res.enter(StateReported)
		return res
	}
	defer out.close()

	if err := cmd.Start(); err != nil {
		log.Debug("launch failed", zap.Error(err))
		res.Status = LaunchFailed
		res.Reason = err.Error()
		res.enter(StateReported)
		return res
	}
	out.start()
	res.enter(StateLaunched)
	log = log.With(zap.Int("pid", cmd.Process.Pid))
	log.Debug("launched", zap.Duration("timeout", timeout))

	// The child writes straight into *os.File pipe ends, so Wait returns
	// when the process is reaped and does not wait on readers.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var expired bool
	select {
	case err := <-done:
		r.exited(cmd, err, res, log)
	case <-timer.C:
		expired = true
	case <-ctx.Done():
		expired = true
		res.Interrupted = true
		log.Debug("interrupted", zap.Error(ctx.Err()))
	}

	if expired {
		// Exit and expiry can race; a process already reaped is Completed.
		select {
		case err := <-done:
			res.Interrupted = false
			r.exited(cmd, err, res, log)
		default:
			res.enter(StateTimeoutElapsed)
			log.Debug("timeout elapsed")
			r.escalate(cmd.Process, done, res, log)
			res.Status = TimedOut
		}
	}

	if !out.drain(pipeDrainDelay) {
		log.Debug("output still open after exit; stopped reading", zap.Duration("delay", pipeDrainDelay))
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.truncated() || stderr.truncated()
	res.enter(StateReported)
	return res
}

func (r *Runner) exited(cmd *exec.Cmd, err error, res *Result, log *zap.Logger) {
	res.enter(StateExited)
	res.Status = Completed
	res.ExitCode, res.Signal = exitCode(cmd, err)
	log.Debug("exited", zap.Int("exit_code", res.ExitCode), zap.String("signal", res.Signal))
}

// escalate sends a graceful termination, waits GracePeriod, then kills.
// It returns once Wait has returned on done.
func (r *Runner) escalate(p *os.Process, done <-chan error, res *Result, log *zap.Logger) {
	if err := terminate(p); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("terminate failed", zap.Error(err))
	}

	grace := time.NewTimer(r.gracePeriod())
	defer grace.Stop()

	select {
	case <-done:
		res.enter(StateTerminatedGracefully)
		log.Debug("terminated gracefully")
		return
	case <-grace.C:
		res.enter(StateKillElapsed)
		log.Debug("kill elapsed", zap.Duration("grace_period", r.gracePeriod()))
	}

	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("kill failed", zap.Error(err))
	}
	// A forced kill cannot be refused; this wait ends once the OS reaps it.
	<-done
	res.enter(StateForciblyKilled)
	log.Debug("forcibly killed")
}

func (r *Runner) gracePeriod() time.Duration {
	if r.GracePeriod > 0 {
		return r.GracePeriod
	}
	return DefaultGracePeriod
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// exitCode extracts the exit code from the result of Wait. A process
// ended by a signal reports the negated signal number and its name.
func exitCode(cmd *exec.Cmd, err error) (int, string) {
	if cmd.ProcessState != nil {
		if num, name, ok := exitSignal(cmd.ProcessState); ok {
			return -num, name
		}
		return cmd.ProcessState.ExitCode(), ""
	}
	if err == nil {
		return 0, ""
	}
	return -1, ""
}

// capture copies a child's stdout and stderr into limitWriters through
// pipes owned by the parent.
type capture struct {
	readers []*os.File
	writers []*os.File
	sinks   []io.Writer
	done    chan struct{}
}

func newCapture(cmd *exec.Cmd, stdout, stderr io.Writer) (*capture, error) {
	c := &capture{sinks: []io.Writer{stdout, stderr}, done: make(chan struct{})}
	for range c.sinks {
		pr, pw, err := os.Pipe()
		if err != nil {
			c.close()
			return nil, fmt.Errorf("creating output pipe: %w", err)
		}
		c.readers = append(c.readers, pr)
		c.writers = append(c.writers, pw)
	}
	cmd.Stdout = c.writers[0]
	cmd.Stderr = c.writers[1]
	return c, nil
}

// start releases the parent's write ends, which the child now holds, and
// begins copying.
func (c *capture) start() {
	for _, w := range c.writers {
		_ = w.Close()
	}
	c.writers = nil

	var wg sync.WaitGroup
	for i, r := range c.readers {
		wg.Add(1)
		go func(dst io.Writer, src *os.File) {
			defer wg.Done()
			_, _ = io.Copy(dst, src)
		}(c.sinks[i], r)
	}
	go func() {
		wg.Wait()
		close(c.done)
	}()
}

// drain waits up to delay for every writer to close the pipes. It reports
// false when it had to stop reading early.
func (c *capture) drain(delay time.Duration) bool {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-c.done:
		return true
	case <-t.C:
	}
	for _, r := range c.readers {
		_ = r.Close()
	}
	<-c.done
	return false
}

func (c *capture) close() {
	for _, f := range append(c.readers, c.writers...) {
		_ = f.Close()
	}
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.dropped = w.dropped || len(p) > 0
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *limitWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *limitWriter) truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}
