//go:build unix

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// slack absorbs process start-up and scheduling noise in timing assertions.
const slack = 1500 * time.Millisecond

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		GracePeriod: 500 * time.Millisecond,
		MaxOutput:   1 << 20,
		Logger:      zap.NewNop(),
	}
}

// script writes an executable shell script into a temp dir and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "example")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "echo hello\necho oops >&2")

	res := r.Run(context.Background(), path, filepath.Dir(path), 5*time.Second)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.OK())
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []State{StateLaunched, StateExited, StateReported}, res.States)
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "echo broken >&2\nexit 3")

	res := r.Run(context.Background(), path, filepath.Dir(path), 5*time.Second)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.OK())
	assert.Equal(t, "broken\n", res.Stderr)
}

func TestRun_WorkingDirectory(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "cat marker.txt")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here"), 0o644))

	res := r.Run(context.Background(), path, dir, 5*time.Second)

	require.Equal(t, Completed, res.Status)
	assert.Equal(t, "here", res.Stdout)
}

func TestRun_BackgroundChildHoldsPipes(t *testing.T) {
	r := newTestRunner(t)
	// The backgrounded sleep inherits stdout and outlives the script.
	path := script(t, "sleep 3 &\necho hi\nexit 0")
	timeout := 500 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), path, filepath.Dir(path), timeout)
	elapsed := time.Since(start)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hi\n", res.Stdout)
	assert.Equal(t, []State{StateLaunched, StateExited, StateReported}, res.States)
	assert.True(t, elapsed < pipeDrainDelay+slack, "elapsed %s", elapsed)
}

func TestRun_KilledBySignal(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "kill -TERM $$")

	res := r.Run(context.Background(), path, filepath.Dir(path), 5*time.Second)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, -int(syscall.SIGTERM), res.ExitCode)
	assert.Equal(t, syscall.SIGTERM.String(), res.Signal)
	assert.False(t, res.OK())
	assert.Equal(t, []State{StateLaunched, StateExited, StateReported}, res.States)
}

func TestRun_LaunchFailed_Missing(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "does-not-exist")

	res := r.Run(context.Background(), path, "", 5*time.Second)

	assert.Equal(t, LaunchFailed, res.Status)
	assert.Contains(t, res.Reason, "does-not-exist")
	assert.Equal(t, []State{StateReported}, res.States)
	assert.True(t, res.Duration < time.Second, "elapsed %s", res.Duration)
}

func TestRun_LaunchFailed_NotExecutable(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644))

	res := r.Run(context.Background(), path, "", 5*time.Second)

	assert.Equal(t, LaunchFailed, res.Status)
	assert.NotEmpty(t, res.Reason)
}

func TestRun_TimeoutGraceful(t *testing.T) {
	r := newTestRunner(t)
	r.GracePeriod = 2 * time.Second
	path := script(t, "echo started\nexec sleep 30")
	timeout := 300 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), path, filepath.Dir(path), timeout)
	elapsed := time.Since(start)

	assert.Equal(t, TimedOut, res.Status)
	assert.False(t, res.Interrupted)
	assert.Equal(t, "started\n", res.Stdout, "partial output is kept")
	assert.Equal(t, []State{StateLaunched, StateTimeoutElapsed, StateTerminatedGracefully, StateReported}, res.States)
	assert.True(t, elapsed >= timeout, "elapsed %s", elapsed)
	assert.True(t, elapsed < timeout+r.GracePeriod+slack, "elapsed %s", elapsed)
}

func TestRun_TimeoutIgnoresTerminate(t *testing.T) {
	r := newTestRunner(t)
	// An ignored signal stays ignored across exec, so sleep shrugs off SIGTERM.
	path := script(t, "trap '' TERM\nexec sleep 30")
	timeout := 300 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), path, filepath.Dir(path), timeout)
	elapsed := time.Since(start)

	assert.Equal(t, TimedOut, res.Status)
	assert.Equal(t, []State{
		StateLaunched,
		StateTimeoutElapsed,
		StateKillElapsed,
		StateForciblyKilled,
		StateReported,
	}, res.States)
	assert.True(t, elapsed >= timeout+r.GracePeriod, "elapsed %s", elapsed)
	assert.True(t, elapsed < timeout+r.GracePeriod+slack, "elapsed %s", elapsed)
}

func TestRun_Interrupted(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "exec sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	res := r.Run(ctx, path, filepath.Dir(path), 30*time.Second)
	elapsed := time.Since(start)

	assert.Equal(t, TimedOut, res.Status)
	assert.True(t, res.Interrupted)
	assert.True(t, elapsed < 200*time.Millisecond+r.GracePeriod+slack, "elapsed %s", elapsed)
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 10
	path := script(t, "printf '%0100d' 0")

	res := r.Run(context.Background(), path, filepath.Dir(path), 5*time.Second)

	require.Equal(t, Completed, res.Status)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Stdout, 10)
	assert.Equal(t, strings.Repeat("0", 10), res.Stdout)
}

func TestRun_ExactlyOneStatus(t *testing.T) {
	r := newTestRunner(t)
	paths := []string{
		script(t, "exit 0"),
		script(t, "exit 1"),
		script(t, "exec sleep 30"),
		filepath.Join(t.TempDir(), "missing"),
	}
	want := []Status{Completed, Completed, TimedOut, LaunchFailed}

	for i, p := range paths {
		res := r.Run(context.Background(), p, "", 2*time.Second)
		assert.Equal(t, want[i], res.Status, "run %d", i)
		if res.Status != LaunchFailed {
			assert.Empty(t, res.Reason, "run %d", i)
		}
		assert.Equal(t, StateReported, res.States[len(res.States)-1])
	}
}

func TestLimitWriter(t *testing.T) {
	w := &limitWriter{limit: 4}

	n, err := w.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, w.truncated())

	n, err = w.Write([]byte("cdef"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "all bytes reported consumed")
	assert.Equal(t, "abcd", w.String())
	assert.True(t, w.truncated())
}
