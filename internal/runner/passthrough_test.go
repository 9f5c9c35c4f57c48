//go:build unix

package runner

import (
	"bytes"
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough_Exits(t *testing.T) {
	r := newTestRunner(t)
	path := script(t, "echo hi\necho err >&2\nexit 4")

	var out, errOut bytes.Buffer
	res, err := r.Passthrough(context.Background(), path, filepath.Dir(path), Stdio{Out: &out, Err: &errOut})
	require.NoError(t, err)

	assert.True(t, res.Exited)
	assert.False(t, res.Stopped)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "hi\n", out.String())
	assert.Equal(t, "err\n", errOut.String())
}

func TestPassthrough_ForwardsInterrupt(t *testing.T) {
	r := newTestRunner(t)
	r.GracePeriod = 3 * time.Second
	path := script(t, "trap 'echo bye; exit 0' INT\nwhile :; do sleep 0.1; done")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	var out bytes.Buffer
	res, err := r.Passthrough(ctx, path, filepath.Dir(path), Stdio{Out: &out})
	require.NoError(t, err)

	assert.True(t, res.Stopped)
	assert.True(t, res.Exited)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "bye\n", out.String())
}

func TestPassthrough_DoesNotKill(t *testing.T) {
	r := newTestRunner(t)
	r.GracePeriod = 200 * time.Millisecond
	path := script(t, "trap '' INT\nexec sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	res, err := r.Passthrough(ctx, path, filepath.Dir(path), Stdio{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = syscall.Kill(res.PID, syscall.SIGKILL) })

	assert.True(t, res.Stopped)
	assert.False(t, res.Exited)
	assert.NoError(t, syscall.Kill(res.PID, 0), "process should still be alive")
}

func TestPassthrough_LaunchError(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Passthrough(context.Background(), filepath.Join(t.TempDir(), "missing"), "", Stdio{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
