//go:build unix

package runner

import (
	"os"
	"syscall"
)

// terminate asks p to exit. The process may catch or ignore it.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// exitSignal reports the signal that ended the process, if any.
func exitSignal(ps *os.ProcessState) (num int, name string, ok bool) {
	ws, isWait := ps.Sys().(syscall.WaitStatus)
	if !isWait || !ws.Signaled() {
		return 0, "", false
	}
	return int(ws.Signal()), ws.Signal().String(), true
}
