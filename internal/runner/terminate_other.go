//go:build !unix

package runner

import "os"

// terminate has no catchable form on this platform, so the graceful
// step is the forced kill.
func terminate(p *os.Process) error {
	return p.Kill()
}

// exitSignal always reports false; exit codes carry the whole story here.
func exitSignal(*os.ProcessState) (num int, name string, ok bool) {
	return 0, "", false
}
