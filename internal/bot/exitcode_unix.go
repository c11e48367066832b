//go:build !windows

package bot

import (
	"os/exec"
	"syscall"
)

// waitExitCode extracts the exit code from a non-nil ExitError. Deaths by
// signal are reported shell-style as 128+signal (SIGKILL → 137) so the
// session layer sees the conventional codes.
func waitExitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}
