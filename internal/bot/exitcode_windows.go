//go:build windows

package bot

import "os/exec"

// waitExitCode extracts the exit code from a non-nil ExitError.
func waitExitCode(err *exec.ExitError) int {
	return err.ExitCode()
}
