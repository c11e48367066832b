package bot

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// LaunchSpec describes one worker invocation.
type LaunchSpec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // full environment, not appended to os.Environ
}

// Process is the supervisor's handle on a spawned worker. Implementations
// own the stdout/stderr pipes; Wait blocks until exit and reports the exit
// code. This seam exists so the supervisor can be exercised without
// spawning real processes.
type Process interface {
	PID() int
	Stdout() io.Reader
	Stderr() io.Reader
	Signal(sig os.Signal) error
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	// A negative code means the code could not be determined.
	Wait() (int, error)
}

// Launcher spawns worker processes.
type Launcher interface {
	Launch(spec LaunchSpec) (Process, error)
}

// execLauncher is the production Launcher backed by os/exec.
type execLauncher struct{}

// NewExecLauncher returns the os/exec-backed launcher.
func NewExecLauncher() Launcher {
	return execLauncher{}
}

func (execLauncher) Launch(spec LaunchSpec) (Process, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	// Stdout carries the typed NDJSON protocol and stderr carries
	// diagnostics; they must stay separate pipes.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// execProcess wraps a started exec.Cmd.
type execProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *execProcess) PID() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return waitExitCode(exitErr), nil
	}
	return -1, err
}
