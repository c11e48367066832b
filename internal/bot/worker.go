package bot

import (
	"strings"
	"sync"
	"time"
)

// WorkerState is the tagged lifecycle state of a worker handle. Liveness is
// decided by this tag, never inferred from pipe or exit-code nullability.
type WorkerState int

const (
	StateSpawning WorkerState = iota
	StateRunning
	StateExited
)

// String returns the lowercase state name.
func (s WorkerState) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	}
	return "unknown"
}

// stderrTailLines bounds the retained diagnostic tail per worker.
const stderrTailLines = 20

// Worker is the handle on one spawned bot process. At most one Worker is
// alive per host process; it is created and destroyed exclusively by the
// Supervisor.
type Worker struct {
	ID        string
	Params    Params
	StartedAt time.Time

	proc Process

	mu          sync.Mutex
	state       WorkerState
	exitCode    int
	userStopped bool
	endedSeen   bool
	stderrTail  []string

	// done closes when the process exit has been observed.
	done chan struct{}

	// stdoutDone and stderrDone close when the respective pipe reader has
	// consumed its stream to EOF.
	stdoutDone chan struct{}
	stderrDone chan struct{}
}

// Params identifies the session a worker runs.
type Params struct {
	PersonaID    string
	HumeConfigID string
	Environment  string
}

func newWorker(id string, p Params) *Worker {
	return &Worker{
		ID:         id,
		Params:     p,
		StartedAt:  time.Now(),
		state:      StateSpawning,
		done:       make(chan struct{}),
		stdoutDone: make(chan struct{}),
		stderrDone: make(chan struct{}),
	}
}

// Alive reports whether the process has not yet been observed to exit.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != StateExited
}

// State returns the current tagged state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done returns a channel closed once the process exit is observed.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) setRunning(proc Process) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.proc = proc
	w.state = StateRunning
}

// markExited records the exit code and releases Done waiters.
func (w *Worker) markExited(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateExited {
		return
	}
	w.state = StateExited
	w.exitCode = code
	close(w.done)
}

// ExitCode returns the recorded exit code. Only meaningful once exited.
func (w *Worker) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}

// markUserStopped flags that the user asked for this worker to die, so its
// exit must be absorbed rather than surfaced as a failure.
func (w *Worker) markUserStopped() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.userStopped = true
}

func (w *Worker) wasUserStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.userStopped
}

// noteEnded records that the worker emitted its own ended event, so the
// supervisor must not synthesize a duplicate on exit.
func (w *Worker) noteEnded() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.endedSeen = true
}

func (w *Worker) sawEnded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.endedSeen
}

// appendStderr retains a bounded tail of diagnostic lines for exit reports.
func (w *Worker) appendStderr(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stderrTail = append(w.stderrTail, line)
	if len(w.stderrTail) > stderrTailLines {
		w.stderrTail = w.stderrTail[len(w.stderrTail)-stderrTailLines:]
	}
}

// StderrTail returns the retained diagnostic tail as one string.
func (w *Worker) StderrTail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.stderrTail, "\n")
}
