package session

import (
	"fmt"
	"sync"

	"github.com/ojin-ai/agents-desktop/backend/internal/bot"
	"github.com/ojin-ai/agents-desktop/backend/internal/events"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/protocol"
	"go.uber.org/zap"
)

// Supervisor is the slice of the process supervisor the manager drives.
type Supervisor interface {
	Start(p bot.Params) error
	Stop() error
}

// Manager bridges control actions and worker events into session state.
// It sits between the supervisor and the emitter: every event first
// advances the state machine, then flows to the presentation subscriber,
// so a state change is always observable before the events that follow it.
type Manager struct {
	log     *logging.Logger
	sup     Supervisor
	emitter *events.Emitter

	mu      sync.Mutex
	machine Machine
	desc    *Descriptor // retained for retry
}

// NewManager creates a session manager. Bind it to the supervisor's event
// stream with bot.Supervisor.SetSink.
func NewManager(sup Supervisor, emitter *events.Emitter, log *logging.Logger) *Manager {
	return &Manager{
		log:     log.Component("session"),
		sup:     sup,
		emitter: emitter,
		machine: NewMachine(),
	}
}

// Start validates the descriptor and asks the supervisor to spawn a worker.
// Validation failures return synchronously and never spawn a process; any
// later failure arrives asynchronously through the event stream.
func (m *Manager) Start(d Descriptor) error {
	if err := d.Validate(); err != nil {
		m.log.Warn("rejecting session start", zap.Error(err))
		m.mu.Lock()
		m.machine.RejectStart(err.Error())
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.desc = &d
	m.machine.StartRequested()
	m.mu.Unlock()

	m.log.Info("starting session",
		zap.String("persona_id", d.PersonaID),
		zap.String("environment", string(d.Environment)),
	)
	return m.sup.Start(d.botParams())
}

// Stop tears down the worker and resets the session to idle. Idempotent.
func (m *Manager) Stop() error {
	if err := m.sup.Stop(); err != nil {
		return err
	}
	m.mu.Lock()
	m.machine.StopRequested()
	m.desc = nil
	m.mu.Unlock()
	m.log.Info("session stopped")
	return nil
}

// Retry re-issues Start with the descriptor of the failed session. Only
// valid from the error state.
func (m *Manager) Retry() error {
	m.mu.Lock()
	if m.machine.State() != StateError || m.desc == nil {
		m.mu.Unlock()
		return fmt.Errorf("no failed session to retry")
	}
	d := *m.desc
	m.mu.Unlock()

	m.log.Info("retrying session", zap.String("persona_id", d.PersonaID))
	return m.Start(d)
}

// Snapshot returns the current state and surfaced error text.
func (m *Manager) Snapshot() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.State(), m.machine.LastError()
}

// Emit consumes one worker event: state transition first, then delivery to
// the presentation subscriber. Implements bot.Sink.
//
// The lock is held across Publish so the transition and the delivery are
// atomic: concurrent emitters cannot publish in a different order than they
// advanced the machine. Publish never blocks, so this is safe.
func (m *Manager) Emit(ev protocol.Event) {
	m.mu.Lock()
	before := m.machine.State()
	m.machine.Apply(ev)
	after := m.machine.State()
	m.emitter.Publish(ev)
	m.mu.Unlock()

	if before != after {
		m.log.Info("session state changed",
			zap.String("from", string(before)),
			zap.String("to", string(after)),
			zap.String("event", string(ev.Type)),
		)
	}
}
