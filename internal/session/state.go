package session

import (
	"fmt"

	"github.com/ojin-ai/agents-desktop/backend/internal/protocol"
)

// State is the session's observable state, owned exclusively by the state
// machine. The presentation layer renders from it but never mutates it.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateError    State = "error"
	StateEnded    State = "ended"
)

// Machine computes session state from control actions and worker events.
// It is not safe for concurrent use; Manager serializes access.
type Machine struct {
	state     State
	lastError string
}

// NewMachine returns a machine in the idle state.
func NewMachine() Machine {
	return Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// LastError returns the surfaced error text, empty outside the error state.
func (m *Machine) LastError() string { return m.lastError }

// StartRequested records an accepted start (or retry) action.
func (m *Machine) StartRequested() {
	m.state = StateStarting
	m.lastError = ""
}

// RejectStart records a start that failed validation. No process was
// spawned; the message is surfaced directly.
func (m *Machine) RejectStart(msg string) {
	m.state = StateError
	m.lastError = msg
}

// StopRequested records a user hang-up. Valid from any state; the session
// returns to idle with no surfaced error.
func (m *Machine) StopRequested() {
	m.state = StateIdle
	m.lastError = ""
}

// Apply advances the machine for one worker event.
//
// Once in the error state the machine stays there until a control action:
// a non-zero ended arriving after an explicit error event must not replace
// a specific message with a generic one. First error text wins.
func (m *Machine) Apply(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypePersonaInitialized:
		if m.state == StateStarting {
			m.state = StateActive
		}

	case protocol.TypeError:
		if m.state == StateStarting || m.state == StateActive {
			m.state = StateError
			m.lastError = ev.Message
			if m.lastError == "" {
				m.lastError = "bot reported an error"
			}
		}

	case protocol.TypeEnded:
		if m.state != StateStarting && m.state != StateActive {
			return
		}
		code := ev.ExitCode()
		if code == 0 {
			m.state = StateEnded
			m.lastError = ""
			return
		}
		m.state = StateError
		if m.lastError == "" {
			m.lastError = fmt.Sprintf("bot ended unexpectedly (exit code %d)", code)
		}
	}
}
