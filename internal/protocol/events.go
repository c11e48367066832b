// Package protocol defines the typed event protocol spoken by the bot worker
// over its stdout: newline-delimited JSON, one event per line.
package protocol

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Type identifies an event kind. The set is closed; lines carrying any other
// value are demoted to diagnostics.
type Type string

const (
	TypeReady              Type = "ready"
	TypeStarted            Type = "started"
	TypePersonaInitialized Type = "persona_initialized"
	TypeVideoFrame         Type = "video_frame"
	TypeTranscript         Type = "transcript"
	TypeError              Type = "error"
	TypeEnded              Type = "ended"
)

// Known reports whether t belongs to the closed event set.
func (t Type) Known() bool {
	switch t {
	case TypeReady, TypeStarted, TypePersonaInitialized,
		TypeVideoFrame, TypeTranscript, TypeError, TypeEnded:
		return true
	}
	return false
}

// Event is one decoded unit of worker output. Events are immutable and
// ordered by arrival; they are never retried or deduplicated upstream.
//
// Kind-specific fields:
//   - video_frame: Data (base64 image bytes as a JSON string), Width,
//     Height, Format
//   - transcript: Data (object with role/content, see Transcript)
//   - error: Message
//   - ended: Code (absent on worker-emitted ended; set on the exit event
//     the supervisor synthesizes)
//   - ready: PersonaID, HumeConfigID echoes
type Event struct {
	Type         Type            `json:"type"`
	PersonaID    string          `json:"persona_id,omitempty"`
	HumeConfigID string          `json:"hume_config_id,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Width        int             `json:"width,omitempty"`
	Height       int             `json:"height,omitempty"`
	Format       string          `json:"format,omitempty"`
	Message      string          `json:"message,omitempty"`
	Code         *int            `json:"code,omitempty"`
}

// TranscriptEntry is the payload of a transcript event.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript decodes the Data payload of a transcript event.
func (e Event) Transcript() (TranscriptEntry, error) {
	var entry TranscriptEntry
	err := sonic.Unmarshal(e.Data, &entry)
	return entry, err
}

// ExitCode returns the exit code of an ended event, treating an absent code
// as a clean exit (the worker's own "ended" line carries no code).
func (e Event) ExitCode() int {
	if e.Code == nil {
		return 0
	}
	return *e.Code
}

// Ended builds the ended event the supervisor synthesizes from an observed
// process exit.
func Ended(code int) Event {
	return Event{Type: TypeEnded, Code: &code}
}

// ErrorEvent builds an error event with the given surfaced message.
func ErrorEvent(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Marshal encodes an event for delivery on the host→presentation channel.
func (e Event) Marshal() ([]byte, error) {
	return sonic.Marshal(e)
}
