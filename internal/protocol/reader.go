package protocol

import (
	"bufio"
	"io"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	// initialLineBuffer is the scanner's starting allocation.
	initialLineBuffer = 64 * 1024

	// maxLineBuffer bounds a single output line. A base64 JPEG frame at
	// 1280x720 lands in the hundreds of kilobytes; 16MB leaves ample room.
	maxLineBuffer = 16 * 1024 * 1024
)

// LineHandler receives each decoded event, in arrival order.
type LineHandler func(Event)

// DiagnosticHandler receives lines that did not decode to a typed event.
type DiagnosticHandler func(line string)

// ReadLines consumes r until EOF, splitting on newlines and decoding each
// line as an event. Lines are trimmed; blank lines are dropped. A line that
// fails to decode, or that carries an unknown type, degrades to a diagnostic
// instead of an error, so unstructured worker logging never breaks the pipe.
//
// Each line is forwarded as soon as its newline is seen; nothing is held
// back for batching. Returns the underlying read error, or nil on EOF.
func ReadLines(r io.Reader, onEvent LineHandler, onDiagnostic DiagnosticHandler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ev, ok := decodeLine(line)
		if !ok {
			if onDiagnostic != nil {
				onDiagnostic(line)
			}
			continue
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}

	return scanner.Err()
}

// decodeLine attempts to decode one candidate line as an event.
func decodeLine(line string) (Event, bool) {
	if !strings.HasPrefix(line, "{") {
		return Event{}, false
	}

	var ev Event
	if err := sonic.UnmarshalString(line, &ev); err != nil {
		return Event{}, false
	}
	if !ev.Type.Known() {
		return Event{}, false
	}
	return ev, true
}
