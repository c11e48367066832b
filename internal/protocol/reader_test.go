package protocol

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) (events []Event, diagnostics []string) {
	t.Helper()
	err := ReadLines(strings.NewReader(input),
		func(ev Event) { events = append(events, ev) },
		func(line string) { diagnostics = append(diagnostics, line) },
	)
	require.NoError(t, err)
	return events, diagnostics
}

func TestReadLines_OrderPreserved(t *testing.T) {
	input := `{"type":"ready","persona_id":"p1","hume_config_id":"h1"}
{"type":"started"}
{"type":"persona_initialized"}
{"type":"video_frame","data":"aGVsbG8=","width":1280,"height":720,"format":"jpeg"}
{"type":"transcript","data":{"role":"assistant","content":"hi there"}}
{"type":"ended"}
`
	events, diagnostics := collect(t, input)

	require.Len(t, events, 6)
	assert.Empty(t, diagnostics)

	want := []Type{TypeReady, TypeStarted, TypePersonaInitialized, TypeVideoFrame, TypeTranscript, TypeEnded}
	for i, ev := range events {
		assert.Equal(t, want[i], ev.Type, "event %d", i)
	}

	assert.Equal(t, "p1", events[0].PersonaID)
	assert.Equal(t, "h1", events[0].HumeConfigID)
	assert.Equal(t, 1280, events[3].Width)
	assert.Equal(t, 720, events[3].Height)
	assert.Equal(t, "jpeg", events[3].Format)
}

func TestReadLines_UnstructuredLinesBecomeDiagnostics(t *testing.T) {
	input := `INFO starting pipeline
{"type":"ready"}
not json at all
{"broken json
{"type":"totally_unknown"}
{"type":"transcript","data":{"role":"user","content":"hello"}}
`
	events, diagnostics := collect(t, input)

	require.Len(t, events, 2)
	assert.Equal(t, TypeReady, events[0].Type)
	assert.Equal(t, TypeTranscript, events[1].Type)

	require.Len(t, diagnostics, 4)
	assert.Equal(t, "INFO starting pipeline", diagnostics[0])
	assert.Equal(t, `{"type":"totally_unknown"}`, diagnostics[3])
}

func TestReadLines_BlankAndWhitespaceLinesDropped(t *testing.T) {
	input := "\n   \n{\"type\":\"ready\"}\n\t\n"
	events, diagnostics := collect(t, input)

	require.Len(t, events, 1)
	assert.Empty(t, diagnostics)
}

func TestReadLines_LargeFrameLine(t *testing.T) {
	// A base64 frame line far beyond the default bufio.Scanner token size.
	payload := base64.StdEncoding.EncodeToString(make([]byte, 512*1024))
	input := fmt.Sprintf(`{"type":"video_frame","data":"%s","width":1280,"height":720,"format":"jpeg"}`+"\n", payload)

	events, diagnostics := collect(t, input)

	require.Len(t, events, 1)
	assert.Empty(t, diagnostics)
	assert.Equal(t, TypeVideoFrame, events[0].Type)
}

func TestReadLines_EmptyInput(t *testing.T) {
	events, diagnostics := collect(t, "")
	assert.Empty(t, events)
	assert.Empty(t, diagnostics)
}
