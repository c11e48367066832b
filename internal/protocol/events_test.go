package protocol

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode_AbsentCodeIsClean(t *testing.T) {
	var ev Event
	require.NoError(t, sonic.UnmarshalString(`{"type":"ended"}`, &ev))
	assert.Equal(t, 0, ev.ExitCode())
}

func TestExitCode_ZeroAndNonZeroAreDistinct(t *testing.T) {
	assert.Equal(t, 0, Ended(0).ExitCode())
	assert.Equal(t, 137, Ended(137).ExitCode())
}

func TestEnded_MarshalCarriesCode(t *testing.T) {
	data, err := Ended(137).Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ended","code":137}`, string(data))
}

func TestTranscript_Decode(t *testing.T) {
	var ev Event
	require.NoError(t, sonic.UnmarshalString(
		`{"type":"transcript","data":{"role":"assistant","content":"hello"}}`, &ev))

	entry, err := ev.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "assistant", entry.Role)
	assert.Equal(t, "hello", entry.Content)
}

func TestErrorEvent(t *testing.T) {
	ev := ErrorEvent("connection refused")
	assert.Equal(t, TypeError, ev.Type)
	assert.Equal(t, "connection refused", ev.Message)
}

func TestTypeKnown(t *testing.T) {
	for _, typ := range []Type{TypeReady, TypeStarted, TypePersonaInitialized, TypeVideoFrame, TypeTranscript, TypeError, TypeEnded} {
		assert.True(t, typ.Known(), "type %s", typ)
	}
	assert.False(t, Type("heartbeat").Known())
	assert.False(t, Type("").Known())
}
