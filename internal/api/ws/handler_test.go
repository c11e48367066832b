package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ojin-ai/agents-desktop/backend/internal/events"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) (*events.Emitter, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	emitter := events.NewEmitter(logging.NewNop())
	h := NewHandler(emitter, nil, logging.NewNop())

	r := gin.New()
	r.GET("/stream", h.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return emitter, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev protocol.Event
	require.NoError(t, sonic.Unmarshal(data, &ev))
	return ev
}

// readEventSkipping reads the next event that is not one of the ready
// markers published while waiting for the subscription to attach.
func readEventSkipping(t *testing.T, conn *websocket.Conn, skip protocol.Type) protocol.Event {
	t.Helper()
	for {
		ev := readEvent(t, conn)
		if ev.Type != skip {
			return ev
		}
	}
}

func TestHandleConnection_DeliversEventsInOrder(t *testing.T) {
	emitter, srv := newTestStream(t)
	conn := dial(t, srv)

	// The subscription attaches inside the handler goroutine; wait for it.
	require.Eventually(t, func() bool {
		emitter.Publish(protocol.Event{Type: protocol.TypeReady})
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, _, err := conn.ReadMessage()
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	emitter.Publish(protocol.Event{Type: protocol.TypePersonaInitialized})
	emitter.Publish(protocol.ErrorEvent("pipeline crashed"))
	emitter.Publish(protocol.Ended(1))

	assert.Equal(t, protocol.TypePersonaInitialized, readEventSkipping(t, conn, protocol.TypeReady).Type)

	ev := readEvent(t, conn)
	assert.Equal(t, protocol.TypeError, ev.Type)
	assert.Equal(t, "pipeline crashed", ev.Message)

	ev = readEvent(t, conn)
	assert.Equal(t, protocol.TypeEnded, ev.Type)
	assert.Equal(t, 1, ev.ExitCode())
}

func TestHandleConnection_SecondConnectionTakesOver(t *testing.T) {
	emitter, srv := newTestStream(t)

	first := dial(t, srv)
	require.Eventually(t, func() bool {
		emitter.Publish(protocol.Event{Type: protocol.TypeReady})
		first.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, _, err := first.ReadMessage()
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	second := dial(t, srv)

	// The second connection becomes the subscriber; wait until it receives.
	require.Eventually(t, func() bool {
		emitter.Publish(protocol.Event{Type: protocol.TypeStarted})
		second.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, _, err := second.ReadMessage()
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	// The first connection's stream has ended.
	first.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err, "revoked connection should stop receiving")
}
