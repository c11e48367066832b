package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ojin-ai/agents-desktop/backend/internal/events"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/monitoring"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// Frame payloads dominate; raise the write buffer accordingly.
	WriteBufferSize: 256 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // loopback-only server, the shell is the only caller
	},
}

// Handler streams worker events to the presentation layer.
type Handler struct {
	emitter *events.Emitter
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new event stream handler.
func NewHandler(emitter *events.Emitter, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		emitter: emitter,
		metrics: metrics,
		log:     log.Component("ws"),
	}
}

// HandleConnection upgrades the request and attaches the connection as the
// event subscriber. A second connection (the shell re-rendered and
// reconnected) takes the subscription over; the first connection's stream
// ends rather than both receiving duplicates.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.emitter.Subscribe()
	defer sub.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}
	h.log.Info("event stream subscriber attached", zap.String("remote", conn.RemoteAddr().String()))

	// Drain the read side to observe the close handshake; any read error
	// releases the subscription so events stop flowing here.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for ev := range sub.C {
		data, err := ev.Marshal()
		if err != nil {
			h.log.Error("failed to encode event", zap.Error(err))
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("event stream write failed, detaching", zap.Error(err))
			return
		}
	}

	// Subscription revoked by a newer connection.
	h.log.Info("event stream subscriber detached")
}
