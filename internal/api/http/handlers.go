// Package http exposes the synchronous control API the presentation layer
// drives: start, stop, and retry a bot session, and read the session state.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/monitoring"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/session"
)

// SessionController is the slice of the session manager the handlers use.
type SessionController interface {
	Start(d session.Descriptor) error
	Stop() error
	Retry() error
	Snapshot() (session.State, string)
}

// Handlers holds the control API handlers.
type Handlers struct {
	sessions SessionController
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates the control API handlers.
func NewHandlers(sessions SessionController, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{
		sessions: sessions,
		metrics:  metrics,
		log:      log.Component("api"),
	}
}

// startRequest is the body of POST /session/start.
type startRequest struct {
	PersonaID    string `json:"persona_id"`
	HumeConfigID string `json:"hume_config_id"`
	Environment  string `json:"environment"`
}

// controlResponse is the synchronous result of every control action. The
// success flag reflects only whether the request itself was accepted;
// session outcomes arrive on the event stream.
type controlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StartSession handles POST /session/start.
func (h *Handlers) StartSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, controlResponse{Success: false, Error: "invalid request body"})
		return
	}

	d := session.Descriptor{
		PersonaID:    req.PersonaID,
		HumeConfigID: req.HumeConfigID,
		Environment:  session.Environment(req.Environment),
	}

	if err := h.sessions.Start(d); err != nil {
		c.JSON(http.StatusOK, controlResponse{Success: false, Error: err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsStarted.Inc()
	}
	c.JSON(http.StatusOK, controlResponse{Success: true})
}

// StopSession handles POST /session/stop. Idempotent: stopping with no
// active session still succeeds.
func (h *Handlers) StopSession(c *gin.Context) {
	if err := h.sessions.Stop(); err != nil {
		c.JSON(http.StatusOK, controlResponse{Success: false, Error: err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsStopped.Inc()
	}
	c.JSON(http.StatusOK, controlResponse{Success: true})
}

// RetrySession handles POST /session/retry.
func (h *Handlers) RetrySession(c *gin.Context) {
	if err := h.sessions.Retry(); err != nil {
		c.JSON(http.StatusOK, controlResponse{Success: false, Error: err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.SessionRetries.Inc()
	}
	c.JSON(http.StatusOK, controlResponse{Success: true})
}

// stateResponse is the body of GET /session/state.
type stateResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// SessionState handles GET /session/state.
func (h *Handlers) SessionState(c *gin.Context) {
	state, lastError := h.sessions.Snapshot()
	c.JSON(http.StatusOK, stateResponse{State: string(state), Error: lastError})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	state, _ := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"session": string(state),
	})
}
