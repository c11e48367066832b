package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	starts   []session.Descriptor
	stops    int
	retries  int
	retryErr error
	state    session.State
	lastErr  string
}

func (f *fakeController) Start(d session.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	f.starts = append(f.starts, d)
	return nil
}

func (f *fakeController) Stop() error {
	f.stops++
	return nil
}

func (f *fakeController) Retry() error {
	f.retries++
	return f.retryErr
}

func (f *fakeController) Snapshot() (session.State, string) {
	return f.state, f.lastErr
}

func newTestRouter(ctrl *fakeController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(ctrl, nil, logging.NewNop())

	r := gin.New()
	r.POST("/session/start", h.StartSession)
	r.POST("/session/stop", h.StopSession)
	r.POST("/session/retry", h.RetrySession)
	r.GET("/session/state", h.SessionState)
	r.GET("/health", h.Health)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

func TestStartSession_Success(t *testing.T) {
	ctrl := &fakeController{state: session.StateIdle}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodPost, "/session/start",
		`{"persona_id":"p1","hume_config_id":"h1","environment":"production"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	require.Len(t, ctrl.starts, 1)
	assert.Equal(t, "p1", ctrl.starts[0].PersonaID)
	assert.Equal(t, session.EnvProduction, ctrl.starts[0].Environment)
}

func TestStartSession_MissingHumeConfigRejected(t *testing.T) {
	ctrl := &fakeController{}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodPost, "/session/start",
		`{"persona_id":"p1","hume_config_id":"","environment":"production"}`)

	// The request is well-formed HTTP; the failure travels in the body.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "hume config")
	assert.Empty(t, ctrl.starts, "rejected start must not reach the supervisor")
}

func TestStartSession_MalformedBody(t *testing.T) {
	ctrl := &fakeController{}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodPost, "/session/start", `{"persona_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Empty(t, ctrl.starts)
}

func TestStopSession(t *testing.T) {
	ctrl := &fakeController{}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodPost, "/session/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 1, ctrl.stops)

	// Stopping again is still a success.
	_, resp = doJSON(t, r, http.MethodPost, "/session/stop", "")
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 2, ctrl.stops)
}

func TestRetrySession_NoFailedSession(t *testing.T) {
	ctrl := &fakeController{retryErr: assert.AnError}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodPost, "/session/retry", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

func TestSessionState(t *testing.T) {
	ctrl := &fakeController{state: session.StateError, lastErr: "bot ended unexpectedly (exit code 137)"}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodGet, "/session/state", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", resp["state"])
	assert.Equal(t, "bot ended unexpectedly (exit code 137)", resp["error"])
}

func TestSessionState_NoErrorOmitted(t *testing.T) {
	ctrl := &fakeController{state: session.StateActive}
	r := newTestRouter(ctrl)

	_, resp := doJSON(t, r, http.MethodGet, "/session/state", "")
	assert.Equal(t, "active", resp["state"])
	_, present := resp["error"]
	assert.False(t, present)
}

func TestHealth(t *testing.T) {
	ctrl := &fakeController{state: session.StateIdle}
	r := newTestRouter(ctrl)

	w, resp := doJSON(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "idle", resp["session"])
}
