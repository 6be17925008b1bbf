package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

type stubQueue bool

func (q stubQueue) Running() bool { return bool(q) }

func healthResponse(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		env := newTestEnv(t)
		code, response := healthResponse(t, NewHealthController(env.db, env.index, stubQueue(true), "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "ok (0 documents)", response.Checks["search"])
		assert.Equal(t, "running", response.Checks["tasks"])
		assert.NotEmpty(t, response.Time)
	})

	t.Run("returns unhealthy when the database ping fails", func(t *testing.T) {
		code, response := healthResponse(t, NewHealthController(stubPinger{err: errors.New("closed")}, nil, nil, ""))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "error: closed", response.Checks["database"])
		assert.Equal(t, "disabled", response.Checks["search"])
		assert.Equal(t, "disabled", response.Checks["tasks"])
	})

	t.Run("optional subsystems do not affect health", func(t *testing.T) {
		code, response := healthResponse(t, NewHealthController(stubPinger{}, nil, stubQueue(false), ""))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "stopped", response.Checks["tasks"])
	})
}

func TestHealthController_Ping(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
