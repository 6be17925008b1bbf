package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// QueueState reports whether the task workers are running.
type QueueState interface {
	Running() bool
}

type HealthController struct {
	db      Pinger
	index   SearchIndex
	queue   QueueState
	version string
}

func NewHealthController(db Pinger, index SearchIndex, queue QueueState, version string) *HealthController {
	return &HealthController{
		db:      db,
		index:   index,
		queue:   queue,
		version: version,
	}
}

// Status reports the database, search index and task queue. Only the
// database decides overall health; the others are optional subsystems.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
		status = "unhealthy"
	}

	switch {
	case h.index == nil:
		checks["search"] = "disabled"
	default:
		if count, err := h.index.Count(); err != nil {
			checks["search"] = "error: " + err.Error()
		} else {
			checks["search"] = "ok (" + strconv.FormatUint(count, 10) + " documents)"
		}
	}

	switch {
	case h.queue == nil:
		checks["tasks"] = "disabled"
	case h.queue.Running():
		checks["tasks"] = "running"
	default:
		checks["tasks"] = "stopped"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
