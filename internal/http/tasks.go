package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/tasks"
)

// TasksController reports the state of background tasks.
type TasksController struct {
	reader TaskStatusReader
}

// NewTasksController creates a new TasksController.
func NewTasksController(reader TaskStatusReader) *TasksController {
	return &TasksController{reader: reader}
}

// TaskInfo is the status of one task.
type TaskInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}
	if tc.reader == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.reader.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found", Code: "NOT_FOUND"})
		return
	}

	c.JSON(http.StatusOK, TaskInfo{ID: taskID, Status: tasks.StatusName(status)})
}
