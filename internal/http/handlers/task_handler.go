package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/services"
)

// TaskStatusResponse is the body of GET /check-status.
type TaskStatusResponse struct {
	TaskID    string `json:"task_id"              example:"5f0c7d1e-3b0a-4f7e-9a51-1c2d3e4f5a6b"`
	Status    string `json:"status"               example:"completed" enums:"pending,processing,completed,failed"`
	ResultURL string `json:"result_url,omitempty" example:"https://cdn.example.com/r/abc.png"`
	Error     string `json:"error,omitempty"`
}

// CheckStatus godoc
// @ID          checkStatus
// @Summary     Poll a generation task
// @Description Tasks owned by another user are reported as not found.
// @Tags        Generation
// @Produce     json
// @Security    BearerAuth
// @Param       task_id  query     string  true  "Task ID"
// @Success     200      {object}  handlers.TaskStatusResponse
// @Failure     400      {object}  handlers.ErrorResponse  "task_id missing"
// @Failure     401      {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404      {object}  handlers.ErrorResponse  "Task not found"
// @Failure     500      {object}  handlers.ErrorResponse  "Internal error"
// @Router      /check-status [get]
func (h *Handlers) CheckStatus(c *gin.Context) {
	task, err := h.tasks.Status(c.Request.Context(), userID(c), c.Query("task_id"))
	switch {
	case errors.Is(err, services.ErrTaskIDRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "task_id is required")
		return
	case errors.Is(err, services.ErrTaskNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Task not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Server Error", err)
		return
	}

	resp := TaskStatusResponse{TaskID: task.ID, Status: task.Status}
	if task.ResultURL != nil {
		resp.ResultURL = *task.ResultURL
	}
	if task.Error != nil {
		resp.Error = *task.Error
	}
	ok(c, http.StatusOK, resp)
}
