package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
)

// GetTaskResult reports the outcome of a background task.
func (s *Server) GetTaskResult(c echo.Context) error {
	result, err := tasks.GetTaskResult(s.deps.Tasks, c.Param("taskId"))
	switch {
	case errors.Is(err, tasks.ErrTaskInProgress):
		status := http.StatusAccepted
		return c.JSON(status, NewSuccessResponse(status, MsgTaskInProgress))
	case errors.Is(err, tasks.ErrTaskFailed):
		s.logger.WithError(err).WithField("task_id", c.Param("taskId")).Warn("background task failed")
		return c.JSON(http.StatusInternalServerError, NewErrorResponse(http.StatusInternalServerError, tasks.ErrTaskFailed.Error()))
	case err != nil:
		return s.handleError(c, err, "failed to get task result")
	}

	status := http.StatusOK
	if len(result) == 0 || !json.Valid(result) {
		return c.JSON(status, NewSuccessResponse(status, string(result)))
	}
	return c.JSON(status, NewSuccessResponse(status, json.RawMessage(result)))
}
