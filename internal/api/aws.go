package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (s *Server) RequestAWSAccess(c echo.Context) error {
	var payload types.AWSAccessPayload
	if err := bindRequest(c, &payload); err != nil {
		return err
	}
	taskID, err := s.deps.AWS.RequestAccess(c.Request().Context(), payload)
	if err != nil {
		return s.handleError(c, err, "failed to request aws access")
	}
	status := http.StatusAccepted
	return c.JSON(status, NewSuccessResponse(status, map[string]string{"taskId": taskID}))
}
