package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func flagName(c echo.Context) string {
	return strings.ToLower(c.Param("name"))
}

func (s *Server) ListFeatureFlags(c echo.Context) error {
	flags, err := s.deps.Flags.List(c.Request().Context())
	if err != nil {
		return s.handleError(c, err, "failed to list feature flags")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, flags))
}

func (s *Server) GetFeatureFlag(c echo.Context) error {
	flag, err := s.deps.Flags.Get(c.Request().Context(), flagName(c))
	if err != nil {
		return s.handleError(c, err, "failed to get feature flag")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, flag))
}

func (s *Server) CreateFeatureFlag(c echo.Context) error {
	var dto types.FeatureFlagCreateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	flag, err := s.deps.Flags.Create(c.Request().Context(), dto, userFrom(c).ID)
	if err != nil {
		return s.handleError(c, err, "failed to create feature flag")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, flag))
}

func (s *Server) UpdateFeatureFlag(c echo.Context) error {
	var dto types.FeatureFlagUpdateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	flag, err := s.deps.Flags.Update(c.Request().Context(), flagName(c), dto)
	if err != nil {
		return s.handleError(c, err, "failed to update feature flag")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, flag))
}

func (s *Server) DeleteFeatureFlag(c echo.Context) error {
	if err := s.deps.Flags.Delete(c.Request().Context(), flagName(c)); err != nil {
		return s.handleError(c, err, "failed to delete feature flag")
	}
	return c.NoContent(http.StatusNoContent)
}

// EvaluateFeatureFlags decides every flag for the caller. One broken flag
// fails the whole response.
func (s *Server) EvaluateFeatureFlags(c echo.Context) error {
	statuses, err := s.deps.Flags.EvaluateAll(c.Request().Context(), evaluatorFor(c), userFrom(c))
	if err != nil {
		return s.handleError(c, err, "failed to evaluate feature flags")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, statuses))
}

func (s *Server) EvaluateFeatureFlag(c echo.Context) error {
	result, err := s.deps.Flags.Evaluate(c.Request().Context(), evaluatorFor(c), flagName(c), userFrom(c))
	if err != nil {
		return s.handleError(c, err, "failed to evaluate feature flag")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, result))
}
