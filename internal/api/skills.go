package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (s *Server) ListSkills(c echo.Context) error {
	skills, err := s.deps.Skills.List(c.Request().Context())
	if err != nil {
		return s.handleError(c, err, "failed to list skills")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, skills))
}

func (s *Server) CreateSkill(c echo.Context) error {
	var dto types.SkillCreateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	skill, err := s.deps.Skills.Create(c.Request().Context(), dto)
	if err != nil {
		return s.handleError(c, err, "failed to create skill")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, skill))
}

func (s *Server) EndorseSkill(c echo.Context) error {
	var req types.EndorseRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	endorsement, err := s.deps.Skills.Endorse(c.Request().Context(), userFrom(c).ID, req)
	if err != nil {
		return s.handleError(c, err, "failed to endorse skill")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, endorsement))
}

func (s *Server) GetUserSkills(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, MsgInvalidUserID))
	}
	skills, err := s.deps.Skills.UserSkills(c.Request().Context(), userID)
	if err != nil {
		return s.handleError(c, err, "failed to list user skills")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, skills))
}
