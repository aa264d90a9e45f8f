package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (s *Server) ListGroupRoles(c echo.Context) error {
	roles, err := s.deps.Discord.ListGroupRoles(c.Request().Context())
	if err != nil {
		return s.handleError(c, err, "failed to list group roles")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, roles))
}

func (s *Server) CreateGroupRole(c echo.Context) error {
	var dto types.GroupRoleCreateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	role, err := s.deps.Discord.CreateGroupRole(c.Request().Context(), userFrom(c), dto)
	if err != nil {
		return s.handleError(c, err, "failed to create group role")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, role))
}

func (s *Server) AddMemberRole(c echo.Context) error {
	var req types.MemberRoleRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	if err := s.deps.Discord.AddMemberRole(c.Request().Context(), userFrom(c), req.RoleID); err != nil {
		return s.handleError(c, err, "failed to add member role")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, req))
}

func (s *Server) RemoveMemberRole(c echo.Context) error {
	var req types.MemberRoleRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	if err := s.deps.Discord.RemoveMemberRole(c.Request().Context(), userFrom(c), req.RoleID); err != nil {
		return s.handleError(c, err, "failed to remove member role")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GenerateInvite(c echo.Context) error {
	invite, err := s.deps.Discord.GenerateInvite(c.Request().Context(), userFrom(c))
	if err != nil {
		return s.handleError(c, err, "failed to generate discord invite")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, invite))
}

func (s *Server) SyncNicknames(c echo.Context) error {
	taskID, err := s.deps.Discord.EnqueueNicknameSync(c.Request().Context(), userFrom(c))
	if err != nil {
		return s.handleError(c, err, "failed to enqueue nickname sync")
	}
	status := http.StatusAccepted
	return c.JSON(status, NewSuccessResponse(status, map[string]string{"taskId": taskID}))
}

// SaveExternalAccount is called by the Discord bot with a one-time link token.
func (s *Server) SaveExternalAccount(c echo.Context) error {
	var account types.ExternalAccount
	if err := bindRequest(c, &account); err != nil {
		return err
	}
	if err := s.deps.Discord.SaveExternalAccount(c.Request().Context(), account); err != nil {
		return s.handleError(c, err, "failed to save external account")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) LinkExternalAccount(c echo.Context) error {
	user, err := s.deps.Discord.LinkExternalAccount(c.Request().Context(), userFrom(c), c.Param("token"))
	if err != nil {
		return s.handleError(c, err, "failed to link external account")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, user))
}
