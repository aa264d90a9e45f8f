package api

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// GithubCallback completes the GitHub OAuth flow and sets the session cookie.
// The browser is sent back to redirect_url when it belongs to an allowed origin.
func (s *Server) GithubCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, MsgMissingCode))
	}

	user, token, err := s.deps.Auth.SignInWithGithub(c.Request().Context(), code)
	if err != nil {
		return s.handleError(c, err, "failed to sign in with github")
	}
	s.setSessionCookie(c, token)
	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user signed in")

	if redirect := c.QueryParam("redirect_url"); redirect != "" && s.allowedRedirect(redirect) {
		return c.Redirect(http.StatusFound, redirect)
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, user))
}

func (s *Server) allowedRedirect(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return slices.Contains(s.cfg.Server.CORSOrigins, u.Scheme+"://"+u.Host)
}

func (s *Server) SignOut(c echo.Context) error {
	s.clearSessionCookie(c)
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, MsgSignedOut))
}

func (s *Server) GetSelf(c echo.Context) error {
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, userFrom(c)))
}

func (s *Server) GetUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, MsgInvalidUserID))
	}
	user, err := s.deps.Users.Get(c.Request().Context(), userID)
	if err != nil {
		return s.handleError(c, err, "failed to get user")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, user))
}

func (s *Server) UpdateUserRoles(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, MsgInvalidUserID))
	}
	var dto types.UserRolesUpdateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	user, err := s.deps.Users.UpdateRoles(c.Request().Context(), userFrom(c), userID, dto)
	if err != nil {
		return s.handleError(c, err, "failed to update user roles")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, user))
}

func (s *Server) ListDevices(c echo.Context) error {
	devices, err := s.deps.Devices.ListDevices(c.Request().Context(), userFrom(c).ID)
	if err != nil {
		return s.handleError(c, err, "failed to list devices")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, devices))
}

// RegisterDevice is called by the mobile app after scanning the QR code.
func (s *Server) RegisterDevice(c echo.Context) error {
	var req types.DeviceAuthRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	auth, err := s.deps.Devices.Register(c.Request().Context(), req)
	if err != nil {
		return s.handleError(c, err, "failed to register device")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, auth))
}

func (s *Server) UpdateDeviceAuthStatus(c echo.Context) error {
	authStatus := types.AuthorizationStatus(strings.ToUpper(c.Param("status")))
	auth, err := s.deps.Devices.UpdateStatus(c.Request().Context(), userFrom(c).ID, authStatus)
	if err != nil {
		return s.handleError(c, err, "failed to update device authorization")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, auth))
}

// PollDevice hands the session token to an approved device.
func (s *Server) PollDevice(c echo.Context) error {
	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, MsgMissingDeviceID))
	}
	token, err := s.deps.Devices.Poll(c.Request().Context(), deviceID)
	switch {
	case errors.Is(err, service.ErrDeviceAuthPending):
		status := http.StatusAccepted
		return c.JSON(status, NewSuccessResponse(status, MsgDevicePending))
	case errors.Is(err, service.ErrDeviceAuthRejected):
		return c.JSON(http.StatusForbidden, NewErrorResponse(http.StatusForbidden, err.Error()))
	case err != nil:
		return s.handleError(c, err, "failed to poll device authorization")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, map[string]string{"token": token}))
}
