package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
)

const apiVersion = "1.0.0"

type APIResponse[T any] struct {
	Data      T             `json:"data,omitempty"`
	Error     ErrorResponse `json:"error"`
	Status    int           `json:"status,omitempty"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
}

type ErrorResponse struct {
	Message          string `json:"message"`
	DetailedResponse string `json:"details,omitempty"`
}

const (
	MsgUnauthorized    = "Unauthenticated User"
	MsgForbidden       = "You are not authorized for this action."
	MsgNotFound        = "Not Found"
	MsgInternalError   = "An internal error occurred"
	MsgInvalidRequest  = "Invalid request format"
	MsgMissingCode     = "Missing oauth code"
	MsgInvalidUserID   = "Invalid user id"
	MsgMissingDeviceID = "Missing device id"
	MsgDevicePending   = "Authorization pending"
	MsgSignedOut       = "Signed out successfully"
	MsgInvalidBotToken = "Invalid bot token"
	MsgTaskInProgress  = "Task is still in progress"
)

func NewErrorResponseWithMessage(message string) APIResponse[interface{}] {
	return APIResponse[interface{}]{
		Error: ErrorResponse{
			Message: message,
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   apiVersion,
	}
}

func NewErrorResponse(code int, message string) APIResponse[interface{}] {
	resp := NewErrorResponseWithMessage(message)
	resp.Status = code
	return resp
}

func NewSuccessResponse[T any](code int, data T) APIResponse[T] {
	return APIResponse[T]{
		Status:    code,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   apiVersion,
	}
}

var (
	notFoundErrors = []error{
		service.ErrUserNotFound,
		service.ErrFlagNotFound,
		service.ErrStockNotFound,
		service.ErrSkillNotFound,
		service.ErrDeviceAuthNotFound,
		service.ErrGroupRoleNotFound,
		service.ErrLinkTokenNotFound,
		tasks.ErrTaskNotFound,
	}
	conflictErrors = []error{
		service.ErrDeviceIDInUse,
		service.ErrFlagExists,
		service.ErrStockExists,
		service.ErrSkillExists,
		service.ErrDuplicateEndorsement,
		service.ErrGroupRoleExists,
		service.ErrDiscordAlreadyInUse,
	}
	badRequestErrors = []error{
		service.ErrInvalidFlagConfig,
		service.ErrInsufficientFunds,
		service.ErrInsufficientStock,
		service.ErrInvalidTrade,
		service.ErrInvalidSkill,
		service.ErrSelfEndorsement,
		service.ErrInvalidAuthStatus,
		service.ErrDiscordNotLinked,
		service.ErrInvalidGroupRole,
		service.ErrLinkTokenExpired,
		service.ErrEmailRequired,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps a service error to its HTTP status and the message shown to
// the client. Unknown errors are internal and never echoed back.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case isAny(err, notFoundErrors):
		return http.StatusNotFound, err.Error()
	case isAny(err, conflictErrors):
		return http.StatusConflict, err.Error()
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, MsgInternalError
	}
}
