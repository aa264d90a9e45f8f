package service

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrUserNotFound    = errors.New("user not found")

	ErrFlagNotFound      = errors.New("feature flag not found")
	ErrFlagExists        = errors.New("feature flag already exists")
	ErrInvalidFlagConfig = errors.New("invalid feature flag config")

	ErrStockNotFound     = errors.New("stock not found")
	ErrStockExists       = errors.New("stock already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTrade      = errors.New("invalid trade")

	ErrSkillNotFound        = errors.New("skill not found")
	ErrSkillExists          = errors.New("skill already exists")
	ErrInvalidSkill         = errors.New("invalid skill")
	ErrSelfEndorsement      = errors.New("users cannot endorse themselves")
	ErrDuplicateEndorsement = errors.New("skill already endorsed by this user")

	ErrDeviceAuthNotFound = errors.New("no pending device authorization")
	ErrDeviceAuthPending  = errors.New("device authorization pending")
	ErrDeviceAuthRejected = errors.New("device authorization rejected")
	ErrInvalidAuthStatus  = errors.New("invalid authorization status")
	ErrDeviceIDInUse      = errors.New("device id has a pending request for another user")

	ErrDiscordNotLinked    = errors.New("discord account not linked")
	ErrGroupRoleExists     = errors.New("group role already exists")
	ErrGroupRoleNotFound   = errors.New("group role not found")
	ErrInvalidGroupRole    = errors.New("invalid group role")
	ErrLinkTokenNotFound   = errors.New("link token not found")
	ErrLinkTokenExpired    = errors.New("link token expired")
	ErrDiscordAlreadyInUse = errors.New("discord account linked to another user")

	ErrEmailRequired = errors.New("user email is required")
)
