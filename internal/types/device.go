package types

import (
	"time"

	"github.com/google/uuid"
)

type AuthorizationStatus string

const (
	AuthStatusNotInit    AuthorizationStatus = "NOT_INIT"
	AuthStatusAuthorized AuthorizationStatus = "AUTHORIZED"
	AuthStatusRejected   AuthorizationStatus = "REJECTED"
)

// DeviceAuth is a pending QR-code login kept in the key-value store.
type DeviceAuth struct {
	UserID              uuid.UUID           `json:"user_id"`
	DeviceID            string              `json:"device_id"`
	DeviceInfo          string              `json:"device_info"`
	AuthorizationStatus AuthorizationStatus `json:"authorization_status"`
	CreatedAt           time.Time           `json:"created_at"`
}

type DeviceAuthRequest struct {
	UserID     uuid.UUID `json:"user_id" validate:"required"`
	DeviceInfo string    `json:"device_info" validate:"required,max=256"`
	DeviceID   string    `json:"device_id" validate:"required,max=128"`
}

// Device is a device that completed a QR-code login.
type Device struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	DeviceID     string    `json:"device_id"`
	DeviceInfo   string    `json:"device_info"`
	AuthorizedAt time.Time `json:"authorized_at"`
}
