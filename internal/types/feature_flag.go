package types

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
)

type FeatureFlag struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Config      *rollout.Config `json:"config"`
	Owner       *uuid.UUID      `json:"owner,omitempty"`
	LaunchedAt  *time.Time      `json:"launched_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FeatureFlagCreateDto is the admin payload for a new flag. Config is kept raw
// so it can be checked against the config JSON schema before decoding.
type FeatureFlagCreateDto struct {
	Name        string          `json:"name" validate:"required,min=3,max=64,flagname"`
	Title       string          `json:"title" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=2000"`
	Config      json.RawMessage `json:"config" validate:"required"`
}

// using pointers lets PATCH leave absent fields untouched
type FeatureFlagUpdateDto struct {
	Title       *string         `json:"title" validate:"omitempty,max=120"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Config      json.RawMessage `json:"config"`
	Launched    *bool           `json:"launched"`
}

// FeatureFlagStatus is one entry of an evaluation response.
type FeatureFlagStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// reservedFlagNames collide with static routes under /feature-flags.
var reservedFlagNames = []string{"evaluate"}

func IsReservedFlagName(name string) bool {
	return slices.Contains(reservedFlagNames, strings.ToLower(name))
}
