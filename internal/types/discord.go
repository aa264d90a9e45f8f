package types

import (
	"time"

	"github.com/google/uuid"
)

// GroupRolePrefix is prepended to every self-service Discord group role.
const GroupRolePrefix = "group-"

type GroupRole struct {
	ID        uuid.UUID `json:"id"`
	RoleName  string    `json:"rolename"`
	RoleID    string    `json:"roleid"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"date"`
}

type GroupRoleCreateDto struct {
	RoleName string `json:"rolename" validate:"required,max=80"`
}

type MemberRoleRequest struct {
	RoleID string `json:"roleid" validate:"required"`
}

// ExternalAccount is the link token posted by the Discord bot, kept until the
// user claims it or it expires.
type ExternalAccount struct {
	Type       string                    `json:"type" validate:"required,oneof=discord"`
	Token      string                    `json:"token" validate:"required,min=8"`
	Attributes ExternalAccountAttributes `json:"attributes" validate:"required"`
}

type ExternalAccountAttributes struct {
	DiscordID       string    `json:"discordId" validate:"required"`
	DiscordJoinedAt time.Time `json:"discordJoinedAt"`
	UserAvatar      string    `json:"userAvatar,omitempty"`
	Expiry          int64     `json:"expiry" validate:"required"`
}

type DiscordInvite struct {
	UserID    uuid.UUID `json:"userId"`
	InviteURL string    `json:"inviteLink"`
	CreatedAt time.Time `json:"created_at"`
}

// NicknameSyncPayload is the asynq payload for a nickname sync run.
type NicknameSyncPayload struct {
	RequestedBy uuid.UUID `json:"requested_by"`
}
