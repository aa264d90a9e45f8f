package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
)

// Role names stored in User.Roles.
const (
	RoleSuperUser = "super_user"
	RoleAppOwner  = "app_owner"
	RoleMember    = "member"
	RoleArchived  = "archived"
	RoleInDiscord = "in_discord"
)

// KnownRoles lists every role accepted by role-based rollouts and role guards.
var KnownRoles = []string{RoleSuperUser, RoleAppOwner, RoleMember, RoleArchived, RoleInDiscord}

type User struct {
	ID              uuid.UUID       `json:"id"`
	Username        string          `json:"username"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Email           string          `json:"email,omitempty"`
	GithubID        string          `json:"github_id"`
	GithubDisplay   string          `json:"github_display_name,omitempty"`
	DiscordID       string          `json:"discordId,omitempty"`
	DiscordJoinedAt *time.Time      `json:"discordJoinedAt,omitempty"`
	Roles           map[string]bool `json:"roles"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (u *User) HasRole(role string) bool {
	return u != nil && u.Roles[role]
}

// HasAnyRole reports whether at least one of roles is set on the user.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// RolloutContext converts the user into the rollout engine's caller context.
// A nil user yields nil, meaning anonymous.
func (u *User) RolloutContext() *rollout.UserContext {
	if u == nil {
		return nil
	}
	roles := make(map[string]bool, len(u.Roles))
	for k, v := range u.Roles {
		roles[k] = v
	}
	return &rollout.UserContext{ID: u.ID.String(), Roles: roles}
}

// GithubProfile is the subset of the GitHub user payload used on sign in.
type GithubProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserCreateDto struct {
	Username      string
	FirstName     string
	LastName      string
	Email         string
	GithubID      string
	GithubDisplay string
	Roles         map[string]bool
}

// UserRolesUpdateDto sets or clears roles on a user. Unlisted roles are kept.
type UserRolesUpdateDto struct {
	Roles map[string]bool `json:"roles" validate:"required,min=1,dive,keys,role,endkeys"`
}
