package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// The interfaces below are implemented by the services in internal/service.

type AuthService interface {
	Authenticate(ctx context.Context, token string) (*types.User, string, error)
	SignInWithGithub(ctx context.Context, code string) (*types.User, string, error)
	SessionTTL() time.Duration
}

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.User, error)
	UpdateRoles(ctx context.Context, actor *types.User, userID uuid.UUID, dto types.UserRolesUpdateDto) (*types.User, error)
}

type FeatureFlagService interface {
	List(ctx context.Context) ([]types.FeatureFlag, error)
	Get(ctx context.Context, name string) (*types.FeatureFlag, error)
	Create(ctx context.Context, dto types.FeatureFlagCreateDto, owner uuid.UUID) (*types.FeatureFlag, error)
	Update(ctx context.Context, name string, dto types.FeatureFlagUpdateDto) (*types.FeatureFlag, error)
	Delete(ctx context.Context, name string) error
	Evaluate(ctx context.Context, evaluator *rollout.Evaluator, name string, user *types.User) (types.FeatureFlagStatus, error)
	EvaluateAll(ctx context.Context, evaluator *rollout.Evaluator, user *types.User) ([]types.FeatureFlagStatus, error)
	IsEnabled(ctx context.Context, evaluator *rollout.Evaluator, name string, user *types.User) (bool, error)
}

type TradingService interface {
	ListStocks(ctx context.Context) ([]types.Stock, error)
	CreateStock(ctx context.Context, dto types.StockCreateDto) (*types.Stock, error)
	ListUserStocks(ctx context.Context, userID uuid.UUID) ([]types.UserStock, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*types.Wallet, error)
	Trade(ctx context.Context, userID uuid.UUID, req types.TradeRequest) (*types.TradeResult, error)
}

type SkillService interface {
	List(ctx context.Context) ([]types.Skill, error)
	Create(ctx context.Context, dto types.SkillCreateDto) (*types.Skill, error)
	Endorse(ctx context.Context, endorserID uuid.UUID, req types.EndorseRequest) (*types.Endorsement, error)
	UserSkills(ctx context.Context, userID uuid.UUID) ([]types.UserSkill, error)
}

type DeviceService interface {
	Register(ctx context.Context, req types.DeviceAuthRequest) (*types.DeviceAuth, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, status types.AuthorizationStatus) (*types.DeviceAuth, error)
	Poll(ctx context.Context, deviceID string) (string, error)
	ListDevices(ctx context.Context, userID uuid.UUID) ([]types.Device, error)
}

type DiscordService interface {
	ListGroupRoles(ctx context.Context) ([]types.GroupRole, error)
	CreateGroupRole(ctx context.Context, user *types.User, dto types.GroupRoleCreateDto) (*types.GroupRole, error)
	AddMemberRole(ctx context.Context, user *types.User, roleID string) error
	RemoveMemberRole(ctx context.Context, user *types.User, roleID string) error
	GenerateInvite(ctx context.Context, user *types.User) (*types.DiscordInvite, error)
	SaveExternalAccount(ctx context.Context, account types.ExternalAccount) error
	LinkExternalAccount(ctx context.Context, user *types.User, token string) (*types.User, error)
	EnqueueNicknameSync(ctx context.Context, requestedBy *types.User) (string, error)
}

type AWSAccessService interface {
	RequestAccess(ctx context.Context, payload types.AWSAccessPayload) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the services into the server. Discord, AWS and Tasks
// are optional; their routes are not registered when nil.
type Dependencies struct {
	DB      Pinger
	Auth    AuthService
	Users   UserService
	Flags   FeatureFlagService
	Trading TradingService
	Skills  SkillService
	Devices DeviceService
	Discord DiscordService
	AWS     AWSAccessService
	Tasks   tasks.Inspector
}
