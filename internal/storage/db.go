package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// DatabaseStorage is the document store behind every handler. Handlers never
// see the driver; only the postgres backend implements it.
type DatabaseStorage interface {
	Close() error
	Ping(ctx context.Context) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

	FindUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	FindUserByGithubID(ctx context.Context, githubID string) (*types.User, error)
	CreateUser(ctx context.Context, dto types.UserCreateDto) (*types.User, error)
	LinkDiscordAccount(ctx context.Context, userID uuid.UUID, discordID string, joinedAt time.Time) (*types.User, error)
	UpdateUserRoles(ctx context.Context, userID uuid.UUID, roles map[string]bool) (*types.User, error)
	StreamDiscordLinkedUsers(ctx context.Context) <-chan RowsStream[types.User]

	ListFeatureFlags(ctx context.Context) ([]types.FeatureFlag, error)
	GetFeatureFlag(ctx context.Context, name string) (*types.FeatureFlag, error)
	CreateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error)
	UpdateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error)
	UpsertFeatureFlag(ctx context.Context, flag types.FeatureFlag) error
	DeleteFeatureFlag(ctx context.Context, name string) error

	ListStocks(ctx context.Context) ([]types.Stock, error)
	CreateStock(ctx context.Context, dto types.StockCreateDto) (*types.Stock, error)
	UpsertStock(ctx context.Context, dto types.StockCreateDto) error
	GetStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*types.Stock, error)
	UpdateStockTx(ctx context.Context, dbTx pgx.Tx, stock types.Stock) error
	GetWallet(ctx context.Context, userID uuid.UUID) (*types.Wallet, error)
	GetWalletForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*types.Wallet, error)
	UpdateWalletTx(ctx context.Context, dbTx pgx.Tx, wallet types.Wallet) error
	GetUserStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID, stockID uuid.UUID) (*types.UserStock, error)
	UpsertUserStockTx(ctx context.Context, dbTx pgx.Tx, userStock types.UserStock) error
	ListUserStocks(ctx context.Context, userID uuid.UUID) ([]types.UserStock, error)

	ListSkills(ctx context.Context) ([]types.Skill, error)
	GetSkill(ctx context.Context, id uuid.UUID) (*types.Skill, error)
	CreateSkill(ctx context.Context, name string) (*types.Skill, error)
	CreateEndorsement(ctx context.Context, e types.Endorsement) (*types.Endorsement, error)
	ListUserSkills(ctx context.Context, userID uuid.UUID) ([]types.UserSkill, error)

	SaveDevice(ctx context.Context, device types.Device) error
	ListDevices(ctx context.Context, userID uuid.UUID) ([]types.Device, error)

	ListGroupRoles(ctx context.Context) ([]types.GroupRole, error)
	FindGroupRoleByName(ctx context.Context, roleName string) (*types.GroupRole, error)
	FindGroupRoleByRoleID(ctx context.Context, roleID string) (*types.GroupRole, error)
	CreateGroupRole(ctx context.Context, role types.GroupRole) (*types.GroupRole, error)
	GetDiscordInvite(ctx context.Context, userID uuid.UUID) (*types.DiscordInvite, error)
	SaveDiscordInvite(ctx context.Context, invite types.DiscordInvite) error
	DeleteDiscordInvitesBefore(ctx context.Context, before time.Time) (int64, error)
}
