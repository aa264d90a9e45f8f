package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

var _ storage.DatabaseStorage = (*MockDatabaseStorage)(nil)

// MockDatabaseStorage is a mock implementation of storage.DatabaseStorage
type MockDatabaseStorage struct {
	mock.Mock
}

func (m *MockDatabaseStorage) Close() error { return nil }

func (m *MockDatabaseStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// WithTransaction runs fn with a nil transaction; the mocked *Tx methods ignore it.
func (m *MockDatabaseStorage) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *MockDatabaseStorage) FindUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockDatabaseStorage) FindUserByGithubID(ctx context.Context, githubID string) (*types.User, error) {
	args := m.Called(ctx, githubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockDatabaseStorage) CreateUser(ctx context.Context, dto types.UserCreateDto) (*types.User, error) {
	args := m.Called(ctx, dto)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockDatabaseStorage) LinkDiscordAccount(ctx context.Context, userID uuid.UUID, discordID string, joinedAt time.Time) (*types.User, error) {
	args := m.Called(ctx, userID, discordID, joinedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateUserRoles(ctx context.Context, userID uuid.UUID, roles map[string]bool) (*types.User, error) {
	args := m.Called(ctx, userID, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockDatabaseStorage) StreamDiscordLinkedUsers(ctx context.Context) <-chan storage.RowsStream[types.User] {
	args := m.Called(ctx)
	users := args.Get(0).([]types.User)
	ch := make(chan storage.RowsStream[types.User], len(users))
	for _, u := range users {
		ch <- storage.RowsStream[types.User]{Row: u}
	}
	close(ch)
	return ch
}

func (m *MockDatabaseStorage) ListFeatureFlags(ctx context.Context) ([]types.FeatureFlag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.FeatureFlag), args.Error(1)
}

func (m *MockDatabaseStorage) GetFeatureFlag(ctx context.Context, name string) (*types.FeatureFlag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FeatureFlag), args.Error(1)
}

func (m *MockDatabaseStorage) CreateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error) {
	args := m.Called(ctx, flag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FeatureFlag), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateFeatureFlag(ctx context.Context, flag types.FeatureFlag) (*types.FeatureFlag, error) {
	args := m.Called(ctx, flag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FeatureFlag), args.Error(1)
}

func (m *MockDatabaseStorage) UpsertFeatureFlag(ctx context.Context, flag types.FeatureFlag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockDatabaseStorage) DeleteFeatureFlag(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockDatabaseStorage) ListStocks(ctx context.Context) ([]types.Stock, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Stock), args.Error(1)
}

func (m *MockDatabaseStorage) CreateStock(ctx context.Context, dto types.StockCreateDto) (*types.Stock, error) {
	args := m.Called(ctx, dto)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Stock), args.Error(1)
}

func (m *MockDatabaseStorage) UpsertStock(ctx context.Context, dto types.StockCreateDto) error {
	args := m.Called(ctx, dto)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*types.Stock, error) {
	args := m.Called(ctx, dbTx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Stock), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateStockTx(ctx context.Context, dbTx pgx.Tx, stock types.Stock) error {
	args := m.Called(ctx, dbTx, stock)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetWallet(ctx context.Context, userID uuid.UUID) (*types.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Wallet), args.Error(1)
}

func (m *MockDatabaseStorage) GetWalletForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*types.Wallet, error) {
	args := m.Called(ctx, dbTx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Wallet), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateWalletTx(ctx context.Context, dbTx pgx.Tx, wallet types.Wallet) error {
	args := m.Called(ctx, dbTx, wallet)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetUserStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID, stockID uuid.UUID) (*types.UserStock, error) {
	args := m.Called(ctx, dbTx, userID, stockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserStock), args.Error(1)
}

func (m *MockDatabaseStorage) UpsertUserStockTx(ctx context.Context, dbTx pgx.Tx, userStock types.UserStock) error {
	args := m.Called(ctx, dbTx, userStock)
	return args.Error(0)
}

func (m *MockDatabaseStorage) ListUserStocks(ctx context.Context, userID uuid.UUID) ([]types.UserStock, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserStock), args.Error(1)
}

func (m *MockDatabaseStorage) ListSkills(ctx context.Context) ([]types.Skill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Skill), args.Error(1)
}

func (m *MockDatabaseStorage) GetSkill(ctx context.Context, id uuid.UUID) (*types.Skill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Skill), args.Error(1)
}

func (m *MockDatabaseStorage) CreateSkill(ctx context.Context, name string) (*types.Skill, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Skill), args.Error(1)
}

func (m *MockDatabaseStorage) CreateEndorsement(ctx context.Context, e types.Endorsement) (*types.Endorsement, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Endorsement), args.Error(1)
}

func (m *MockDatabaseStorage) ListUserSkills(ctx context.Context, userID uuid.UUID) ([]types.UserSkill, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserSkill), args.Error(1)
}

func (m *MockDatabaseStorage) SaveDevice(ctx context.Context, device types.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDatabaseStorage) ListDevices(ctx context.Context, userID uuid.UUID) ([]types.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Device), args.Error(1)
}

func (m *MockDatabaseStorage) ListGroupRoles(ctx context.Context) ([]types.GroupRole, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.GroupRole), args.Error(1)
}

func (m *MockDatabaseStorage) FindGroupRoleByName(ctx context.Context, roleName string) (*types.GroupRole, error) {
	args := m.Called(ctx, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GroupRole), args.Error(1)
}

func (m *MockDatabaseStorage) FindGroupRoleByRoleID(ctx context.Context, roleID string) (*types.GroupRole, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GroupRole), args.Error(1)
}

func (m *MockDatabaseStorage) CreateGroupRole(ctx context.Context, role types.GroupRole) (*types.GroupRole, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GroupRole), args.Error(1)
}

func (m *MockDatabaseStorage) GetDiscordInvite(ctx context.Context, userID uuid.UUID) (*types.DiscordInvite, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DiscordInvite), args.Error(1)
}

func (m *MockDatabaseStorage) SaveDiscordInvite(ctx context.Context, invite types.DiscordInvite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *MockDatabaseStorage) DeleteDiscordInvitesBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// memoryKV is an in-memory storage.KeyValueStore that records expiries.
type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	expiry  map[string]time.Duration
	deleted []string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}, expiry: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.expiry[key] = expiry
	return nil
}

func (m *memoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok, nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-" + task.Type()}, nil
}
