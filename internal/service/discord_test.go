package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) CreateRole(ctx context.Context, roleName string) (string, error) {
	args := m.Called(ctx, roleName)
	return args.String(0), args.Error(1)
}

func (m *MockBot) AddRole(ctx context.Context, discordID, roleID string) error {
	return m.Called(ctx, discordID, roleID).Error(0)
}

func (m *MockBot) RemoveRole(ctx context.Context, discordID, roleID string) error {
	return m.Called(ctx, discordID, roleID).Error(0)
}

func (m *MockBot) GenerateInvite(ctx context.Context, channelID string) (string, error) {
	args := m.Called(ctx, channelID)
	return args.String(0), args.Error(1)
}

func (m *MockBot) SetNickname(ctx context.Context, discordID, nickname string) error {
	return m.Called(ctx, discordID, nickname).Error(0)
}

func TestGroupRoleName(t *testing.T) {
	assert.Equal(t, "group-go-devs", service.GroupRoleName("Go  Devs"))
	assert.Equal(t, "group-go", service.GroupRoleName("group-go"))
}

func TestCreateGroupRole(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New()}
	db, bot := new(MockDatabaseStorage), new(MockBot)
	db.On("FindGroupRoleByName", mock.Anything, "group-go").Return(nil, storage.ErrNotFound).Once()
	bot.On("CreateRole", mock.Anything, "group-go").Return("r-1", nil)
	db.On("CreateGroupRole", mock.Anything, types.GroupRole{RoleName: "group-go", RoleID: "r-1", CreatedBy: user.ID}).
		Return(&types.GroupRole{RoleName: "group-go", RoleID: "r-1"}, nil)
	db.On("FindGroupRoleByName", mock.Anything, "group-go").Return(&types.GroupRole{}, nil).Once()

	svc := service.NewDiscordService(db, newMemoryKV(), bot, &fakeEnqueuer{}, "chan", testLogger)
	role, err := svc.CreateGroupRole(ctx, user, types.GroupRoleCreateDto{RoleName: "go"})
	require.NoError(t, err)
	assert.Equal(t, "r-1", role.RoleID)

	_, err = svc.CreateGroupRole(ctx, user, types.GroupRoleCreateDto{RoleName: "go"})
	assert.ErrorIs(t, err, service.ErrGroupRoleExists)
	bot.AssertNumberOfCalls(t, "CreateRole", 1)
}

func TestCreateGroupRoleLostRaceLogsRole(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New()}
	db, bot := new(MockDatabaseStorage), new(MockBot)
	db.On("FindGroupRoleByName", mock.Anything, "group-go").Return(nil, storage.ErrNotFound)
	bot.On("CreateRole", mock.Anything, "group-go").Return("r-9", nil)
	db.On("CreateGroupRole", mock.Anything, mock.Anything).Return(nil, storage.ErrConflict)

	logger, hook := logtest.NewNullLogger()
	svc := service.NewDiscordService(db, newMemoryKV(), bot, &fakeEnqueuer{}, "chan", logger)
	_, err := svc.CreateGroupRole(ctx, user, types.GroupRoleCreateDto{RoleName: "go"})
	assert.ErrorIs(t, err, service.ErrGroupRoleExists)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "r-9", entry.Data["role_id"])
}

func TestMemberRoles(t *testing.T) {
	ctx := context.Background()
	db, bot := new(MockDatabaseStorage), new(MockBot)
	db.On("FindGroupRoleByRoleID", mock.Anything, "r-1").Return(&types.GroupRole{RoleID: "r-1"}, nil)
	db.On("FindGroupRoleByRoleID", mock.Anything, "admin").Return(nil, storage.ErrNotFound)
	bot.On("AddRole", mock.Anything, "d-1", "r-1").Return(nil)
	bot.On("RemoveRole", mock.Anything, "d-1", "r-1").Return(nil)
	svc := service.NewDiscordService(db, newMemoryKV(), bot, &fakeEnqueuer{}, "chan", testLogger)

	linked := &types.User{ID: uuid.New(), DiscordID: "d-1"}
	require.NoError(t, svc.AddMemberRole(ctx, linked, "r-1"))
	require.NoError(t, svc.RemoveMemberRole(ctx, linked, "r-1"))
	assert.ErrorIs(t, svc.AddMemberRole(ctx, linked, "admin"), service.ErrGroupRoleNotFound)
	assert.ErrorIs(t, svc.AddMemberRole(ctx, &types.User{ID: uuid.New()}, "r-1"), service.ErrDiscordNotLinked)
	bot.AssertExpectations(t)
}

func TestGenerateInviteReusesExisting(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New()}
	db, bot := new(MockDatabaseStorage), new(MockBot)
	db.On("GetDiscordInvite", mock.Anything, user.ID).Return(nil, storage.ErrNotFound).Once()
	bot.On("GenerateInvite", mock.Anything, "chan").Return("discord.gg/abc", nil).Once()
	db.On("SaveDiscordInvite", mock.Anything, mock.MatchedBy(func(i types.DiscordInvite) bool {
		return i.UserID == user.ID && i.InviteURL == "discord.gg/abc"
	})).Return(nil)
	db.On("GetDiscordInvite", mock.Anything, user.ID).Return(&types.DiscordInvite{UserID: user.ID, InviteURL: "discord.gg/abc"}, nil)
	svc := service.NewDiscordService(db, newMemoryKV(), bot, &fakeEnqueuer{}, "chan", testLogger)

	first, err := svc.GenerateInvite(ctx, user)
	require.NoError(t, err)
	second, err := svc.GenerateInvite(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first.InviteURL, second.InviteURL)
	bot.AssertExpectations(t)
}

func TestExternalAccountLinking(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New()}
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	db := new(MockDatabaseStorage)
	db.On("LinkDiscordAccount", mock.Anything, user.ID, "d-9", joined).
		Return(&types.User{ID: user.ID, DiscordID: "d-9", Roles: map[string]bool{types.RoleInDiscord: true}}, nil)
	kv := newMemoryKV()
	svc := service.NewDiscordService(db, kv, new(MockBot), &fakeEnqueuer{}, "chan", testLogger)

	account := types.ExternalAccount{
		Type:  "discord",
		Token: "link-token",
		Attributes: types.ExternalAccountAttributes{
			DiscordID:       "d-9",
			DiscordJoinedAt: joined,
			Expiry:          time.Now().Add(10 * time.Minute).UnixMilli(),
		},
	}
	require.NoError(t, svc.SaveExternalAccount(ctx, account))
	assert.InDelta(t, (10 * time.Minute).Seconds(), kv.expiry["external-account:link-token"].Seconds(), 5)

	linked, err := svc.LinkExternalAccount(ctx, user, "link-token")
	require.NoError(t, err)
	assert.True(t, linked.HasRole(types.RoleInDiscord))

	_, err = svc.LinkExternalAccount(ctx, user, "link-token")
	assert.ErrorIs(t, err, service.ErrLinkTokenNotFound)

	account.Attributes.Expiry = time.Now().Add(-time.Minute).UnixMilli()
	assert.ErrorIs(t, svc.SaveExternalAccount(ctx, account), service.ErrLinkTokenExpired)
}

func TestNicknameSync(t *testing.T) {
	ctx := context.Background()
	requester := &types.User{ID: uuid.New()}
	db, bot := new(MockDatabaseStorage), new(MockBot)
	db.On("StreamDiscordLinkedUsers", mock.Anything).Return([]types.User{
		{ID: uuid.New(), Username: "ankush", DiscordID: "d-1"},
		{ID: uuid.New(), Username: "prakash", DiscordID: "d-2"},
	})
	bot.On("SetNickname", mock.Anything, "d-1", "ankush").Return(nil)
	bot.On("SetNickname", mock.Anything, "d-2", "prakash").Return(errors.New("missing permissions"))
	queue := &fakeEnqueuer{}
	svc := service.NewDiscordService(db, newMemoryKV(), bot, queue, "chan", testLogger)

	taskID, err := svc.EnqueueNicknameSync(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, "task-"+tasks.TypeNicknameSync, taskID)
	require.Len(t, queue.tasks, 1)

	var payload types.NicknameSyncPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, requester.ID, payload.RequestedBy)

	require.NoError(t, svc.HandleNicknameSync(ctx, queue.tasks[0]))
	bot.AssertExpectations(t)

	err = svc.HandleNicknameSync(ctx, asynq.NewTask(tasks.TypeNicknameSync, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
