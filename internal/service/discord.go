package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/discord"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const externalAccountPrefix = "external-account:"

// NicknameSyncResult is written as the asynq task result.
type NicknameSyncResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type DiscordService struct {
	db              storage.DatabaseStorage
	kv              storage.KeyValueStore
	bot             discord.Bot
	queue           tasks.Enqueuer
	inviteChannelID string
	sanitizer       *bluemonday.Policy
	logger          *logrus.Entry
	now             func() time.Time
}

func NewDiscordService(
	db storage.DatabaseStorage,
	kv storage.KeyValueStore,
	bot discord.Bot,
	queue tasks.Enqueuer,
	inviteChannelID string,
	logger *logrus.Logger,
) *DiscordService {
	return &DiscordService{
		db:              db,
		kv:              kv,
		bot:             bot,
		queue:           queue,
		inviteChannelID: inviteChannelID,
		sanitizer:       bluemonday.StrictPolicy(),
		logger:          logger.WithField("service", "discord"),
		now:             time.Now,
	}
}

func (s *DiscordService) ListGroupRoles(ctx context.Context) ([]types.GroupRole, error) {
	return s.db.ListGroupRoles(ctx)
}

// GroupRoleName normalises a requested name to "group-<name>".
func GroupRoleName(name string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if strings.HasPrefix(name, types.GroupRolePrefix) {
		return name
	}
	return types.GroupRolePrefix + name
}

func (s *DiscordService) CreateGroupRole(ctx context.Context, user *types.User, dto types.GroupRoleCreateDto) (*types.GroupRole, error) {
	name := GroupRoleName(s.sanitizer.Sanitize(dto.RoleName))
	if name == types.GroupRolePrefix {
		return nil, fmt.Errorf("%w: role name is empty", ErrInvalidGroupRole)
	}

	_, err := s.db.FindGroupRoleByName(ctx, name)
	if err == nil {
		return nil, ErrGroupRoleExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up group role: %w", err)
	}

	roleID, err := s.bot.CreateRole(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord role: %w", err)
	}
	role, err := s.db.CreateGroupRole(ctx, types.GroupRole{
		RoleName:  name,
		RoleID:    roleID,
		CreatedBy: user.ID,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"role_name": name,
			"role_id":   roleID,
		}).Warn("discord role created but not saved, remove it from the guild")
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrGroupRoleExists
		}
		return nil, fmt.Errorf("failed to save group role: %w", err)
	}
	return role, nil
}

func (s *DiscordService) AddMemberRole(ctx context.Context, user *types.User, roleID string) error {
	if err := s.checkMemberRole(ctx, user, roleID); err != nil {
		return err
	}
	return s.bot.AddRole(ctx, user.DiscordID, roleID)
}

func (s *DiscordService) RemoveMemberRole(ctx context.Context, user *types.User, roleID string) error {
	if err := s.checkMemberRole(ctx, user, roleID); err != nil {
		return err
	}
	return s.bot.RemoveRole(ctx, user.DiscordID, roleID)
}

// only self-service group roles may be granted through the API
func (s *DiscordService) checkMemberRole(ctx context.Context, user *types.User, roleID string) error {
	if user.DiscordID == "" {
		return ErrDiscordNotLinked
	}
	if _, err := s.db.FindGroupRoleByRoleID(ctx, roleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGroupRoleNotFound
		}
		return fmt.Errorf("failed to look up group role: %w", err)
	}
	return nil
}

// GenerateInvite returns the caller's invite, creating it on first use.
func (s *DiscordService) GenerateInvite(ctx context.Context, user *types.User) (*types.DiscordInvite, error) {
	invite, err := s.db.GetDiscordInvite(ctx, user.ID)
	if err == nil {
		return invite, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to get discord invite: %w", err)
	}

	url, err := s.bot.GenerateInvite(ctx, s.inviteChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate discord invite: %w", err)
	}
	invite = &types.DiscordInvite{UserID: user.ID, InviteURL: url, CreatedAt: s.now().UTC()}
	if err := s.db.SaveDiscordInvite(ctx, *invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// SaveExternalAccount stores a link token posted by the bot until its expiry.
func (s *DiscordService) SaveExternalAccount(ctx context.Context, account types.ExternalAccount) error {
	ttl := time.UnixMilli(account.Attributes.Expiry).Sub(s.now())
	if ttl <= 0 {
		return ErrLinkTokenExpired
	}
	return storage.SetJSON(ctx, s.kv, externalAccountPrefix+account.Token, account, ttl)
}

// LinkExternalAccount claims a link token for user and marks them in_discord.
func (s *DiscordService) LinkExternalAccount(ctx context.Context, user *types.User, token string) (*types.User, error) {
	account, err := storage.GetJSON[types.ExternalAccount](ctx, s.kv, externalAccountPrefix+token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrLinkTokenNotFound
		}
		return nil, err
	}
	if s.now().After(time.UnixMilli(account.Attributes.Expiry)) {
		return nil, ErrLinkTokenExpired
	}

	joinedAt := account.Attributes.DiscordJoinedAt
	if joinedAt.IsZero() {
		joinedAt = s.now().UTC()
	}
	linked, err := s.db.LinkDiscordAccount(ctx, user.ID, account.Attributes.DiscordID, joinedAt)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDiscordAlreadyInUse
		}
		return nil, fmt.Errorf("failed to link discord account: %w", err)
	}
	if err := s.kv.Delete(ctx, externalAccountPrefix+token); err != nil {
		s.logger.WithError(err).Warn("failed to delete used link token")
	}
	return linked, nil
}

func (s *DiscordService) EnqueueNicknameSync(ctx context.Context, requestedBy *types.User) (string, error) {
	payload, err := json.Marshal(types.NicknameSyncPayload{RequestedBy: requestedBy.ID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.queue.Enqueue(
		asynq.NewTask(tasks.TypeNicknameSync, payload),
		asynq.Queue(tasks.QUEUE_NAME),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue nickname sync: %w", err)
	}
	s.logger.WithField("task_id", info.ID).Info("enqueued nickname sync")
	return info.ID, nil
}

// HandleNicknameSync sets the guild nickname of every linked member to their
// username. Per-member failures are counted, not retried.
func (s *DiscordService) HandleNicknameSync(ctx context.Context, t *asynq.Task) error {
	var payload types.NicknameSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %s: %w", err, asynq.SkipRetry)
	}

	var result NicknameSyncResult
	for item := range s.db.StreamDiscordLinkedUsers(ctx) {
		if item.Err != nil {
			return fmt.Errorf("failed to stream discord users: %w", item.Err)
		}
		if err := s.bot.SetNickname(ctx, item.Row.DiscordID, item.Row.Username); err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("user_id", item.Row.ID).Warn("failed to set nickname")
			continue
		}
		result.Updated++
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"requested_by": payload.RequestedBy,
		"updated":      result.Updated,
		"failed":       result.Failed,
	}).Info("nickname sync finished")

	if w := t.ResultWriter(); w != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return nil
}
