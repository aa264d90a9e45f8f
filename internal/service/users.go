package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type UserService struct {
	db     storage.DatabaseStorage
	logger *logrus.Entry
}

func NewUserService(db storage.DatabaseStorage, logger *logrus.Logger) *UserService {
	return &UserService{
		db:     db,
		logger: logger.WithField("service", "users"),
	}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	user, err := s.db.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateRoles changes roles of userID on behalf of actor. A super user cannot
// drop their own super_user role.
func (s *UserService) UpdateRoles(ctx context.Context, actor *types.User, userID uuid.UUID, dto types.UserRolesUpdateDto) (*types.User, error) {
	if actor.ID == userID {
		if v, ok := dto.Roles[types.RoleSuperUser]; ok && !v {
			return nil, fmt.Errorf("%w: cannot remove own super_user role", ErrForbidden)
		}
	}
	user, err := s.db.UpdateUserRoles(ctx, userID, dto.Roles)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update roles: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"actor":   actor.ID,
		"user_id": userID,
		"roles":   dto.Roles,
	}).Info("user roles updated")
	return user, nil
}
