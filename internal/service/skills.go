package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type SkillService struct {
	db        storage.DatabaseStorage
	sanitizer *bluemonday.Policy
	logger    *logrus.Entry
}

func NewSkillService(db storage.DatabaseStorage, logger *logrus.Logger) *SkillService {
	return &SkillService{
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.WithField("service", "skills"),
	}
}

func (s *SkillService) List(ctx context.Context) ([]types.Skill, error) {
	return s.db.ListSkills(ctx)
}

func (s *SkillService) Create(ctx context.Context, dto types.SkillCreateDto) (*types.Skill, error) {
	name := strings.TrimSpace(s.sanitizer.Sanitize(dto.Name))
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidSkill)
	}
	skill, err := s.db.CreateSkill(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrSkillExists
		}
		return nil, fmt.Errorf("failed to create skill: %w", err)
	}
	return skill, nil
}

// Endorse records endorserID vouching for req.EndorseeID on req.SkillID.
func (s *SkillService) Endorse(ctx context.Context, endorserID uuid.UUID, req types.EndorseRequest) (*types.Endorsement, error) {
	if endorserID == req.EndorseeID {
		return nil, ErrSelfEndorsement
	}
	if _, err := s.db.GetSkill(ctx, req.SkillID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}
	if _, err := s.db.FindUserByID(ctx, req.EndorseeID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find endorsee: %w", err)
	}

	e, err := s.db.CreateEndorsement(ctx, types.Endorsement{
		SkillID:    req.SkillID,
		EndorseeID: req.EndorseeID,
		EndorserID: endorserID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateEndorsement
		}
		return nil, fmt.Errorf("failed to create endorsement: %w", err)
	}
	return e, nil
}

func (s *SkillService) UserSkills(ctx context.Context, userID uuid.UUID) ([]types.UserSkill, error) {
	if _, err := s.db.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return s.db.ListUserSkills(ctx, userID)
}
