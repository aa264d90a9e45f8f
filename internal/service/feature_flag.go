package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonschema"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// flagConfigSchema describes the persisted rollout config document.
const flagConfigSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"enabled": {"type": "boolean"},
		"roleBased": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"roles": {"type": "array", "items": {"type": "string", "minLength": 1}},
				"active": {"type": "boolean"}
			}
		},
		"percentage": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"value": {"type": "integer", "minimum": 0, "maximum": 100},
				"active": {"type": "boolean"}
			}
		}
	}
}`

type FeatureFlagService struct {
	db        storage.DatabaseStorage
	cache     *storage.FlagCache
	schema    *jsonschema.Schema
	sanitizer *bluemonday.Policy
	metrics   *metrics.FlagMetrics
	logger    *logrus.Entry
}

func NewFeatureFlagService(
	db storage.DatabaseStorage,
	cache *storage.FlagCache,
	flagMetrics *metrics.FlagMetrics,
	logger *logrus.Logger,
) (*FeatureFlagService, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(flagConfigSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile flag config schema: %w", err)
	}
	return &FeatureFlagService{
		db:        db,
		cache:     cache,
		schema:    schema,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   flagMetrics,
		logger:    logger.WithField("service", "feature_flags"),
	}, nil
}

// DecodeConfig checks raw against the config schema and decodes it.
func (s *FeatureFlagService) DecodeConfig(raw json.RawMessage) (*rollout.Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidFlagConfig)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlagConfig, err)
	}
	if res := s.schema.Validate(doc); !res.IsValid() {
		msgs := make([]string, 0, len(res.Errors))
		for keyword, e := range res.Errors {
			msgs = append(msgs, keyword+": "+e.Error())
		}
		sort.Strings(msgs)
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlagConfig, strings.Join(msgs, "; "))
	}

	var cfg rollout.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlagConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlagConfig, err)
	}
	return &cfg, nil
}

func (s *FeatureFlagService) List(ctx context.Context) ([]types.FeatureFlag, error) {
	if flags, ok := s.cache.All(); ok {
		s.metrics.RecordCacheLookup(true)
		return flags, nil
	}
	s.metrics.RecordCacheLookup(false)

	flags, err := s.db.ListFeatureFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature flags: %w", err)
	}
	s.cache.SetAll(flags)
	return flags, nil
}

func (s *FeatureFlagService) Get(ctx context.Context, name string) (*types.FeatureFlag, error) {
	if flag, ok := s.cache.Get(name); ok {
		s.metrics.RecordCacheLookup(true)
		return flag, nil
	}
	s.metrics.RecordCacheLookup(false)

	flag, err := s.db.GetFeatureFlag(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get feature flag: %w", err)
	}
	s.cache.Set(*flag)
	return flag, nil
}

func (s *FeatureFlagService) Create(ctx context.Context, dto types.FeatureFlagCreateDto, owner uuid.UUID) (*types.FeatureFlag, error) {
	cfg, err := s.DecodeConfig(dto.Config)
	if err != nil {
		return nil, err
	}

	flag, err := s.db.CreateFeatureFlag(ctx, types.FeatureFlag{
		Name:        strings.ToLower(dto.Name),
		Title:       s.sanitizer.Sanitize(dto.Title),
		Description: s.sanitizer.Sanitize(dto.Description),
		Config:      cfg,
		Owner:       &owner,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrFlagExists
		}
		return nil, fmt.Errorf("failed to create feature flag: %w", err)
	}

	s.cache.Invalidate(flag.Name)
	s.logger.WithFields(logrus.Fields{
		"flag":  flag.Name,
		"owner": owner,
	}).Info("feature flag created")
	return flag, nil
}

func (s *FeatureFlagService) Update(ctx context.Context, name string, dto types.FeatureFlagUpdateDto) (*types.FeatureFlag, error) {
	flag, err := s.db.GetFeatureFlag(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get feature flag: %w", err)
	}

	if dto.Title != nil {
		flag.Title = s.sanitizer.Sanitize(*dto.Title)
	}
	if dto.Description != nil {
		flag.Description = s.sanitizer.Sanitize(*dto.Description)
	}
	if len(dto.Config) > 0 {
		cfg, err := s.DecodeConfig(dto.Config)
		if err != nil {
			return nil, err
		}
		flag.Config = cfg
	}
	if dto.Launched != nil {
		switch {
		case *dto.Launched && flag.LaunchedAt == nil:
			now := time.Now().UTC()
			flag.LaunchedAt = &now
		case !*dto.Launched:
			flag.LaunchedAt = nil
		}
	}

	updated, err := s.db.UpdateFeatureFlag(ctx, *flag)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to update feature flag: %w", err)
	}
	s.cache.Invalidate(name)
	return updated, nil
}

func (s *FeatureFlagService) Delete(ctx context.Context, name string) error {
	if err := s.db.DeleteFeatureFlag(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrFlagNotFound
		}
		return fmt.Errorf("failed to delete feature flag: %w", err)
	}
	s.cache.Invalidate(name)
	return nil
}

// Evaluate decides one flag for user. Engine errors are counted and returned.
func (s *FeatureFlagService) Evaluate(ctx context.Context, evaluator *rollout.Evaluator, name string, user *types.User) (types.FeatureFlagStatus, error) {
	flag, err := s.Get(ctx, name)
	if err != nil {
		return types.FeatureFlagStatus{}, err
	}
	return s.evaluate(evaluator, *flag, user)
}

// EvaluateAll decides every flag for user. The first engine error aborts the
// whole evaluation.
func (s *FeatureFlagService) EvaluateAll(ctx context.Context, evaluator *rollout.Evaluator, user *types.User) ([]types.FeatureFlagStatus, error) {
	flags, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.FeatureFlagStatus, 0, len(flags))
	for _, flag := range flags {
		status, err := s.evaluate(evaluator, flag, user)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// IsEnabled is Evaluate reduced to the boolean. Unknown flags are disabled.
func (s *FeatureFlagService) IsEnabled(ctx context.Context, evaluator *rollout.Evaluator, name string, user *types.User) (bool, error) {
	status, err := s.Evaluate(ctx, evaluator, name, user)
	if errors.Is(err, ErrFlagNotFound) {
		return false, nil
	}
	return status.Enabled, err
}

func (s *FeatureFlagService) evaluate(evaluator *rollout.Evaluator, flag types.FeatureFlag, user *types.User) (types.FeatureFlagStatus, error) {
	decision, err := evaluator.Evaluate(flag.Config, user.RolloutContext())
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, rollout.ErrMissingConfiguration):
			reason = "missing_configuration"
		case errors.Is(err, rollout.ErrInvalidConfiguration):
			reason = "invalid_configuration"
		}
		s.metrics.RecordEvaluationError(flag.Name, reason)
		s.logger.WithError(err).WithField("flag", flag.Name).Error("failed to evaluate feature flag")
		return types.FeatureFlagStatus{}, fmt.Errorf("evaluate %s: %w", flag.Name, err)
	}

	s.metrics.RecordEvaluation(flag.Name, string(decision.Strategy), decision.Enabled)
	return types.FeatureFlagStatus{
		Name:    flag.Name,
		Enabled: decision.Enabled,
		Reason:  string(decision.Strategy),
	}, nil
}
