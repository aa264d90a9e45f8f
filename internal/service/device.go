package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const (
	// DeviceAuthTTL bounds how long a QR-code login stays pending.
	DeviceAuthTTL = 5 * time.Minute

	deviceAuthPrefix     = "qr-auth:device:"
	deviceAuthUserPrefix = "qr-auth:user:"
)

type TokenIssuer interface {
	GenerateToken(userID uuid.UUID) (string, error)
}

// DeviceService runs the QR-code login: the mobile app registers a pending
// request, the signed-in user approves it from the website, and the app polls
// until it receives a session token.
type DeviceService struct {
	kv     storage.KeyValueStore
	db     storage.DatabaseStorage
	tokens TokenIssuer
	logger *logrus.Entry
	now    func() time.Time
}

func NewDeviceService(kv storage.KeyValueStore, db storage.DatabaseStorage, tokens TokenIssuer, logger *logrus.Logger) *DeviceService {
	return &DeviceService{
		kv:     kv,
		db:     db,
		tokens: tokens,
		logger: logger.WithField("service", "device"),
		now:    time.Now,
	}
}

// Register stores a NOT_INIT request. A newer request for the same user
// replaces the previous one; a device id still pending for another user is
// refused.
func (s *DeviceService) Register(ctx context.Context, req types.DeviceAuthRequest) (*types.DeviceAuth, error) {
	if _, err := s.db.FindUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	existing, err := s.load(ctx, req.DeviceID)
	switch {
	case err == nil && existing.UserID != req.UserID:
		return nil, ErrDeviceIDInUse
	case err != nil && !errors.Is(err, ErrDeviceAuthNotFound):
		return nil, err
	}

	if prev, err := s.kv.Get(ctx, deviceAuthUserPrefix+req.UserID.String()); err == nil && prev != req.DeviceID {
		if err := s.kv.Delete(ctx, deviceAuthPrefix+prev); err != nil {
			s.logger.WithError(err).Warn("failed to drop previous device authorization")
		}
	}

	auth := types.DeviceAuth{
		UserID:              req.UserID,
		DeviceID:            req.DeviceID,
		DeviceInfo:          req.DeviceInfo,
		AuthorizationStatus: types.AuthStatusNotInit,
		CreatedAt:           s.now().UTC(),
	}
	if err := storage.SetJSON(ctx, s.kv, deviceAuthPrefix+req.DeviceID, auth, DeviceAuthTTL); err != nil {
		return nil, fmt.Errorf("failed to store device authorization: %w", err)
	}
	if err := s.kv.Set(ctx, deviceAuthUserPrefix+req.UserID.String(), req.DeviceID, DeviceAuthTTL); err != nil {
		return nil, fmt.Errorf("failed to index device authorization: %w", err)
	}
	return &auth, nil
}

// UpdateStatus lets userID approve or reject their own pending request.
func (s *DeviceService) UpdateStatus(ctx context.Context, userID uuid.UUID, status types.AuthorizationStatus) (*types.DeviceAuth, error) {
	if status != types.AuthStatusAuthorized && status != types.AuthStatusRejected {
		return nil, ErrInvalidAuthStatus
	}

	deviceID, err := s.kv.Get(ctx, deviceAuthUserPrefix+userID.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDeviceAuthNotFound
		}
		return nil, err
	}
	auth, err := s.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if auth.UserID != userID {
		return nil, ErrDeviceAuthNotFound
	}

	auth.AuthorizationStatus = status
	remaining := DeviceAuthTTL - s.now().Sub(auth.CreatedAt)
	if remaining <= 0 {
		return nil, ErrDeviceAuthNotFound
	}
	if err := storage.SetJSON(ctx, s.kv, deviceAuthPrefix+deviceID, auth, remaining); err != nil {
		return nil, fmt.Errorf("failed to store device authorization: %w", err)
	}

	if status == types.AuthStatusAuthorized {
		err := s.db.SaveDevice(ctx, types.Device{
			UserID:       auth.UserID,
			DeviceID:     auth.DeviceID,
			DeviceInfo:   auth.DeviceInfo,
			AuthorizedAt: s.now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save device: %w", err)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"device_id": deviceID,
		"status":    status,
	}).Info("device authorization updated")
	return auth, nil
}

// Poll is called by the device. Only an AUTHORIZED request yields a token, and
// only once.
func (s *DeviceService) Poll(ctx context.Context, deviceID string) (string, error) {
	auth, err := s.load(ctx, deviceID)
	if err != nil {
		return "", err
	}

	switch auth.AuthorizationStatus {
	case types.AuthStatusNotInit:
		return "", ErrDeviceAuthPending
	case types.AuthStatusRejected:
		s.forget(ctx, auth)
		return "", ErrDeviceAuthRejected
	case types.AuthStatusAuthorized:
		token, err := s.tokens.GenerateToken(auth.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		s.forget(ctx, auth)
		return token, nil
	default:
		return "", ErrInvalidAuthStatus
	}
}

func (s *DeviceService) ListDevices(ctx context.Context, userID uuid.UUID) ([]types.Device, error) {
	return s.db.ListDevices(ctx, userID)
}

func (s *DeviceService) load(ctx context.Context, deviceID string) (*types.DeviceAuth, error) {
	auth, err := storage.GetJSON[types.DeviceAuth](ctx, s.kv, deviceAuthPrefix+deviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDeviceAuthNotFound
		}
		return nil, err
	}
	return auth, nil
}

func (s *DeviceService) forget(ctx context.Context, auth *types.DeviceAuth) {
	for _, key := range []string{deviceAuthPrefix + auth.DeviceID, deviceAuthUserPrefix + auth.UserID.String()} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("failed to delete device authorization")
		}
	}
}
