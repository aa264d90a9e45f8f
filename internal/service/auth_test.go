package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const testSecret = "test-secret"

var testLogger = logrus.New()

type fakeGithub struct {
	profile *types.GithubProfile
	err     error
}

func (f *fakeGithub) ExchangeCode(_ context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + code, nil
}

func (f *fakeGithub) FetchUser(_ context.Context, _ string) (*types.GithubProfile, error) {
	return f.profile, nil
}

func signExpired(t *testing.T, secret string, userID uuid.UUID, expiredFor time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &service.Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-expiredFor)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-expiredFor - time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestGenerateAndValidateToken(t *testing.T) {
	auth := service.NewAuthService(testSecret, time.Hour, time.Hour, nil, nil, testLogger)
	userID := uuid.New()

	token, err := auth.GenerateToken(userID)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)

	other := service.NewAuthService("other-secret", time.Hour, time.Hour, nil, nil, testLogger)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestValidateTokenExpiredKeepsClaims(t *testing.T) {
	auth := service.NewAuthService(testSecret, time.Hour, time.Hour, nil, nil, testLogger)
	userID := uuid.New()

	claims, err := auth.ValidateToken(signExpired(t, testSecret, userID, time.Minute))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, userID.String(), claims.UserID)

	// a forged expired token must not be refreshable
	_, err = auth.ValidateToken(signExpired(t, "forged", userID, time.Minute))
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New(), Username: "ankush", Roles: map[string]bool{}}
	archived := &types.User{ID: uuid.New(), Username: "gone", Roles: map[string]bool{types.RoleArchived: true}}

	db := new(MockDatabaseStorage)
	db.On("FindUserByID", mock.Anything, user.ID).Return(user, nil)
	db.On("FindUserByID", mock.Anything, archived.ID).Return(archived, nil)
	auth := service.NewAuthService(testSecret, time.Hour, 24*time.Hour, db, nil, testLogger)

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.GenerateToken(user.ID)
		require.NoError(t, err)
		got, refreshed, err := auth.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Empty(t, refreshed)
	})

	t.Run("expired inside refresh window", func(t *testing.T) {
		got, refreshed, err := auth.Authenticate(ctx, signExpired(t, testSecret, user.ID, time.Hour))
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		require.NotEmpty(t, refreshed)
		claims, err := auth.ValidateToken(refreshed)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
	})

	t.Run("expired past refresh window", func(t *testing.T) {
		_, _, err := auth.Authenticate(ctx, signExpired(t, testSecret, user.ID, 48*time.Hour))
		assert.ErrorIs(t, err, service.ErrUnauthenticated)
	})

	t.Run("archived user", func(t *testing.T) {
		token, err := auth.GenerateToken(archived.ID)
		require.NoError(t, err)
		_, _, err = auth.Authenticate(ctx, token)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})
}

func TestSignInWithGithub(t *testing.T) {
	ctx := context.Background()
	profile := &types.GithubProfile{ID: 42, Login: "Ankush", Name: "Ankush Dharkar", Email: "a@rds.dev"}

	t.Run("creates user on first sign in", func(t *testing.T) {
		db := new(MockDatabaseStorage)
		created := &types.User{ID: uuid.New(), Username: "ankush", Roles: map[string]bool{}}
		db.On("FindUserByGithubID", mock.Anything, "42").Return(nil, storage.ErrNotFound)
		db.On("CreateUser", mock.Anything, types.UserCreateDto{
			Username:      "ankush",
			FirstName:     "Ankush",
			LastName:      "Dharkar",
			Email:         "a@rds.dev",
			GithubID:      "42",
			GithubDisplay: "Ankush Dharkar",
			Roles:         map[string]bool{},
		}).Return(created, nil)

		auth := service.NewAuthService(testSecret, time.Hour, time.Hour, db, &fakeGithub{profile: profile}, testLogger)
		user, token, err := auth.SignInWithGithub(ctx, "code")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
		assert.NotEmpty(t, token)
		db.AssertExpectations(t)
	})

	t.Run("existing user", func(t *testing.T) {
		db := new(MockDatabaseStorage)
		existing := &types.User{ID: uuid.New(), Username: "ankush", Roles: map[string]bool{}}
		db.On("FindUserByGithubID", mock.Anything, "42").Return(existing, nil)

		auth := service.NewAuthService(testSecret, time.Hour, time.Hour, db, &fakeGithub{profile: profile}, testLogger)
		user, _, err := auth.SignInWithGithub(ctx, "code")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
		db.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("bad code", func(t *testing.T) {
		auth := service.NewAuthService(testSecret, time.Hour, time.Hour, new(MockDatabaseStorage), &fakeGithub{err: errors.New("bad_verification_code")}, testLogger)
		_, _, err := auth.SignInWithGithub(ctx, "code")
		assert.ErrorIs(t, err, service.ErrUnauthenticated)
	})
}
