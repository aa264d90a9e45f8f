package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// Claims is the session token payload.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// GithubOAuth is the GitHub side of sign in.
type GithubOAuth interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchUser(ctx context.Context, accessToken string) (*types.GithubProfile, error)
}

type AuthService struct {
	jwtSecret     []byte
	sessionTTL    time.Duration
	refreshWindow time.Duration
	db            storage.DatabaseStorage
	github        GithubOAuth
	logger        *logrus.Entry
	now           func() time.Time
}

func NewAuthService(
	secret string,
	sessionTTL, refreshWindow time.Duration,
	db storage.DatabaseStorage,
	github GithubOAuth,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		jwtSecret:     []byte(secret),
		sessionTTL:    sessionTTL,
		refreshWindow: refreshWindow,
		db:            db,
		github:        github,
		logger:        logger.WithField("service", "auth"),
		now:           time.Now,
	}
}

func (a *AuthService) SessionTTL() time.Duration {
	return a.sessionTTL
}

// GenerateToken issues a session token for userID.
func (a *AuthService) GenerateToken(userID uuid.UUID) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken verifies the signature of tokenStr. An expired but otherwise
// valid token returns its claims together with jwt.ErrTokenExpired.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, a.keyFunc,
		jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.UserID != "" {
			// the signature still has to hold for a refresh
			if _, verr := jwt.ParseWithClaims(tokenStr, &Claims{}, a.keyFunc, jwt.WithoutClaimsValidation()); verr == nil {
				return claims, jwt.ErrTokenExpired
			}
		}
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return claims, nil
}

func (a *AuthService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return a.jwtSecret, nil
}

// Authenticate resolves a session token to its user. When the token expired
// less than the refresh window ago a replacement token is returned as well.
func (a *AuthService) Authenticate(ctx context.Context, tokenStr string) (*types.User, string, error) {
	var refreshed string
	claims, err := a.ValidateToken(tokenStr)
	if errors.Is(err, jwt.ErrTokenExpired) {
		if a.now().Sub(claims.ExpiresAt.Time) > a.refreshWindow {
			return nil, "", fmt.Errorf("%w: session expired", ErrUnauthenticated)
		}
		userID, parseErr := uuid.Parse(claims.UserID)
		if parseErr != nil {
			return nil, "", fmt.Errorf("%w: invalid token subject", ErrUnauthenticated)
		}
		refreshed, err = a.GenerateToken(userID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to refresh token: %w", err)
		}
	} else if err != nil {
		return nil, "", err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid token subject", ErrUnauthenticated)
	}
	user, err := a.db.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if user.HasRole(types.RoleArchived) {
		return nil, "", fmt.Errorf("%w: user is archived", ErrForbidden)
	}
	return user, refreshed, nil
}

// SignInWithGithub completes the OAuth callback: the user is looked up by
// GitHub id and created on first sign in.
func (a *AuthService) SignInWithGithub(ctx context.Context, code string) (*types.User, string, error) {
	accessToken, err := a.github.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	profile, err := a.github.FetchUser(ctx, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch github profile: %w", err)
	}

	githubID := strconv.FormatInt(profile.ID, 10)
	user, err := a.db.FindUserByGithubID(ctx, githubID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		user, err = a.db.CreateUser(ctx, userFromGithub(profile))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create user: %w", err)
		}
		a.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("created user on first sign in")
	case err != nil:
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if user.HasRole(types.RoleArchived) {
		return nil, "", fmt.Errorf("%w: user is archived", ErrForbidden)
	}

	token, err := a.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

func userFromGithub(p *types.GithubProfile) types.UserCreateDto {
	first, last, _ := strings.Cut(strings.TrimSpace(p.Name), " ")
	return types.UserCreateDto{
		Username:      strings.ToLower(p.Login),
		FirstName:     first,
		LastName:      strings.TrimSpace(last),
		Email:         p.Email,
		GithubID:      strconv.FormatInt(p.ID, 10),
		GithubDisplay: p.Name,
		Roles:         map[string]bool{},
	}
}
