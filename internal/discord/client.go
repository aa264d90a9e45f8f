package discord

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/config"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	tokenTTL       = time.Minute
	tokenIssuer    = "rds-backend"
)

var ErrNotConfigured = errors.New("discord bot is not configured")

// Bot is the surface of the Discord bot service used by handlers and tasks.
type Bot interface {
	CreateRole(ctx context.Context, roleName string) (string, error)
	AddRole(ctx context.Context, discordID, roleID string) error
	RemoveRole(ctx context.Context, discordID, roleID string) error
	GenerateInvite(ctx context.Context, channelID string) (string, error)
	SetNickname(ctx context.Context, discordID, nickname string) error
}

var _ Bot = (*Client)(nil)

type Client struct {
	logger  *logrus.Entry
	// client retries idempotent calls; once is used for calls that create
	// something on the bot side.
	client  *retryablehttp.Client
	once    *retryablehttp.Client
	baseURL string
	key     *rsa.PrivateKey
}

// NewClient parses the PEM encoded RSA key used to sign bot requests.
func NewClient(cfg config.DiscordConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.BotURL == "" || cfg.BotPrivateKey == "" {
		return nil, ErrNotConfigured
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.BotPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot private key: %w", err)
	}

	return &Client{
		logger:  logger.WithField("component", "discord-bot"),
		client:  newHTTPClient(logger, maxRetries),
		once:    newHTTPClient(logger, 0),
		baseURL: strings.TrimSuffix(cfg.BotURL, "/"),
		key:     key,
	}, nil
}

func newHTTPClient(logger *logrus.Logger, retries int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = defaultTimeout
	rc.Logger = logger
	rc.RetryMax = retries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	return rc
}

func (c *Client) signToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	return token.SignedString(c.key)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, c.client, method, path, body, out)
}

// doOnce sends a non-idempotent call without retries so a slow or failing
// bot cannot end up creating the same object twice.
func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, c.once, method, path, body, out)
}

func (c *Client) send(ctx context.Context, client *retryablehttp.Client, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fail to marshal request body: %w", err)
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fail to create request: %w", err)
	}
	token, err := c.signToken()
	if err != nil {
		return fmt.Errorf("fail to sign bot token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fail to call discord bot(%s %s): %w", method, path, err)
	}
	defer c.closer(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(respBody),
			"path":        path,
		}).Error("discord bot call failed")
		return fmt.Errorf("discord bot returned status code %d", resp.StatusCode)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal bot response: %w", err)
	}
	return nil
}

func (c *Client) closer(rc io.Closer) {
	if err := rc.Close(); err != nil {
		c.logger.Errorf("failed to close response body: %s", err)
	}
}

type createRoleRequest struct {
	RoleName    string `json:"rolename"`
	Mentionable bool   `json:"mentionable"`
}

type createRoleResponse struct {
	ID string `json:"id"`
}

// CreateRole creates a guild role and returns its Discord id.
func (c *Client) CreateRole(ctx context.Context, roleName string) (string, error) {
	var res createRoleResponse
	if err := c.doOnce(ctx, http.MethodPost, "/roles/create", createRoleRequest{RoleName: roleName, Mentionable: true}, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", fmt.Errorf("discord bot returned no role id")
	}
	return res.ID, nil
}

type memberRoleRequest struct {
	UserID string `json:"userid"`
	RoleID string `json:"roleid"`
}

func (c *Client) AddRole(ctx context.Context, discordID, roleID string) error {
	return c.do(ctx, http.MethodPut, "/roles/add", memberRoleRequest{UserID: discordID, RoleID: roleID}, nil)
}

func (c *Client) RemoveRole(ctx context.Context, discordID, roleID string) error {
	return c.do(ctx, http.MethodDelete, "/roles", memberRoleRequest{UserID: discordID, RoleID: roleID}, nil)
}

type inviteRequest struct {
	ChannelID string `json:"channelId"`
}

type inviteResponse struct {
	Data struct {
		Code string `json:"code"`
	} `json:"data"`
}

// GenerateInvite creates a single-use invite and returns its URL.
func (c *Client) GenerateInvite(ctx context.Context, channelID string) (string, error) {
	var res inviteResponse
	if err := c.doOnce(ctx, http.MethodPost, "/invite", inviteRequest{ChannelID: channelID}, &res); err != nil {
		return "", err
	}
	if res.Data.Code == "" {
		return "", fmt.Errorf("discord bot returned no invite code")
	}
	return "discord.gg/" + res.Data.Code, nil
}

type nicknameRequest struct {
	DiscordID string `json:"discordId"`
	Nickname  string `json:"username"`
}

func (c *Client) SetNickname(ctx context.Context, discordID, nickname string) error {
	return c.do(ctx, http.MethodPut, "/guild/member", nicknameRequest{DiscordID: discordID, Nickname: nickname}, nil)
}
