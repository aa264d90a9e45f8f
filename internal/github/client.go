package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Real-Dev-Squad/website-backend/config"
	"github.com/Real-Dev-Squad/website-backend/internal/libhttp"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

var ErrBadCode = errors.New("github rejected the oauth code")

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Client performs the server side of the GitHub OAuth web flow.
type Client struct {
	clientID     string
	clientSecret string
	oauthURL     string
	apiURL       string
}

func NewClient(cfg config.GithubConfig) *Client {
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		oauthURL:     cfg.OAuthURL,
		apiURL:       strings.TrimSuffix(cfg.APIURL, "/"),
	}
}

// ExchangeCode trades the callback code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	res, err := libhttp.Call[tokenResponse](ctx, http.MethodPost, c.oauthURL, nil, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to exchange github code: %w", err)
	}
	// GitHub reports a bad code with 200 and an error field.
	if res.Error != "" || res.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrBadCode, res.ErrorDesc)
	}
	return res.AccessToken, nil
}

func (c *Client) FetchUser(ctx context.Context, accessToken string) (*types.GithubProfile, error) {
	profile, err := libhttp.Call[types.GithubProfile](ctx, http.MethodGet, c.apiURL+"/user", map[string]string{
		"Authorization": "Bearer " + accessToken,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch github user: %w", err)
	}
	return &profile, nil
}
