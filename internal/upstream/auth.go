package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/huangsam/worktally/internal/contract"
)

// Authenticator signs outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)

	// Refresh renews credentials after a 401. Implementations that cannot
	// renew return an error wrapping contract.ErrUpstreamAuthExpired.
	Refresh(ctx context.Context) error
}

// NoAuth represents no authentication.
type NoAuth struct{}

// Apply does nothing.
func (NoAuth) Apply(*http.Request) {}

// Refresh always fails since there is nothing to renew.
func (NoAuth) Refresh(context.Context) error {
	return fmt.Errorf("%w: no credentials configured", contract.ErrUpstreamAuthExpired)
}

// QueryToken sends a static token as a query parameter.
type QueryToken struct {
	Param string // Query param name (default: token)
	Token string
}

// Apply adds the token to the request query.
func (a QueryToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	param := a.Param
	if param == "" {
		param = "token"
	}
	q := req.URL.Query()
	q.Set(param, a.Token)
	req.URL.RawQuery = q.Encode()
}

// Refresh fails since static tokens cannot be renewed.
func (a QueryToken) Refresh(context.Context) error {
	return fmt.Errorf("%w: static token rejected", contract.ErrUpstreamAuthExpired)
}

// OAuthRefresher sends a bearer token and renews it with the refresh-token grant.
type OAuthRefresher struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
}

// NewOAuthRefresher creates a refresher seeded with the current tokens.
func NewOAuthRefresher(accessToken, refreshToken, clientID, clientSecret, tokenURL string) *OAuthRefresher {
	return &OAuthRefresher{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		HTTPClient:   &http.Client{Timeout: contract.DefaultRequestTimeout},
	}
}

// Apply adds the Bearer token header to the request.
func (a *OAuthRefresher) Apply(req *http.Request) {
	a.mu.RLock()
	token := a.accessToken
	a.mu.RUnlock()
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// AccessToken returns the token currently in use.
func (a *OAuthRefresher) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the refresh token for a new access token.
func (a *OAuthRefresher) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.refreshToken == "" || a.TokenURL == "" {
		return fmt.Errorf("%w: no refresh token configured", contract.ErrUpstreamAuthExpired)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", a.refreshToken)
	if a.ClientID != "" {
		form.Set("client_id", a.ClientID)
	}
	if a.ClientSecret != "" {
		form.Set("client_secret", a.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token request: %w", contract.ErrUpstreamTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read token response: %w", contract.ErrUpstreamTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token refresh returned HTTP %d", contract.ErrUpstreamAuthExpired, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: token refresh returned no access token", contract.ErrUpstreamAuthExpired)
	}
	a.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		a.refreshToken = tok.RefreshToken
	}
	return nil
}
