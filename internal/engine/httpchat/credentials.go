package httpchat

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// Credentials supplies the bearer token for chat-completion requests. Only
// refreshable credentials participate in the single 401 retry; static keys
// fail terminally on the first 401.
type Credentials interface {
	// Authorization returns the current bearer token.
	Authorization(ctx context.Context) (string, error)

	// CanRefresh reports whether ForceRefresh is meaningful.
	CanRefresh() bool

	// ForceRefresh discards the current access token and obtains a new one.
	ForceRefresh(ctx context.Context) (string, error)
}

// StaticKey is a plain API key.
type StaticKey string

func (k StaticKey) Authorization(ctx context.Context) (string, error) {
	if k == "" {
		return "", fmt.Errorf("api key is empty")
	}
	return string(k), nil
}

func (k StaticKey) CanRefresh() bool { return false }

func (k StaticKey) ForceRefresh(ctx context.Context) (string, error) {
	return "", fmt.Errorf("static keys cannot be refreshed")
}

// OAuthCredentials wraps an oauth2 refresh-token grant. The access token is
// cached until it expires or a 401 forces a refresh.
type OAuthCredentials struct {
	cfg *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// NewOAuthCredentials creates refreshable credentials from an oauth2 config
// and the current token (at minimum a refresh token).
func NewOAuthCredentials(cfg *oauth2.Config, token *oauth2.Token) *OAuthCredentials {
	return &OAuthCredentials{cfg: cfg, token: token}
}

func (c *OAuthCredentials) Authorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Valid() {
		return c.token.AccessToken, nil
	}
	return c.refreshLocked(ctx)
}

func (c *OAuthCredentials) CanRefresh() bool { return true }

// ForceRefresh drops the cached access token and exchanges the refresh token
// for a new one, regardless of the cached token's reported validity.
func (c *OAuthCredentials) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token.AccessToken = ""
	return c.refreshLocked(ctx)
}

func (c *OAuthCredentials) refreshLocked(ctx context.Context) (string, error) {
	src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = c.token.RefreshToken
	}
	c.token = fresh
	return fresh.AccessToken, nil
}
