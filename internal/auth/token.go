// Package auth obtains and caches bearer tokens for the ledger API via the
// OAuth2 client-credentials grant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrAuthFailed indicates the token endpoint rejected the grant request. No
// upload can succeed without a credential, so callers treat this as fatal
// for the run.
var ErrAuthFailed = errors.New("authentication failed")

// Config holds the client-credentials settings for the token endpoint.
type Config struct {
	ClientID     string
	ClientSecret string
	// TokenURL is the full grant endpoint, e.g. {baseURL}oauth/token.
	TokenURL string
}

// TokenCache lazily obtains a bearer token and caches it until expiry.
//
// The token endpoint reports lifetime as expires_in seconds-to-live; the
// oauth2 package converts that to an absolute expiry on receipt and Valid()
// treats the token as expired slightly early, so a token is never presented
// right at its deadline. The refresh mutex is held across the grant request:
// concurrent callers finding an expired cache coalesce onto the single
// in-flight refresh instead of each issuing their own grant.
type TokenCache struct {
	grant clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenCache creates an empty cache; the first Token call performs the
// initial grant.
func NewTokenCache(cfg Config) *TokenCache {
	return &TokenCache{
		grant: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			// The ledger's identity provider wants credentials in
			// the form body, not basic auth.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Token returns the cached bearer token value, refreshing it first when
// missing or expired. A grant failure is surfaced as ErrAuthFailed; it is
// never retried here.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	slog.Debug("requesting access token", "token_url", c.grant.TokenURL)
	token, err := c.grant.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	c.token = token
	slog.Debug("access token obtained", "expires_at", token.Expiry)
	return token.AccessToken, nil
}

// Invalidate discards the cached token so the next Token call performs a
// fresh grant. Called after the upload endpoint rejects a credential the
// cache still considered valid.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
}
