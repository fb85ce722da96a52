package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new access token without user
// interaction.
type Refresher interface {
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// configRefresher drives the silent refresh through the oauth2 endpoint of
// the configured client.
type configRefresher struct {
	config *oauth2.Config
}

// NewRefresher creates a Refresher backed by the given OAuth2 config.
func NewRefresher(config *oauth2.Config) Refresher {
	return &configRefresher{config: config}
}

func (r *configRefresher) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	// Seed the source with an already-expired token so it refreshes
	// immediately instead of reusing the stale access token.
	seed := &oauth2.Token{
		RefreshToken: token.RefreshToken,
		Expiry:       time.Unix(1, 0),
	}

	fresh, err := r.config.TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	// Google only rotates the refresh token occasionally; carry the old one
	// forward when the response omits it.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}

	return fresh, nil
}
