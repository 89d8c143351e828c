package kliento

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// StaticTokenProvider serves a fixed token that can never be refreshed.
// Useful for API keys, service accounts and tests.
type StaticTokenProvider struct {
	Token string
}

func (p *StaticTokenProvider) AccessToken() string {
	return p.Token
}

func (p *StaticTokenProvider) RefreshToken(ctx context.Context) error {
	return errors.New("static token cannot be refreshed")
}

// TokenSourceProvider adapts an oauth2.TokenSource to the AuthProvider
// interface. AccessToken serves the cached token without blocking;
// RefreshToken performs the (possibly network-bound) rotation through the
// source. The client's single-flight gate already serializes RefreshToken
// calls, the internal lock only guards the cached token.
type TokenSourceProvider struct {
	source oauth2.TokenSource

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewTokenSourceProvider wraps src. The first request will carry no
// Authorization header until a refresh has populated the cache; call Prime
// to fetch a token up front.
func NewTokenSourceProvider(src oauth2.TokenSource) *TokenSourceProvider {
	return &TokenSourceProvider{source: src}
}

// Prime eagerly fetches an initial token.
func (p *TokenSourceProvider) Prime(ctx context.Context) error {
	return p.RefreshToken(ctx)
}

func (p *TokenSourceProvider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == nil || !p.token.Valid() {
		return ""
	}
	return p.token.AccessToken
}

func (p *TokenSourceProvider) RefreshToken(ctx context.Context) error {
	token, err := p.source.Token()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}
