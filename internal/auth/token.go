package auth

import (
	"sync"
	"time"

	"github.com/arendondiosa/siigo-go/internal/constants"
)

// Token is an access token issued by the Siigo identity endpoint.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
	TokenType   string    `json:"token_type,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	ExpiresAt   time.Time `json:"-"`
	// IssuedAt is when the token was requested. It is zero for tokens seeded
	// from outside.
	IssuedAt time.Time `json:"-"`
}

// Valid reports whether the token can still be handed out, keeping the
// default safety margin before expiry.
func (t *Token) Valid() bool {
	return t.ValidWithin(constants.TokenExpirationBuffer)
}

// ValidWithin reports whether the token is present and does not expire within
// margin. A token without a known expiry stays valid until it is rejected.
func (t *Token) ValidWithin(margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(t.effectiveMargin(margin)).Before(t.ExpiresAt)
}

// effectiveMargin caps margin at half the lifetime of an issued token, so a
// token shorter lived than the margin is still reused for a while.
func (t *Token) effectiveMargin(margin time.Duration) time.Duration {
	if t.IssuedAt.IsZero() {
		return margin
	}

	half := max(t.ExpiresAt.Sub(t.IssuedAt)/2, 0)

	return min(margin, half)
}

// TokenStore holds the current token. Readers never observe a partially
// updated token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns a copy of the current token or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil
	}

	token := *s.token

	return &token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == nil {
		s.token = nil

		return
	}

	stored := *token
	s.token = &stored
}

// Clear drops the current token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// ClearIf drops the current token only if it is still accessToken. It reports
// whether the token was dropped.
func (s *TokenStore) ClearIf(accessToken string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil || s.token.AccessToken != accessToken {
		return false
	}

	s.token = nil

	return true
}
