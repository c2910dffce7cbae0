package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sync/singleflight"

	"github.com/arendondiosa/siigo-go/internal/constants"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// TokenManager hands out bearer tokens to the transport.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
	Invalidate(token string)
}

// Config configures a SiigoTokenManager.
type Config struct {
	BaseURL    string
	Username   string
	AccessKey  string
	PartnerID  string
	UserAgent  string
	Timeout    time.Duration
	Margin     time.Duration
	HTTPClient *http.Client
	Logger     siigo.Logger
}

// SiigoTokenManager obtains tokens from the Siigo identity endpoint and
// caches them in memory. At most one authentication call is in flight; every
// concurrent caller shares its result.
type SiigoTokenManager struct {
	config     Config
	httpClient *http.Client
	store      *TokenStore
	group      singleflight.Group
}

type authRequest struct {
	Username  string `json:"username"`
	AccessKey string `json:"access_key"`
}

const flightKey = "token"

// NewSiigoTokenManager creates a token manager. Zero durations select the
// defaults and a nil HTTP client is replaced by a pooled one.
func NewSiigoTokenManager(config *Config) *SiigoTokenManager {
	cfg := *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultBaseURL
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = constants.DefaultHTTPTimeout
	}

	if cfg.Margin == 0 {
		cfg.Margin = constants.TokenExpirationBuffer
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}

	return &SiigoTokenManager{
		config:     cfg,
		httpClient: httpClient,
		store:      NewTokenStore(),
	}
}

// GetToken returns a valid access token, authenticating if the cache is empty
// or the cached token is within the safety margin of its expiry.
func (m *SiigoTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.ValidWithin(m.config.Margin) {
		return token.AccessToken, nil
	}

	token, err := m.obtain(ctx)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken discards the cached token and authenticates again.
func (m *SiigoTokenManager) RefreshToken(ctx context.Context) error {
	m.store.Clear()

	_, err := m.obtain(ctx)

	return err
}

// SetToken seeds the cache. A zero expiresAt means the expiry is unknown.
func (m *SiigoTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken: token,
		TokenType:   constants.TokenTypeBearer,
		ExpiresAt:   expiresAt,
	})
}

// Invalidate drops the cached token if it is still token. Concurrent callers
// rejected with the same token therefore trigger a single refresh.
func (m *SiigoTokenManager) Invalidate(token string) {
	if m.store.ClearIf(token) {
		m.debug("Token invalidated", nil)
	}
}

// TokenExpiry returns the expiry of the cached token, or the zero time.
func (m *SiigoTokenManager) TokenExpiry() time.Time {
	token := m.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

// obtain joins or starts the authentication flight. The flight runs detached
// from the caller's cancellation so other waiters still get a token; the
// caller itself stops waiting as soon as ctx is done.
func (m *SiigoTokenManager) obtain(ctx context.Context) (*Token, error) {
	resultCh := m.group.DoChan(flightKey, func() (interface{}, error) {
		cached := m.store.Get()
		if cached.ValidWithin(m.config.Margin) {
			return cached, nil
		}

		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.Timeout)
		defer cancel()

		token, err := m.authenticate(flightCtx)
		if err != nil {
			return nil, err
		}

		m.store.Set(token)

		return token, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for token: %w", ctx.Err())
	case result := <-resultCh:
		if result.Err != nil {
			return nil, result.Err
		}

		token, ok := result.Val.(*Token)
		if !ok || token == nil {
			return nil, &siigo.AuthenticationError{Err: constants.ErrNoAccessToken}
		}

		return token, nil
	}
}

func (m *SiigoTokenManager) authenticate(ctx context.Context) (*Token, error) {
	payload, err := json.Marshal(authRequest{
		Username:  m.config.Username,
		AccessKey: m.config.AccessKey,
	})
	if err != nil {
		return nil, &siigo.AuthenticationError{Err: fmt.Errorf("encoding credentials: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+constants.AuthPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &siigo.AuthenticationError{Err: fmt.Errorf("creating token request: %w", err)}
	}

	req.Header.Set("Content-Type", constants.ContentTypeJSON)
	req.Header.Set("Accept", constants.ContentTypeJSON)
	req.Header.Set("User-Agent", m.config.UserAgent)
	req.Header.Set(constants.HeaderPartnerID, m.config.PartnerID)

	m.debug("Requesting token", map[string]interface{}{
		"url":      req.URL.String(),
		"username": m.config.Username,
	})

	issuedAt := time.Now()

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &siigo.AuthenticationError{Err: fmt.Errorf("token request failed: %w", err)}
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &siigo.AuthenticationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading token response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &siigo.AuthenticationError{StatusCode: resp.StatusCode, Body: body}
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, &siigo.AuthenticationError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("parsing token response: %w", err),
		}
	}

	if token.AccessToken == "" {
		return nil, &siigo.AuthenticationError{StatusCode: resp.StatusCode, Body: body, Err: constants.ErrNoAccessToken}
	}

	if token.TokenType == "" {
		token.TokenType = constants.TokenTypeBearer
	}

	token.ExpiresAt = m.expiry(&token, issuedAt)
	token.IssuedAt = issuedAt

	fields := map[string]interface{}{"expires_in": token.ExpiresIn}
	if !token.ExpiresAt.IsZero() {
		fields["expires_at"] = token.ExpiresAt.Format(time.RFC3339)
	}

	m.debug("Token obtained", fields)

	return &token, nil
}

// expiry prefers the declared lifetime, then the JWT exp claim. A token with
// neither has no known expiry.
func (m *SiigoTokenManager) expiry(token *Token, issuedAt time.Time) time.Time {
	if token.ExpiresIn > 0 {
		return issuedAt.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	expiresAt, err := ParseJWTExpiry(token.AccessToken)
	if err != nil {
		m.debug("Token expiry unknown", map[string]interface{}{"reason": err.Error()})

		return time.Time{}
	}

	return expiresAt
}

func (m *SiigoTokenManager) debug(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, fields)
	}
}

// ParseJWTExpiry reads the exp claim of a JWT without verifying its
// signature.
func ParseJWTExpiry(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrNoExpirationClaim, err)
	}

	if exp == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return exp.Time, nil
}
