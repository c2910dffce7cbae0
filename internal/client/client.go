package client

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"sync/atomic"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/arendondiosa/siigo-go/internal/auth"
	"github.com/arendondiosa/siigo-go/internal/http"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
)

// Client implements the siigo.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       siigo.Logger
	closed       atomic.Bool

	// Resource clients
	customers *CustomersClient
	webhooks  *WebhooksClient
}

// createTokenManager builds the token manager that authenticates against the
// /auth endpoint with the configured credentials.
func createTokenManager(config *siigo.Config, pooled *nethttp.Client) auth.TokenManager {
	var logger siigo.Logger
	if config.Logger != nil && config.Debug {
		logger = config.Logger
	}

	return auth.NewSiigoTokenManager(&auth.Config{
		BaseURL:    config.BaseURL,
		Username:   config.Username,
		AccessKey:  config.AccessKey,
		PartnerID:  config.PartnerID,
		UserAgent:  config.UserAgent,
		Timeout:    config.Timeout,
		Margin:     config.TokenMargin,
		HTTPClient: pooled,
		Logger:     logger,
	})
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *siigo.Config, pooled *nethttp.Client) []http.Option {
	httpOpts := []http.Option{
		http.WithHTTPClient(pooled),
		http.WithTimeout(config.Timeout),
		http.WithRetryConfig(config.MaxRetries, config.BackoffBase, config.BackoffMax),
		http.WithPartnerID(config.PartnerID),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(config.RateLimit, config.RateBurst))
	}

	return httpOpts
}

// New creates a new Siigo API client. The config is validated and copied, so
// later changes by the caller have no effect.
func New(_ context.Context, config *siigo.Config) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := config.WithDefaults()

	// One pool serves authentication and API calls.
	pooled := cfg.HTTPClient
	if pooled == nil {
		pooled = cleanhttp.DefaultPooledClient()
	}

	tokenManager := createTokenManager(cfg, pooled)
	httpClient := http.NewClient(cfg.BaseURL, tokenManager, createHTTPClientOptions(cfg, pooled)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      cfg.BaseURL,
		logger:       cfg.Logger,
	}

	// Initialize resource clients
	client.initializeResourceClients()

	return client, nil
}

// Customers implements siigo.Client.Customers.
func (c *Client) Customers() siigo.CustomersClient {
	return c.customers
}

// Webhooks implements siigo.Client.Webhooks.
func (c *Client) Webhooks() siigo.WebhooksClient {
	return c.webhooks
}

// GetToken returns a valid access token from the token manager.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", &siigo.ClientClosedError{Op: "get token"}
	}

	if c.tokenManager == nil {
		return "", ErrNoTokenManagerConfigured
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// Close releases the pooled connections. Calls after the first are no-ops.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	if c.logger != nil {
		c.logger.Debug("Closing client", map[string]interface{}{"base_url": c.baseURL})
	}

	err := c.httpClient.Close()
	if err != nil {
		return fmt.Errorf("closing transport: %w", err)
	}

	return nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.customers = NewCustomersClient(c.httpClient)
	c.webhooks = NewWebhooksClient(c.httpClient)
}

var _ siigo.Client = (*Client)(nil)
