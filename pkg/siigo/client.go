package siigo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.siigo.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffMax  = 5 * time.Second
	DefaultTokenMargin = 60 * time.Second
)

// CustomersClient manages customers (third parties of type Customer).
type CustomersClient interface {
	List(ctx context.Context, params *QueryParams) *PaginationIterator[Customer]
	ListPage(ctx context.Context, params *QueryParams) (*ListResponse[Customer], error)
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*ListResponse[Customer], error)
	Get(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, req *CustomerCreateRequest, opts ...RequestOption) (*Customer, error)
	Update(ctx context.Context, id string, req *CustomerCreateRequest, opts ...RequestOption) (*Customer, error)
	Delete(ctx context.Context, id string) error
}

// WebhooksClient manages webhook subscriptions.
type WebhooksClient interface {
	List(ctx context.Context) ([]Webhook, error)
	GetByTopic(ctx context.Context, webhookType WebhookType) (*Webhook, error)
	Select(ctx context.Context, webhookType WebhookType) (*Webhook, error)
	Create(ctx context.Context, webhookType WebhookType, url string, opts ...RequestOption) (*Webhook, error)
	Upsert(ctx context.Context, webhookType WebhookType, url string) (*Webhook, error)
	Delete(ctx context.Context, id string) error
}

// Client is the entry point to the Siigo API. It is safe for concurrent use
// and must be closed when no longer needed.
type Client interface {
	Customers() CustomersClient
	Webhooks() WebhooksClient

	// GetToken returns a valid access token, authenticating if needed.
	GetToken(ctx context.Context) (string, error)

	// Close releases pooled connections. It is idempotent; afterwards every
	// operation fails with a *ClientClosedError.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration.
//
// # Credentials
//
// Siigo authenticates with a username and an access key issued for the API
// user, and every call must carry the Partner-Id header naming the
// integration. All three are required.
//
// # Timeouts, retries, and backoff
//
// Timeout bounds a single HTTP attempt and the authentication call. Transient
// failures (network errors, 429 and 5xx other than 501) are retried up to
// MaxRetries times with exponential backoff and full jitter starting at
// BackoffBase and capped at BackoffMax. A Retry-After header on 429 or 503
// overrides the computed delay. Zero values select the defaults; negative
// values are rejected by Validate.
type Config struct {
	// BaseURL: API root, defaults to https://api.siigo.com.
	BaseURL string
	// Username: API user name.
	Username string
	// AccessKey: API access key. Never logged.
	AccessKey string
	// PartnerID: integration name sent as the Partner-Id header.
	PartnerID string
	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// Timeout: per-attempt HTTP timeout. Zero selects DefaultTimeout, so a
	// request can not be sent without a timeout; negative values are
	// rejected.
	Timeout time.Duration
	// MaxRetries: retries after the first attempt. Zero selects
	// DefaultMaxRetries; set DisableRetries to send each request once.
	MaxRetries int
	// DisableRetries: send every request exactly once, overriding MaxRetries.
	DisableRetries bool
	// BackoffBase: first backoff interval.
	BackoffBase time.Duration
	// BackoffMax: cap of a single backoff delay.
	BackoffMax time.Duration
	// TokenMargin: a cached token is refreshed this long before it expires,
	// capped at half the lifetime of the token.
	TokenMargin time.Duration

	// RateLimit: optional client-side limit in requests per second.
	RateLimit float64
	// RateBurst: burst allowed by RateLimit, defaults to 1.
	RateBurst int

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// HTTPClient: optional client whose transport is reused; a pooled client
	// is built when nil.
	HTTPClient *http.Client
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrBaseURLInvalid, c.BaseURL)
		}
	}

	switch {
	case strings.TrimSpace(c.Username) == "":
		return ErrUsernameRequired
	case strings.TrimSpace(c.AccessKey) == "":
		return ErrAccessKeyRequired
	case strings.TrimSpace(c.PartnerID) == "":
		return ErrPartnerIDRequired
	case c.Timeout < 0:
		return ErrInvalidTimeout
	case c.MaxRetries < 0:
		return ErrInvalidRetryMax
	case c.BackoffBase < 0, c.BackoffMax < 0:
		return ErrInvalidBackoff
	case c.TokenMargin < 0:
		return ErrInvalidTokenMargin
	case c.RateLimit < 0, c.RateBurst < 0:
		return ErrInvalidRateLimit
	}

	return nil
}

// WithDefaults returns a copy of the config with zero values replaced by
// defaults and the base URL normalized.
func (c *Config) WithDefaults() *Config {
	cfg := *c

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	if cfg.DisableRetries {
		cfg.MaxRetries = 0
	}

	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}

	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}

	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}

	if cfg.TokenMargin == 0 {
		cfg.TokenMargin = DefaultTokenMargin
	}

	if cfg.RateLimit > 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = 1
	}

	return &cfg
}

// String renders the config with the access key masked.
func (c Config) String() string {
	accessKey := ""
	if c.AccessKey != "" {
		accessKey = "***"
	}

	return fmt.Sprintf(
		"Config{BaseURL:%q Username:%q AccessKey:%q PartnerID:%q Timeout:%s MaxRetries:%d BackoffBase:%s BackoffMax:%s TokenMargin:%s RateLimit:%g Debug:%t}",
		c.BaseURL, c.Username, accessKey, c.PartnerID, c.Timeout, c.MaxRetries, c.BackoffBase, c.BackoffMax, c.TokenMargin, c.RateLimit, c.Debug,
	)
}

// GoString masks the access key under %#v as well.
func (c Config) GoString() string {
	return c.String()
}
