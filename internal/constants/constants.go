package constants

import "time"

// API endpoints and paths.
const (
	// DefaultBaseURL is the production Siigo API endpoint.
	DefaultBaseURL = "https://api.siigo.com"

	// AuthPath is the identity endpoint that issues bearer tokens.
	AuthPath = "/auth"

	// APIPathCustomers is the customers collection.
	APIPathCustomers = "/v1/customers"

	// APIPathWebhooks is the webhooks collection.
	APIPathWebhooks = "/v1/webhooks"

	// DefaultUserAgent is sent when the config does not override it.
	DefaultUserAgent = "siigo-go/0.1.0 (+https://github.com/arendondiosa/siigo-go)"
)

// HTTP headers used on every call.
const (
	// HeaderPartnerID identifies the integrating partner to Siigo.
	HeaderPartnerID = "Partner-Id"

	// HeaderIdempotencyKey marks a write as safe to replay.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderRetryAfter is the server-provided retry hint.
	HeaderRetryAfter = "Retry-After"

	// ContentTypeJSON is the media type of every request and response body.
	ContentTypeJSON = "application/json"
)

// HTTP timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for a single HTTP attempt.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries after the first attempt.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the base interval of the exponential backoff.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax caps a single backoff delay.
	DefaultRetryWaitMax = 5 * time.Second

	// ExponentialBackoffBase is the multiplier between consecutive waits.
	ExponentialBackoffBase = 2
)

// Token lifecycle.
const (
	// TokenExpirationBuffer is how long before expiry a token stops being handed out.
	TokenExpirationBuffer = 60 * time.Second

	// TokenTypeBearer is the only token type Siigo issues.
	TokenTypeBearer = "Bearer"
)
