package client

import (
	"errors"
	"time"

	internalhttp "github.com/arendondiosa/siigo-go/internal/http"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// Test static errors.
var (
	ErrTestSomeError = errors.New("some error")
)

// NewTestClient creates a client without authentication whose transport
// retries with millisecond backoff. Extra options override the defaults.
func NewTestClient(baseURL string, opts ...internalhttp.Option) *Client {
	httpOpts := append([]internalhttp.Option{
		internalhttp.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond),
	}, opts...)

	// Create HTTP client without token manager for testing
	httpClient := internalhttp.NewClient(baseURL, nil, httpOpts...)

	client := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     siigo.NoopLogger{},
	}

	// Initialize resource clients
	client.initializeResourceClients()

	return client
}
