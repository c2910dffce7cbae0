package siigoclient

import (
	"context"
	"fmt"

	"github.com/arendondiosa/siigo-go/internal/client"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// New creates a new Siigo API client. The config is validated and copied;
// later changes to it do not affect the client. No network call is made
// until the first operation.
func New(ctx context.Context, config *siigo.Config) (siigo.Client, error) {
	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithCredentials creates a client for the production API with default
// settings.
func NewWithCredentials(ctx context.Context, username, accessKey, partnerID string) (siigo.Client, error) {
	return New(ctx, &siigo.Config{
		Username:  username,
		AccessKey: accessKey,
		PartnerID: partnerID,
	})
}

// NewFromEnv creates a client configured from SIIGO_* environment variables
// and the YAML file named by SIIGO_CONFIG, if any.
func NewFromEnv(ctx context.Context) (siigo.Client, error) {
	config, err := LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return New(ctx, config)
}
