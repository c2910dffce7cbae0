//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
	"github.com/arendondiosa/siigo-go/pkg/siigoclient"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	Client *siigo.Config
	// Write enables tests that create and delete resources.
	Write bool
	// WebhookURL receives the subscription created by the write tests.
	WebhookURL string
	err        error
}

// LoadTestConfig loads configuration from SIIGO_* environment variables
func LoadTestConfig() *TestConfig {
	client, err := siigoclient.LoadConfig("")

	return &TestConfig{
		Client:     client,
		Write:      os.Getenv("SIIGO_INTEGRATION_WRITE") == "true",
		WebhookURL: os.Getenv("SIIGO_INTEGRATION_WEBHOOK_URL"),
		err:        err,
	}
}

// SkipIfMissingConfig skips the test when no credentials are configured
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.err != nil {
		t.Skipf("Skipping integration test: %v (set SIIGO_USERNAME, SIIGO_ACCESS_KEY and SIIGO_PARTNER_ID)", config.err)
	}
}

// SkipIfReadOnly skips tests that mutate the account
func (config *TestConfig) SkipIfReadOnly(t *testing.T) {
	t.Helper()

	if !config.Write || config.WebhookURL == "" {
		t.Skip("Skipping write test: set SIIGO_INTEGRATION_WRITE=true and SIIGO_INTEGRATION_WEBHOOK_URL")
	}
}

// GenerateTestName generates a unique name for test resources
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().Unix())
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}

		time.Sleep(time.Second)
	}

	t.Fatalf("Timeout waiting for condition: %s", message)
}
