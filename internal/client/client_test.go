package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/arendondiosa/siigo-go/internal/client"
	"github.com/arendondiosa/siigo-go/internal/siigotest"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// newClient builds a client against srv and closes it when the test ends.
func newClient(t *testing.T, srv *siigotest.Server) *Client {
	t.Helper()

	client, err := New(context.Background(), srv.Config())
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, siigo.ErrConfigRequired)
	})

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &siigo.Config{AccessKey: "key", PartnerID: "partner"})
		require.ErrorIs(t, err, siigo.ErrUsernameRequired)
	})

	t.Run("rejects negative retries", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &siigo.Config{
			Username:   "user",
			AccessKey:  "key",
			PartnerID:  "partner",
			MaxRetries: -1,
		})
		require.ErrorIs(t, err, siigo.ErrInvalidRetryMax)
	})

	t.Run("does not authenticate eagerly", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		client := newClient(t, srv)
		assert.NotNil(t, client.Customers())
		assert.NotNil(t, client.Webhooks())
		assert.Equal(t, 0, srv.AuthCalls())
	})

	t.Run("copies the config", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		config := srv.Config()
		client, err := New(context.Background(), config)
		require.NoError(t, err)

		defer func() { _ = client.Close() }()

		config.AccessKey = "changed"

		_, err = client.GetToken(context.Background())
		require.NoError(t, err)
	})
}

func TestClient_GetToken(t *testing.T) {
	t.Parallel()

	t.Run("reuses the cached token", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer(siigotest.WithCustomers(siigotest.NewCustomers(1)...))
		defer srv.Close()

		client := newClient(t, srv)

		first, err := client.GetToken(context.Background())
		require.NoError(t, err)

		_, err = client.Customers().Get(context.Background(), "c-1")
		require.NoError(t, err)

		second, err := client.GetToken(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, srv.AuthCalls())
	})

	t.Run("token shorter lived than the margin", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer(
			siigotest.WithCustomers(siigotest.NewCustomers(1)...),
			siigotest.WithTokenLifetime(30),
		)
		defer srv.Close()

		client := newClient(t, srv)

		for range 5 {
			_, err := client.Customers().Get(context.Background(), "c-1")
			require.NoError(t, err)
		}

		assert.Equal(t, 1, srv.AuthCalls())
	})

	t.Run("concurrent callers share one authentication", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		client := newClient(t, srv)

		var wg sync.WaitGroup

		tokens := make([]string, 10)
		errs := make([]error, 10)

		for i := range 10 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				tokens[i], errs[i] = client.GetToken(context.Background())
			}()
		}

		wg.Wait()

		for i := range 10 {
			require.NoError(t, errs[i])
			assert.Equal(t, tokens[0], tokens[i])
		}

		assert.Equal(t, 1, srv.AuthCalls())
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		config := srv.Config()
		config.AccessKey = "wrong"

		client, err := New(context.Background(), config)
		require.NoError(t, err)

		defer func() { _ = client.Close() }()

		_, err = client.GetToken(context.Background())
		require.Error(t, err)

		var authErr *siigo.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 401, authErr.StatusCode)
		assert.True(t, siigo.IsUnauthorized(err))
	})
}

func TestClient_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := siigotest.NewServer(siigotest.WithCustomers(siigotest.NewCustomers(1)...))
	defer srv.Close()

	client := newClient(t, srv)

	_, err := client.Customers().Get(context.Background(), "c-1")
	require.NoError(t, err)

	srv.RevokeTokens()

	customer, err := client.Customers().Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", customer.ID)

	assert.Equal(t, 2, srv.AuthCalls())
	assert.Equal(t, 3, srv.Calls("GET /v1/customers/c-1"))
}

func TestClient_Retries(t *testing.T) {
	t.Parallel()

	t.Run("exhausted retries surface a server error", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer(siigotest.WithCustomers(siigotest.NewCustomers(1)...))
		defer srv.Close()

		client := newClient(t, srv)

		srv.FailNext(500, 500, 500)

		_, err := client.Customers().Get(context.Background(), "c-1")
		require.Error(t, err)

		var serverErr *siigo.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, 500, serverErr.StatusCode)
		assert.Equal(t, 3, serverErr.Attempts)
		assert.True(t, siigo.IsRetryable(err))
		assert.Equal(t, 3, srv.Calls("GET /v1/customers/c-1"))
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer(siigotest.WithCustomers(siigotest.NewCustomers(1)...))
		defer srv.Close()

		client := newClient(t, srv)

		srv.FailNext(503)

		customer, err := client.Customers().Get(context.Background(), "c-1")
		require.NoError(t, err)
		assert.Equal(t, "c-1", customer.ID)
		assert.Equal(t, 2, srv.Calls("GET /v1/customers/c-1"))
	})

	t.Run("create without idempotency key is not retried", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		client := newClient(t, srv)

		srv.FailNext(500)

		_, err := client.Customers().Create(context.Background(), siigotest.NewCustomerRequest("900123"))
		require.Error(t, err)

		var serverErr *siigo.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, 1, srv.Calls("POST /v1/customers"))
		assert.Empty(t, srv.Customers())
	})

	t.Run("create with idempotency key is retried", func(t *testing.T) {
		t.Parallel()

		srv := siigotest.NewServer()
		defer srv.Close()

		client := newClient(t, srv)

		srv.FailNext(500)

		customer, err := client.Customers().Create(
			context.Background(),
			siigotest.NewCustomerRequest("900123"),
			siigo.WithIdempotencyKey(siigo.NewIdempotencyKey()),
		)
		require.NoError(t, err)
		assert.Equal(t, "900123", customer.Identification)
		assert.Equal(t, 2, srv.Calls("POST /v1/customers"))
	})
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	srv := siigotest.NewServer(siigotest.WithCustomers(siigotest.NewCustomers(3)...))
	defer srv.Close()

	client, err := New(context.Background(), srv.Config())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	ctx := context.Background()

	operations := map[string]func() error{
		"customers list": func() error {
			_, err := client.Customers().List(ctx, nil).All()
			return err
		},
		"customers list page": func() error {
			_, err := client.Customers().ListPage(ctx, nil)
			return err
		},
		"customers get": func() error {
			_, err := client.Customers().Get(ctx, "c-1")
			return err
		},
		"customers get without id": func() error {
			_, err := client.Customers().Get(ctx, "")
			return err
		},
		"customers create": func() error {
			_, err := client.Customers().Create(ctx, siigotest.NewCustomerRequest("1"))
			return err
		},
		"customers update": func() error {
			_, err := client.Customers().Update(ctx, "c-1", siigotest.NewCustomerRequest("1"))
			return err
		},
		"customers delete": func() error {
			return client.Customers().Delete(ctx, "c-1")
		},
		"webhooks list": func() error {
			_, err := client.Webhooks().List(ctx)
			return err
		},
		"webhooks get by topic": func() error {
			_, err := client.Webhooks().GetByTopic(ctx, siigo.WebhookStockUpdate)
			return err
		},
		"webhooks select": func() error {
			_, err := client.Webhooks().Select(ctx, siigo.WebhookStockUpdate)
			return err
		},
		"webhooks create": func() error {
			_, err := client.Webhooks().Create(ctx, siigo.WebhookStockUpdate, "https://example.com/hook")
			return err
		},
		"webhooks upsert": func() error {
			_, err := client.Webhooks().Upsert(ctx, siigo.WebhookStockUpdate, "https://example.com/hook")
			return err
		},
		"webhooks delete": func() error {
			return client.Webhooks().Delete(ctx, "w-1")
		},
		"get token": func() error {
			_, err := client.GetToken(ctx)
			return err
		},
	}

	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)

			var closedErr *siigo.ClientClosedError
			assert.ErrorAs(t, err, &closedErr)
			assert.True(t, errors.Is(err, siigo.ErrClientClosed))
		})
	}

	assert.Equal(t, 0, srv.APICalls())
	assert.Equal(t, 0, srv.AuthCalls())
}
