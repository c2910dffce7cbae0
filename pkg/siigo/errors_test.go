package siigo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	err := &siigo.APIError{
		Code:    "invalid_reference",
		Message: "The customer does not exist",
	}
	assert.Equal(t, "invalid_reference: The customer does not exist", err.Error())

	err.Detail = "customer.identification"
	assert.Equal(t, "invalid_reference: The customer does not exist (customer.identification)", err.Error())
}

func TestParseResponseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		status    int
		firstCode string
	}{
		{
			name:      "siigo payload",
			body:      `{"Status":400,"Errors":[{"Code":"invalid_type","Message":"The id_type is invalid","Params":["id_type"],"Detail":"Invalid type"}]}`,
			status:    400,
			firstCode: "invalid_type",
		},
		{
			name: "empty body",
			body: "",
		},
		{
			name: "not JSON",
			body: "<html>Bad Gateway</html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := siigo.ParseResponseError([]byte(tt.body))
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.Status)

			if tt.firstCode == "" {
				assert.Nil(t, resp.FirstError())

				return
			}

			require.NotNil(t, resp.FirstError())
			assert.Equal(t, tt.firstCode, resp.FirstError().Code)
			assert.Equal(t, []string{"id_type"}, resp.FirstError().Params)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	apiErrors := []siigo.APIError{{Code: "duplicated", Message: "Customer already exists"}}

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "client error with payload",
			err:      &siigo.ClientError{StatusCode: 400, Errors: apiErrors},
			expected: "siigo: request rejected: 400: duplicated: Customer already exists",
		},
		{
			name:     "client error with raw body",
			err:      &siigo.ClientError{StatusCode: 409, Body: []byte("conflict\n")},
			expected: "siigo: request rejected: 409: conflict",
		},
		{
			name:     "server error",
			err:      &siigo.ServerError{StatusCode: 502, Body: []byte("bad gateway"), Attempts: 4},
			expected: "siigo: server error after 4 attempt(s): 502: bad gateway",
		},
		{
			name:     "transport error",
			err:      &siigo.TransportError{Method: "GET", Path: "/v1/customers", Attempts: 3, Err: context.DeadlineExceeded},
			expected: "siigo: GET /v1/customers failed after 3 attempt(s): context deadline exceeded",
		},
		{
			name:     "authentication error with status",
			err:      &siigo.AuthenticationError{StatusCode: 401, Body: []byte("denied")},
			expected: "siigo: authentication failed: 401: denied",
		},
		{
			name:     "not found lookup",
			err:      siigo.NewNotFoundError("webhook", "STOCK_UPDATE"),
			expected: `siigo: webhook "STOCK_UPDATE" not found`,
		},
		{
			name:     "closed client",
			err:      &siigo.ClientClosedError{Op: "list customers"},
			expected: "siigo: client is closed: list customers",
		},
		{
			name:     "decoding error",
			err:      &siigo.DecodingError{Target: "customer", Err: siigo.ErrUnexpectedEmptyBody},
			expected: "siigo: decoding customer: unexpected empty response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "not found error", err: &siigo.NotFoundError{ClientError: &siigo.ClientError{StatusCode: 404}}, expected: true},
		{name: "local lookup", err: siigo.NewNotFoundError("customer", "1"), expected: true},
		{name: "client error 404", err: &siigo.ClientError{StatusCode: 404}, expected: true},
		{name: "wrapped", err: fmt.Errorf("getting customer: %w", siigo.NewNotFoundError("customer", "1")), expected: true},
		{name: "client error 400", err: &siigo.ClientError{StatusCode: 400}, expected: false},
		{name: "server error", err: &siigo.ServerError{StatusCode: 500}, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, siigo.IsNotFound(tt.err))
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "authentication error", err: &siigo.AuthenticationError{StatusCode: 401}, expected: true},
		{name: "wrapped authentication error", err: fmt.Errorf("failed to get token: %w", &siigo.AuthenticationError{}), expected: true},
		{name: "client error 401", err: &siigo.ClientError{StatusCode: 401}, expected: true},
		{name: "client error 403", err: &siigo.ClientError{StatusCode: 403}, expected: false},
		{name: "validation", err: siigo.NewValidationError(siigo.ErrIDRequired), expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, siigo.IsUnauthorized(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, siigo.IsRetryable(&siigo.TransportError{Err: errors.New("reset")}))
	assert.True(t, siigo.IsRetryable(fmt.Errorf("listing customers: %w", &siigo.ServerError{StatusCode: 503})))
	assert.False(t, siigo.IsRetryable(&siigo.ClientError{StatusCode: 400}))
	assert.False(t, siigo.IsRetryable(&siigo.AuthenticationError{StatusCode: 401}))
	assert.False(t, siigo.IsRetryable(nil))
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := siigo.NewValidationError(siigo.ErrPayloadRequired,
		siigo.FieldError{Field: "name", Rule: "required", Message: "name is required"},
		siigo.FieldError{Field: "phones", Rule: "required", Message: "phones is required"},
	)

	assert.Equal(t, "siigo: invalid payload: name is required; phones is required", err.Error())
	assert.True(t, siigo.IsValidation(err))
	assert.ErrorIs(t, err, siigo.ErrPayloadRequired)

	var clientErr *siigo.ClientError
	assert.ErrorAs(t, err, &clientErr)

	bare := siigo.NewValidationError(siigo.ErrIDRequired)
	assert.Equal(t, "siigo: invalid payload: id is required", bare.Error())
}

func TestClientClosedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("listing: %w", &siigo.ClientClosedError{Op: "list customers"})

	assert.ErrorIs(t, err, siigo.ErrClientClosed)
	assert.NotErrorIs(t, errors.New("other"), siigo.ErrClientClosed)
	assert.Equal(t, "siigo: client is closed", (&siigo.ClientClosedError{}).Error())
}

func TestNotFoundError_Unwrap(t *testing.T) {
	t.Parallel()

	err := siigo.NewNotFoundError("customer", "c-1")

	var clientErr *siigo.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 404, clientErr.StatusCode)
}
