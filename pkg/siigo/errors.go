package siigo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a single entry of the Siigo error payload.
type APIError struct {
	Code    string   `json:"Code"              yaml:"code"`
	Message string   `json:"Message"           yaml:"message"`
	Params  []string `json:"Params,omitempty"  yaml:"params,omitempty"`
	Detail  string   `json:"Detail,omitempty"  yaml:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ResponseError is the error body Siigo returns on 4xx and 5xx responses.
type ResponseError struct {
	Status int        `json:"Status"`
	Errors []APIError `json:"Errors"`
}

// FirstError returns the first error or nil.
func (e *ResponseError) FirstError() *APIError {
	if e != nil && len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// ParseResponseError parses an error response body. Bodies that are not a
// Siigo error payload yield an empty ResponseError and no error.
func ParseResponseError(data []byte) *ResponseError {
	var errResp ResponseError

	if len(data) == 0 {
		return &errResp
	}

	err := json.Unmarshal(data, &errResp)
	if err != nil {
		return &ResponseError{}
	}

	return &errResp
}

func describe(status int, body []byte, apiErrors []APIError) string {
	if len(apiErrors) == 1 {
		return fmt.Sprintf("%d: %s", status, apiErrors[0].Error())
	}

	if len(apiErrors) > 1 {
		parts := make([]string, 0, len(apiErrors))
		for i := range apiErrors {
			parts = append(parts, apiErrors[i].Error())
		}

		return fmt.Sprintf("%d: %s", status, strings.Join(parts, "; "))
	}

	return fmt.Sprintf("%d: %s", status, strings.TrimSpace(string(body)))
}

// AuthenticationError reports a failure to obtain a token from the identity
// endpoint, or a request that was still rejected after a token refresh.
type AuthenticationError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("siigo: authentication failed: %v", e.Err)
	}

	return "siigo: authentication failed: " + describe(e.StatusCode, e.Body, nil)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransportError reports a network or timeout failure that persisted after
// all retries.
type TransportError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("siigo: %s %s failed after %d attempt(s): %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError reports a 5xx response that persisted after all retries.
type ServerError struct {
	StatusCode int
	Body       []byte
	Errors     []APIError
	Attempts   int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("siigo: server error after %d attempt(s): %s", e.Attempts, describe(e.StatusCode, e.Body, e.Errors))
}

// ClientError reports a non-retryable 4xx response.
type ClientError struct {
	StatusCode int
	Body       []byte
	Errors     []APIError
}

func (e *ClientError) Error() string {
	return "siigo: request rejected: " + describe(e.StatusCode, e.Body, e.Errors)
}

// FirstError returns the first parsed API error or nil.
func (e *ClientError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// NotFoundError is a ClientError for a 404 response or a missing lookup.
type NotFoundError struct {
	*ClientError

	Resource string
	ID       string
}

// NewNotFoundError builds a NotFoundError for a lookup that matched nothing
// locally, such as a webhook topic with no subscription.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		ClientError: &ClientError{StatusCode: http.StatusNotFound},
		Resource:    resource,
		ID:          id,
	}
}

func (e *NotFoundError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("siigo: %s %q not found", e.Resource, e.ID)
	}

	return e.ClientError.Error()
}

func (e *NotFoundError) Unwrap() error {
	return e.ClientError
}

// FieldError describes one invalid field of a payload.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError is a ClientError raised locally, before any network call,
// when a payload fails validation.
type ValidationError struct {
	*ClientError

	Fields []FieldError
	Err    error
}

// NewValidationError builds a ValidationError from field failures.
func NewValidationError(err error, fields ...FieldError) *ValidationError {
	return &ValidationError{
		ClientError: &ClientError{},
		Fields:      fields,
		Err:         err,
	}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("siigo: invalid payload: %v", e.Err)
	}

	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Message)
	}

	return "siigo: invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.ClientError}
	}

	return []error{e.ClientError, e.Err}
}

// DecodingError reports a successful response whose body does not match the
// expected model.
type DecodingError struct {
	Target string
	Body   []byte
	Err    error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("siigo: decoding %s: %v", e.Target, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// ErrClientClosed matches every ClientClosedError via errors.Is.
var ErrClientClosed = errors.New("siigo: client is closed")

// ClientClosedError is returned by every operation on a closed client.
type ClientClosedError struct {
	Op string
}

func (e *ClientClosedError) Error() string {
	if e.Op == "" {
		return ErrClientClosed.Error()
	}

	return fmt.Sprintf("%s: %s", ErrClientClosed.Error(), e.Op)
}

// Is reports whether target is ErrClientClosed.
func (e *ClientClosedError) Is(target error) bool {
	return target == ErrClientClosed
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrBaseURLInvalid      = errors.New("base URL must be an absolute http(s) URL")
	ErrForeignURL          = errors.New("URL does not point at the API host")
	ErrUsernameRequired    = errors.New("username is required")
	ErrAccessKeyRequired   = errors.New("access key is required")
	ErrPartnerIDRequired   = errors.New("partner ID is required")
	ErrInvalidTimeout      = errors.New("timeout must not be negative")
	ErrInvalidRetryMax     = errors.New("max retries must not be negative")
	ErrInvalidBackoff      = errors.New("backoff intervals must not be negative")
	ErrInvalidTokenMargin  = errors.New("token margin must not be negative")
	ErrInvalidRateLimit    = errors.New("rate limit must not be negative")
	ErrIDRequired          = errors.New("id is required")
	ErrPayloadRequired     = errors.New("payload is required")
	ErrInvalidWebhookType  = errors.New("invalid webhook type")
	ErrInvalidWebhookURL   = errors.New("invalid URL, it must start with 'http://' or 'https://'")
	ErrUnknownIDType       = errors.New("unknown identification type")
	ErrNoMoreItems         = errors.New("no more items")
	ErrUnexpectedEmptyBody = errors.New("unexpected empty response body")
)

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsValidation checks if the error was raised by local payload validation.
func IsValidation(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

// IsRetryable reports whether the failure was of a class the transport
// retries: exhausted network failures and exhausted server errors.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var serverErr *ServerError

	return errors.As(err, &serverErr)
}
