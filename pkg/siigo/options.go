package siigo

import "github.com/google/uuid"

// RequestOptions carries per-call settings for write operations.
type RequestOptions struct {
	IdempotencyKey string
	RetrySafe      bool
}

// RequestOption configures a single write call.
type RequestOption func(*RequestOptions)

// WithIdempotencyKey sends an Idempotency-Key header, which lets the
// transport retry the write after an ambiguous failure.
func WithIdempotencyKey(key string) RequestOption {
	return func(o *RequestOptions) {
		o.IdempotencyKey = key
	}
}

// WithRetrySafe marks a write as safe to replay without an idempotency key.
func WithRetrySafe() RequestOption {
	return func(o *RequestOptions) {
		o.RetrySafe = true
	}
}

// NewIdempotencyKey returns a fresh random key.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// ApplyRequestOptions folds opts into a RequestOptions value.
func ApplyRequestOptions(opts ...RequestOption) RequestOptions {
	var options RequestOptions

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}
