package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsReplayable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      *Request
		expected bool
	}{
		{name: "GET", req: &Request{Method: "GET"}, expected: true},
		{name: "HEAD", req: &Request{Method: "HEAD"}, expected: true},
		{name: "PUT", req: &Request{Method: "PUT"}, expected: true},
		{name: "DELETE", req: &Request{Method: "DELETE"}, expected: true},
		{name: "OPTIONS", req: &Request{Method: "OPTIONS"}, expected: true},
		{name: "POST", req: &Request{Method: "POST"}, expected: false},
		{name: "PATCH", req: &Request{Method: "PATCH"}, expected: false},
		{name: "POST with key", req: &Request{Method: "POST", IdempotencyKey: "k"}, expected: true},
		{name: "POST retry safe", req: &Request{Method: "POST", RetrySafe: true}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsReplayable(tt.req))
		})
	}
}

func TestCheckRetry(t *testing.T) {
	t.Parallel()

	replayable := withRequestState(context.Background(), &requestState{replayable: true})
	unsafe := withRequestState(context.Background(), &requestState{replayable: false})

	response := func(status int) *http.Response {
		return &http.Response{StatusCode: status, Header: http.Header{}}
	}

	dialErr := &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	readErr := &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}}
	dnsErr := &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}}

	tests := []struct {
		name     string
		ctx      context.Context //nolint:containedctx // table input
		resp     *http.Response
		err      error
		expected bool
	}{
		{name: "2xx", ctx: replayable, resp: response(200), expected: false},
		{name: "4xx", ctx: replayable, resp: response(400), expected: false},
		{name: "401", ctx: replayable, resp: response(401), expected: false},
		{name: "429 unsafe", ctx: unsafe, resp: response(429), expected: true},
		{name: "500 replayable", ctx: replayable, resp: response(500), expected: true},
		{name: "500 unsafe", ctx: unsafe, resp: response(500), expected: false},
		{name: "501", ctx: replayable, resp: response(501), expected: false},
		{name: "503 replayable", ctx: replayable, resp: response(503), expected: true},
		{name: "dial error unsafe", ctx: unsafe, err: dialErr, expected: true},
		{name: "dns error unsafe", ctx: unsafe, err: dnsErr, expected: true},
		{name: "read error unsafe", ctx: unsafe, err: readErr, expected: false},
		{name: "read error replayable", ctx: replayable, err: readErr, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			retry, err := checkRetry(tt.ctx, tt.resp, tt.err)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, retry)
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(replayable)
		cancel()

		retry, err := checkRetry(ctx, response(500), nil)
		assert.False(t, retry)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	t.Run("stays within the exponential ceiling", func(t *testing.T) {
		t.Parallel()

		minWait := 100 * time.Millisecond
		maxWait := time.Second

		for attempt := range 8 {
			ceiling := min(minWait*time.Duration(1<<attempt), maxWait)

			for range 50 {
				wait := backoff(minWait, maxWait, attempt, nil)
				assert.GreaterOrEqual(t, wait, time.Duration(0))
				assert.LessOrEqual(t, wait, ceiling)
			}
		}
	})

	t.Run("large attempt numbers are capped", func(t *testing.T) {
		t.Parallel()

		wait := backoff(time.Second, 5*time.Second, 4000, nil)
		assert.LessOrEqual(t, wait, 5*time.Second)
	})

	t.Run("Retry-After seconds on 429", func(t *testing.T) {
		t.Parallel()

		resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"3"}}}
		assert.Equal(t, 3*time.Second, backoff(time.Millisecond, 10*time.Second, 0, resp))
	})

	t.Run("Retry-After is capped", func(t *testing.T) {
		t.Parallel()

		resp := &http.Response{StatusCode: http.StatusServiceUnavailable, Header: http.Header{"Retry-After": []string{"120"}}}
		assert.Equal(t, 5*time.Second, backoff(time.Millisecond, 5*time.Second, 0, resp))
	})

	t.Run("Retry-After ignored on 500", func(t *testing.T) {
		t.Parallel()

		resp := &http.Response{StatusCode: http.StatusInternalServerError, Header: http.Header{"Retry-After": []string{"3"}}}
		assert.LessOrEqual(t, backoff(time.Millisecond, 10*time.Second, 0, resp), time.Millisecond)
	})
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Duration
		ok       bool
	}{
		{name: "empty", value: "", ok: false},
		{name: "seconds", value: "7", expected: 7 * time.Second, ok: true},
		{name: "negative", value: "-1", ok: false},
		{name: "garbage", value: "soon", ok: false},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), expected: 30 * time.Second, ok: true},
		{name: "past date", value: now.Add(-time.Minute).Format(http.TimeFormat), expected: 0, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wait, ok := parseRetryAfter(tt.value, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, wait)
		})
	}
}
