package http

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/arendondiosa/siigo-go/internal/constants"
)

// requestState travels in the request context so the retry hooks, which
// only see the *http.Request, know the policy of the call and can report how
// many attempts were made.
type requestState struct {
	replayable bool
	attempts   int
}

type requestStateKey struct{}

func withRequestState(ctx context.Context, state *requestState) context.Context {
	return context.WithValue(ctx, requestStateKey{}, state)
}

func requestStateFrom(ctx context.Context) *requestState {
	state, ok := ctx.Value(requestStateKey{}).(*requestState)
	if !ok {
		return &requestState{replayable: true}
	}

	return state
}

// IsReplayable reports whether a request may be sent again after an
// ambiguous failure, where the server may already have processed it.
func IsReplayable(req *Request) bool {
	if req.RetrySafe || req.IdempotencyKey != "" {
		return true
	}

	switch strings.ToUpper(req.Method) {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// checkRetry decides whether an attempt is retried. Network errors that
// happened before the request was sent, and 429 responses, are retried for
// every method. Other network errors and 5xx responses (except 501) are
// retried only for replayable requests.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	state := requestStateFrom(ctx)

	if err != nil {
		if isPreSendError(err) {
			return true, nil
		}

		// Unrecoverable errors such as invalid schemes or bad certificates.
		retryable, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if !retryable {
			return false, nil
		}

		return state.replayable, nil
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode == http.StatusNotImplemented:
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return state.replayable, nil
	default:
		return false, nil
	}
}

// isPreSendError reports failures that prove the request never reached the
// server: DNS resolution and connection establishment.
func isPreSendError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED)
}

// backoff computes the wait before retry attemptNum (zero based): a random
// delay in [0, min(maxWait, minWait*2^attemptNum)]. A Retry-After header on
// 429 or 503 replaces the computed delay, still capped at maxWait.
func backoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		wait, ok := parseRetryAfter(resp.Header.Get(constants.HeaderRetryAfter), time.Now())
		if ok {
			return min(wait, maxWait)
		}
	}

	ceiling := float64(minWait) * math.Pow(constants.ExponentialBackoffBase, float64(attemptNum))
	if math.IsInf(ceiling, 0) || math.IsNaN(ceiling) || ceiling > float64(maxWait) {
		ceiling = float64(maxWait)
	}

	if ceiling <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(ceiling) + 1)) //nolint:gosec // jitter does not need a CSPRNG
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	seconds, err := strconv.Atoi(value)
	if err == nil {
		if seconds < 0 {
			return 0, false
		}

		return time.Duration(seconds) * time.Second, true
	}

	date, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}

	wait := date.Sub(now)
	if wait < 0 {
		return 0, true
	}

	return wait, true
}

// countAttempt records the attempt number in the request state. It runs as
// the retryablehttp request hook before every attempt.
func countAttempt(_ retryablehttp.Logger, req *http.Request, attemptNum int) {
	state := requestStateFrom(req.Context())
	state.attempts = attemptNum + 1
}

// rateLimitedTransport waits on a token bucket before every attempt.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	err := t.limiter.Wait(req.Context())
	if err != nil {
		return nil, err
	}

	return t.base.RoundTrip(req)
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *rateLimitedTransport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}

	if closer, ok := t.base.(closeIdler); ok {
		closer.CloseIdleConnections()
	}
}
