// Package http implements the retrying, authenticated transport used by the
// resource clients.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/arendondiosa/siigo-go/internal/auth"
	"github.com/arendondiosa/siigo-go/internal/constants"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// Client is an HTTP client for the Siigo API. It attaches credentials,
// retries transient failures and classifies responses into typed errors.
type Client struct {
	baseURL      string
	partnerID    string
	userAgent    string
	timeout      time.Duration
	httpClient   *http.Client
	retryClient  *retryablehttp.Client
	tokenManager auth.TokenManager
	logger       siigo.Logger
	debug        bool
	limiter      *rate.Limiter
	closed       atomic.Bool

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Request represents an HTTP request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string

	// RetrySafe marks a POST or PATCH as safe to replay after an ambiguous
	// failure.
	RetrySafe bool
	// IdempotencyKey is sent as the Idempotency-Key header and makes the
	// request replayable.
	IdempotencyKey string
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Attempts   int
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger siigo.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the retry budget and the backoff bounds.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retryMax
		c.retryWaitMin = retryWaitMin
		c.retryWaitMax = retryWaitMax
	}
}

// WithHTTPClient reuses the transport of an existing client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPartnerID sets the Partner-Id header.
func WithPartnerID(partnerID string) Option {
	return func(c *Client) {
		c.partnerID = partnerID
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimit limits outgoing attempts to rps per second with the given
// burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil

			return
		}

		if burst < 1 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new HTTP client. A nil token manager sends requests
// without an Authorization header.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		tokenManager: tokenManager,
		retryMax:     constants.DefaultRetryMax,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.retryClient = client.buildRetryClient()

	return client
}

func (c *Client) buildRetryClient() *retryablehttp.Client {
	var httpClient http.Client

	if c.httpClient != nil {
		httpClient = *c.httpClient
	} else {
		httpClient = *cleanhttp.DefaultPooledClient()
	}

	if httpClient.Transport == nil {
		httpClient.Transport = cleanhttp.DefaultPooledTransport()
	}

	if c.limiter != nil {
		httpClient.Transport = &rateLimitedTransport{base: httpClient.Transport, limiter: c.limiter}
	}

	httpClient.Timeout = c.timeout

	var logger interface{}
	if c.logger != nil {
		logger = &leveledLogger{logger: c.logger, debug: c.debug}
	}

	return &retryablehttp.Client{
		HTTPClient:     &httpClient,
		Logger:         logger,
		RetryWaitMin:   c.retryWaitMin,
		RetryWaitMax:   c.retryWaitMax,
		RetryMax:       c.retryMax,
		RequestLogHook: countAttempt,
		CheckRetry:     checkRetry,
		Backoff:        backoff,
		ErrorHandler:   retryablehttp.PassthroughErrorHandler,
	}
}

// Do executes a request. On a non-2xx status the response is returned along
// with the classified error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.closed.Load() {
		return nil, &siigo.ClientClosedError{Op: req.Method + " " + req.Path}
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	resp, token, err := c.send(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokenManager != nil {
		c.log("Warn", "Token rejected, refreshing", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		c.tokenManager.Invalidate(token)

		attempts := resp.Attempts

		resp, _, err = c.send(ctx, req, body)
		if err != nil {
			return nil, err
		}

		resp.Attempts += attempts

		if resp.StatusCode == http.StatusUnauthorized {
			return resp, &siigo.AuthenticationError{
				StatusCode: resp.StatusCode,
				Body:       resp.Body,
				Err:        newClientError(resp),
			}
		}
	}

	return resp, classify(resp)
}

// send performs one logical request, including its retries, with the current
// token. It returns the token it used.
func (c *Client) send(ctx context.Context, req *Request, body []byte) (*Response, string, error) {
	var token string

	if c.tokenManager != nil {
		var err error

		token, err = c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("getting access token: %w", err)
		}
	}

	state := &requestState{replayable: IsReplayable(req)}

	httpReq, err := c.newRequest(withRequestState(ctx, state), req, body, token)
	if err != nil {
		return nil, token, err
	}

	if c.debug {
		c.log("Debug", "HTTP Request", map[string]interface{}{
			"method":     httpReq.Method,
			"url":        httpReq.URL.String(),
			"replayable": state.replayable,
		})
	}

	start := time.Now()

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, token, fmt.Errorf("%s %s: %w", req.Method, req.Path, ctxErr)
		}

		return nil, token, &siigo.TransportError{
			Method:   req.Method,
			Path:     req.Path,
			Attempts: max(state.attempts, 1),
			Err:      err,
		}
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, token, &siigo.TransportError{
			Method:   req.Method,
			Path:     req.Path,
			Attempts: max(state.attempts, 1),
			Err:      fmt.Errorf("reading response body: %w", err),
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		Attempts:   max(state.attempts, 1),
	}

	if c.debug {
		c.log("Debug", "HTTP Response", map[string]interface{}{
			"status":   resp.StatusCode,
			"attempts": resp.Attempts,
			"duration": time.Since(start).String(),
		})
	}

	return resp, token, nil
}

// resolveURL joins path to the base URL. Absolute URLs, such as next-page
// links, are sent as they are but must point at the API host.
func (c *Client) resolveURL(path string) (string, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return c.baseURL + path, nil
	}

	target, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing request URL %q: %w", path, err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", c.baseURL, err)
	}

	if target.Scheme != base.Scheme || !strings.EqualFold(target.Host, base.Host) {
		return "", fmt.Errorf("%w: %s", siigo.ErrForeignURL, path)
	}

	target.RawQuery = ""
	target.Fragment = ""

	return target.String(), nil
}

func (c *Client) newRequest(ctx context.Context, req *Request, body []byte, token string) (*retryablehttp.Request, error) {
	fullURL, err := c.resolveURL(req.Path)
	if err != nil {
		return nil, err
	}

	if encoded := req.Query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", constants.ContentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", constants.ContentTypeJSON)
	}

	if c.partnerID != "" {
		httpReq.Header.Set(constants.HeaderPartnerID, c.partnerID)
	}

	if token != "" {
		httpReq.Header.Set("Authorization", constants.TokenTypeBearer+" "+token)
	}

	if req.IdempotencyKey != "" {
		httpReq.Header.Set(constants.HeaderIdempotencyKey, req.IdempotencyKey)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		return data, nil
	}
}

func classify(resp *Response) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return &siigo.NotFoundError{ClientError: newClientError(resp)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &siigo.ServerError{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Errors:     siigo.ParseResponseError(resp.Body).Errors,
			Attempts:   resp.Attempts,
		}
	default:
		return newClientError(resp)
	}
}

func newClientError(resp *Response) *siigo.ClientError {
	return &siigo.ClientError{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Errors:     siigo.ParseResponseError(resp.Body).Errors,
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// Close marks the client closed and releases idle pooled connections.
// It is safe to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.retryClient.HTTPClient.CloseIdleConnections()

	return nil
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

func (c *Client) log(level, msg string, fields map[string]interface{}) {
	if c.logger == nil {
		return
	}

	switch level {
	case "Debug":
		c.logger.Debug(msg, fields)
	case "Info":
		c.logger.Info(msg, fields)
	case "Warn":
		c.logger.Warn(msg, fields)
	default:
		c.logger.Error(msg, fields)
	}
}

// leveledLogger routes retryablehttp's logging to a siigo.Logger. Its debug
// chatter is only forwarded in debug mode.
type leveledLogger struct {
	logger siigo.Logger
	debug  bool
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug(msg, toFields(keysAndValues))
	}
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		fields[key] = keysAndValues[i+1]
	}

	return fields
}
