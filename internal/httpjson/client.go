// Package httpjson is the JSON-over-HTTP client shared by external provider integrations.
//
// Every call is rate limited per host, runs through the provider's circuit breaker
// and is retried with exponential backoff. 429 and 5xx responses are retried;
// other 4xx responses fail immediately.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/breaker"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/ratelimit"
	"solana-token-trader/internal/retry"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, body)
}

// Retryable reports whether the status may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client calls a single provider's API.
type Client struct {
	provider string
	baseURL  string
	client   *http.Client
	header   http.Header
	policy   retry.Policy
	breakers *breaker.Manager
	limiter  *ratelimit.Limiter
	logger   zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithBreakers routes calls through the provider's circuit breaker.
func WithBreakers(m *breaker.Manager) Option {
	return func(c *Client) {
		c.breakers = m
	}
}

// WithLimiter rate limits calls per host.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: DefaultTimeout},
		header:   make(http.Header),
		policy:   retry.DefaultPolicy(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("provider", provider).Logger()
	return c
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.provider
}

// Request describes one API call.
type Request struct {
	Op     string      // operation label for metrics and logs
	Method string      // defaults to GET
	Path   string      // appended to the base URL
	Query  url.Values  // optional query string
	Body   interface{} // JSON-encoded when non-nil
	Header http.Header // per-request headers
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, op, path string, body, out interface{}) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodPost, Path: path, Body: body}, out)
}

// Do performs req with rate limiting, circuit breaking and retries.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	u, err := url.Parse(c.baseURL + req.Path)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	start := time.Now()
	err = retry.Do(ctx, c.policy, func() error {
		return c.attempt(ctx, u, req, payload, out)
	}, func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Str("op", req.Op).Dur("wait", wait).Msg("retrying request")
	})
	observability.RecordProviderCall(c.provider, req.Op, time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.provider, req.Op, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, u *url.URL, req Request, payload []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return retry.Permanent(err)
	}

	if c.breakers == nil {
		err := c.once(ctx, u, req, payload, out)
		if isPermanent(err) {
			return retry.Permanent(err)
		}
		return err
	}

	// Client errors are the caller's fault and must not trip the breaker.
	var permanent error
	err := c.breakers.Execute(c.provider, func() error {
		err := c.once(ctx, u, req, payload, out)
		if isPermanent(err) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return retry.Permanent(permanent)
	}
	if errors.Is(err, breaker.ErrOpen) {
		return retry.Permanent(err)
	}
	return err
}

func (c *Client) once(ctx context.Context, u *url.URL, req Request, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "unmarshal response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Retryable()
	}
	return false
}
