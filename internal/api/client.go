// Package api is the HTTP client for the quiz backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultRateLimit = 5
	defaultBurst     = 10
	defaultMaxPages  = 20
	maxBodyBytes     = 8 << 20
)

// TokenSource supplies the bearer token and is told when the server rejects it.
type TokenSource interface {
	CurrentToken() string
	OnUnauthorized()
}

// RetryConfig configures retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry policy used when none is given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// Client talks to the quiz backend.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	limiter  *rate.Limiter
	retry    RetryConfig
	logger   *zap.Logger
	maxPages int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit throttles outbound requests to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
	}
}

// WithRetry sets the retry policy for GET requests.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxPages caps how many pages a listing follows.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(defaultRateLimit, defaultBurst),
		retry:    DefaultRetryConfig(),
		logger:   zap.NewNop(),
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.Named("api")
	hc := *c.http
	hc.Transport = newLoggingTransport(hc.Transport, c.logger)
	c.http = &hc
	return c
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	out         any
	schema      string // payload schema name, empty to skip validation
}

func jsonCall(op, method, path string, in any) (call, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return call{}, fmt.Errorf("encode %s request: %w", op, err)
	}
	return call{op: op, method: method, path: path, body: body, contentType: "application/json"}, nil
}

// do runs cl, retrying GETs on transient failures. Other methods get exactly
// one attempt.
func (c *Client) do(ctx context.Context, cl call) error {
	attempts := 1
	if cl.method == http.MethodGet && c.retry.MaxAttempts > 1 {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for attempt := range attempts {
		err := c.once(ctx, cl)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == attempts-1 {
			break
		}

		wait := c.retry.backoff(attempt, err)
		c.logger.Debug("retrying request",
			zap.String("op", cl.op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return &FetchError{Op: cl.op, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{Op: cl.op, Err: err}
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return &FetchError{Op: cl.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.CurrentToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &FetchError{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			c.tokens.OnUnauthorized()
		}
		return &FetchError{
			Op:         cl.op,
			Status:     resp.StatusCode,
			Message:    errorMessage(raw),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if cl.out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &FetchError{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &FetchError{Op: cl.op, Status: resp.StatusCode, Err: errEmptyPayload}
	}
	if cl.schema != "" {
		if err := validatePayload(cl.schema, env.Data); err != nil {
			return &FetchError{Op: cl.op, Status: resp.StatusCode, Err: err}
		}
	}
	if err := json.Unmarshal(env.Data, cl.out); err != nil {
		return &FetchError{Op: cl.op, Status: resp.StatusCode, Err: fmt.Errorf("decode payload: %w", err)}
	}
	return nil
}

var errEmptyPayload = errors.New("response has no data")

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Message
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
