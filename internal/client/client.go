// Package client talks to the Splitwiser REST API.
//
// Every request is signed with the session's access token. A 401 triggers a
// single shared refresh, after which the request is replayed once; network
// errors and 5xx responses are retried with jittered exponential backoff
// when the request is safe to replay. Responses are normalized into the
// models package types at this boundary.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/http2"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splitwiser-client/internal/auth"
	"github.com/mmynk/splitwiser-client/internal/metrics"
	"github.com/mmynk/splitwiser-client/internal/middleware"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// Config holds the client's connection and retry settings.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxJitter      time.Duration

	// RetryNonIdempotent replays every request after a transient failure,
	// including POSTs that may have been applied by the server.
	RetryNonIdempotent bool

	// IdempotencyKeys attaches an Idempotency-Key to expense creation, which
	// makes it eligible for transient retries.
	IdempotencyKeys bool
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 300 * time.Millisecond,
		MaxJitter:      100 * time.Millisecond,
	}
}

// SessionState is the token manager's lifecycle state.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateRefreshing
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records request, retry and refresh metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	tokens  *auth.TokenStore
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *gobreaker.CircuitBreaker

	refreshGroup singleflight.Group
	refreshing   atomic.Bool

	mu    sync.Mutex
	hooks []func(error)
}

// New creates a client for cfg.BaseURL using tokens as the session state.
func New(cfg Config, tokens *auth.TokenStore, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:    cfg,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = auth.NewTokenStore(nil, c.logger)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker("splitwiser-api")
	}
	if c.http == nil {
		c.http = c.defaultHTTPClient()
	}
	return c
}

func (c *Client) defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(transport); err != nil {
		c.logger.Warn("HTTP/2 unavailable, using HTTP/1.1", "error", err)
	}
	return &http.Client{
		Transport: middleware.Logging(transport, c.logger),
		Timeout:   c.cfg.Timeout,
	}
}

// Tokens returns the session's token store.
func (c *Client) Tokens() *auth.TokenStore {
	return c.tokens
}

// SignRequest adds the current access token to req.
func (c *Client) SignRequest(req *http.Request) {
	middleware.SignRequest(req, c.tokens)
}

// OnUnauthorized registers fn to be called when the session cannot be
// recovered by a refresh. The tokens have already been cleared when fn runs.
func (c *Client) OnUnauthorized(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// State reports the session state. A session holding only a refresh token,
// as after a restart, counts as authenticated: the next request refreshes.
func (c *Client) State() SessionState {
	if c.refreshing.Load() {
		return StateRefreshing
	}
	if c.tokens.Tokens().Empty() {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// request describes one API call.
type request struct {
	method string
	path   string
	route  string // path template used as the metrics label
	body   any

	// public requests are never signed and skip the refresh path.
	public bool
	// safe marks a POST without side effects, so it may be retried.
	safe           bool
	idempotencyKey string
}

// response is a completed round trip below the 5xx range.
type response struct {
	status int
	body   []byte
}

// fixedToken signs with the token captured before sending, so a 401 can be
// compared against the token that caused it.
type fixedToken string

func (t fixedToken) AccessToken() string { return string(t) }

// do runs r through the refresh and retry policies and returns the body.
func (c *Client) do(ctx context.Context, r *request) ([]byte, error) {
	ctx = middleware.WithRequestID(ctx)

	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return nil, fmt.Errorf("failed to encode %s %s: %w", r.method, r.route, err)
		}
	}

	retried := false
	for {
		token := ""
		if !r.public {
			token = c.tokens.AccessToken()
		}

		body, err := c.send(ctx, r, payload, token)
		if err == nil {
			return body, nil
		}

		var se *StatusError
		if r.public || retried || !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
			return nil, err
		}
		retried = true
		c.metrics.RecordRetry("unauthorized")

		if rerr := c.refreshAfter(ctx, token); rerr != nil {
			return nil, &SessionExpiredError{Cause: rerr, Response: se}
		}
	}
}

// send performs r, retrying transient failures when allowed.
func (c *Client) send(ctx context.Context, r *request, payload []byte, token string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := c.attempt(ctx, r, payload, token)
		if err == nil {
			return body, nil
		}

		reason, transient := transientReason(err)
		if !transient || attempt >= c.cfg.MaxRetries || !c.retryAllowed(r) {
			return nil, err
		}

		wait := c.backoff(attempt + 1)
		c.logger.Warn("Retrying request after transient failure",
			"method", r.method,
			"path", r.route,
			"retry", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
		c.metrics.RecordRetry(reason)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// attempt performs a single round trip through the circuit breaker.
func (c *Client) attempt(ctx context.Context, r *request, payload []byte, token string) ([]byte, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (any, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, c.cfg.BaseURL+r.path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.idempotencyKey != "" {
			req.Header.Set(IdempotencyKeyHeader, r.idempotencyKey)
		}
		middleware.SignRequest(req, fixedToken(token))

		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &NetworkError{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
		}
		if resp.StatusCode >= 500 {
			return nil, c.statusError(r, resp.StatusCode, data)
		}
		return &response{status: resp.StatusCode, body: data}, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &NetworkError{Err: err}
		}
		code := "error"
		var se *StatusError
		if errors.As(err, &se) {
			code = strconv.Itoa(se.StatusCode)
		}
		c.metrics.ObserveRequest(r.route, r.method, code, time.Since(start))
		return nil, err
	}

	resp := result.(*response)
	c.metrics.ObserveRequest(r.route, r.method, strconv.Itoa(resp.status), time.Since(start))
	if resp.status >= 400 {
		return nil, c.statusError(r, resp.status, resp.body)
	}
	return resp.body, nil
}

func (c *Client) statusError(r *request, status int, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &StatusError{Method: r.method, Path: r.route, StatusCode: status, Body: msg}
}

// transientReason classifies err for the retry policy. An open circuit
// breaker is not transient: the call fails fast.
func transientReason(err error) (string, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		if errors.Is(ne.Err, gobreaker.ErrOpenState) || errors.Is(ne.Err, gobreaker.ErrTooManyRequests) {
			return "", false
		}
		return "network", true
	}
	var se *StatusError
	if errors.As(err, &se) && se.Transient() {
		return "server", true
	}
	return "", false
}

const refreshKey = "refresh"

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share one network call. On failure the session is cleared and
// the OnUnauthorized hooks run.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		return nil, c.refresh(context.WithoutCancel(ctx))
	})
	return err
}

// refreshAfter recovers from a 401 caused by failed. If the access token
// changed since that request was signed, another caller already refreshed
// and the new token is reused.
func (c *Client) refreshAfter(ctx context.Context, failed string) error {
	if current := c.tokens.AccessToken(); current != "" && current != failed {
		return nil
	}
	_, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		if current := c.tokens.AccessToken(); current != "" && current != failed {
			return nil, nil
		}
		// The refresh outlives the caller that started it: other requests
		// are waiting on its result.
		return nil, c.refresh(context.WithoutCancel(ctx))
	})
	return err
}

// refresh exchanges the refresh token. On failure the session is cleared and
// the OnUnauthorized hooks run, once per session: a caller that arrives after
// the session is already gone gets the error without notifying again.
func (c *Client) refresh(ctx context.Context) error {
	if c.tokens.Tokens().Empty() {
		return ErrNoRefreshToken
	}

	c.refreshing.Store(true)
	defer c.refreshing.Store(false)

	err := c.exchangeRefreshToken(ctx)
	if err == nil {
		c.metrics.RecordRefresh("success")
		c.logger.Debug("Access token refreshed")
		return nil
	}

	c.metrics.RecordRefresh("failure")
	c.logger.Warn("Token refresh failed, ending session", "error", err)
	if cerr := c.tokens.Clear(ctx); cerr != nil {
		c.logger.Error("Failed to clear session", "error", cerr)
	}

	c.mu.Lock()
	hooks := append([]func(error){}, c.hooks...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
	return err
}
