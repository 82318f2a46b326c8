package client

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// idempotentMethods may be retried after a transient failure.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// IdempotencyKeyHeader marks a POST as safe to replay.
const IdempotencyKeyHeader = "Idempotency-Key"

// retryAllowed decides whether a transient failure of r may be retried.
// Non-idempotent requests are only replayed when they are known to be free
// of side effects or carry an idempotency key, unless the client is
// configured to retry everything.
func (c *Client) retryAllowed(r *request) bool {
	if c.cfg.RetryNonIdempotent {
		return true
	}
	return idempotentMethods[r.method] || r.safe || r.idempotencyKey != ""
}

// backoff returns the delay before retry n (1-based): InitialBackoff doubled
// per attempt, plus uniform jitter in [0, MaxJitter).
func (c *Client) backoff(n int) time.Duration {
	wait := c.cfg.InitialBackoff << (n - 1)
	if c.cfg.MaxJitter > 0 {
		wait += time.Duration(rand.Int64N(int64(c.cfg.MaxJitter)))
	}
	return wait
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewBreaker creates the circuit breaker guarding API calls. Only transient
// failures count against it: 4xx responses are successful round trips and
// a cancelled caller says nothing about the server.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}
