package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type retrying struct {
	inner  Provider
	policy RetryConfig
}

// WithRetry retries rate limits, outages and transport errors with capped
// exponential backoff. A malformed reply is retried once; truncated and
// rejected requests are returned at once.
func WithRetry(p Provider, policy RetryConfig) Provider {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retrying{inner: p, policy: policy}
}

func (r *retrying) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	malformed := 0
	for attempt := 1; ; attempt++ {
		c, err := r.inner.Complete(ctx, p)
		if err == nil {
			return c, nil
		}
		if attempt == r.policy.MaxAttempts || !retryable(err, &malformed) {
			return nil, err
		}

		timer := time.NewTimer(r.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *retrying) Model() string { return r.inner.Model() }

func retryable(err error, malformed *int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Kind {
	case KindRejected, KindTruncated:
		return false
	case KindMalformed:
		*malformed++
		return *malformed == 1
	}
	return true
}

// delay is the wait after the given failed attempt (1-based).
func (r *retrying) delay(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return e.RetryAfter
	}

	d := float64(r.policy.InitialWait)
	for range attempt - 1 {
		d *= r.policy.Multiplier
	}
	if ceiling := float64(r.policy.MaxWait); ceiling > 0 && d > ceiling {
		d = ceiling
	}
	// Jitter within [80%, 120%].
	return time.Duration(d * (0.8 + 0.4*rand.Float64()))
}
