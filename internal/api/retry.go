package api

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// shouldRetry reports whether a failed GET is worth another attempt.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Temporary()
	}
	return false
}

// backoff computes the wait before the next attempt.
func (r RetryConfig) backoff(attempt int, err error) time.Duration {
	var fe *FetchError
	if errors.As(err, &fe) && fe.RetryAfter > 0 {
		if r.MaxWait > 0 && fe.RetryAfter > r.MaxWait {
			return r.MaxWait
		}
		return fe.RetryAfter
	}

	mult := r.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := float64(r.InitialWait) * math.Pow(mult, float64(attempt))
	if r.MaxWait > 0 && wait > float64(r.MaxWait) {
		wait = float64(r.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
