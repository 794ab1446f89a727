package lock

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy defines the behavior for retrying failed acquisition attempts,
// including exponential backoff and jitter.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier determines how backoff increases between retries.
	BackoffMultiplier float64

	// JitterFactor adds randomness to backoff timing (0.0 to 1.0).
	JitterFactor float64
}

// DefaultRetryPolicy returns the default policy: a single attempt with no
// retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{}
}

// RetryAttempts returns a policy that retries n times with exponential
// backoff and a little jitter, suitable for waiting out a short-lived
// holder.
func RetryAttempts(n int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        n,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
	}
}

// backoff computes the delay before the given retry attempt (1-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	b := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		b *= p.BackoffMultiplier
	}
	if p.MaxBackoff > 0 && b > float64(p.MaxBackoff) {
		b = float64(p.MaxBackoff)
	}

	if p.JitterFactor > 0 {
		jitter := (rand.Float64()*2 - 1) * p.JitterFactor * b
		b += jitter
	}

	if b < 0 {
		return 0
	}
	return time.Duration(b)
}

// isRetryable reports whether an acquisition failure may be retried under a
// retry policy. Contention and transient filesystem errors are retryable;
// resolution failures, ownership token write failures, and context
// cancellation are not.
func isRetryable(err error) bool {
	var twErr *tokenWriteError
	switch {
	case errors.As(err, &twErr):
		return false
	case errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
