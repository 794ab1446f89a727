package lock

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/jathurchan/lockdir/logger"
)

// AcquireLimiter defines the interface for pacing filesystem acquisition
// attempts across the locks of a Manager.
type AcquireLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// TokenBucketLimiter implements AcquireLimiter using a token bucket. It is
// intended for callers whose retry policies can poll a contended lock
// aggressively, to keep the attempt rate on a shared (often networked)
// filesystem bounded.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewTokenBucketLimiter creates a limiter allowing maxAttempts acquisition
// attempts per window, with the given burst.
func NewTokenBucketLimiter(maxAttempts, burst int, window time.Duration, logger logger.Logger) *TokenBucketLimiter {
	var rps rate.Limit
	if window.Seconds() > 0 {
		rps = rate.Limit(float64(maxAttempts) / window.Seconds())
	} else {
		rps = rate.Inf
		logger.Warnw("Acquire limit window is zero or negative, disabling limiter.", "window", window)
	}
	if burst <= 0 {
		burst = 1
		if rps != rate.Inf {
			logger.Warnw("Acquire limit burst is zero or negative, setting to 1.", "burst", burst)
		}
	}

	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rps, burst),
		logger:  logger,
	}
}

// Allow returns true if an attempt can proceed immediately.
func (tl *TokenBucketLimiter) Allow() bool {
	return tl.limiter.Allow()
}

// Wait blocks until an attempt can proceed or the context is cancelled.
func (tl *TokenBucketLimiter) Wait(ctx context.Context) error {
	return tl.limiter.Wait(ctx)
}
