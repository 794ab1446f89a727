package lock

import (
	"fmt"
	"time"
)

// AcquireOption defines a function that applies a per-acquisition setting.
type AcquireOption func(*acquireConfig)

// acquireConfig holds the normalized settings of a single acquisition.
type acquireConfig struct {
	staleThreshold time.Duration
	staleSet       bool

	renewInterval time.Duration
	renewSet      bool

	resolveSymlinks bool
	retry           RetryPolicy
	onCompromised   func(error)
	lockPath        string
}

// WithStaleThreshold sets how long the lock artifact's heartbeat may lag
// before contenders treat the lock as abandoned. Values below
// MinStaleThreshold are clamped up to it; a zero or negative value disables
// staleness handling entirely, so contended acquisitions always fail with
// ErrLockHeld.
func WithStaleThreshold(d time.Duration) AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.staleThreshold = d
		cfg.staleSet = true
	}
}

// WithRenewInterval sets the period between heartbeat renewals. The value
// is clamped to at least MinRenewInterval and at most half the stale
// threshold, so a healthy holder always renews well before it can be
// perceived as stale.
func WithRenewInterval(d time.Duration) AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.renewInterval = d
		cfg.renewSet = true
	}
}

// WithResolveSymlinks controls whether the lock identity follows symlinks.
// Enabled by default; when disabled, the path is only normalized lexically
// and its target need not exist.
func WithResolveSymlinks(enabled bool) AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.resolveSymlinks = enabled
	}
}

// WithRetryPolicy sets the retry behavior wrapping the whole acquisition
// attempt. The default performs a single attempt.
func WithRetryPolicy(p RetryPolicy) AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.retry = p
	}
}

// WithCompromiseHandler installs the callback invoked, at most once and
// asynchronously, if the lock is involuntarily lost after acquisition. It
// is the only notification channel for such a loss. If no handler is
// installed, a compromise is treated as fatal.
func WithCompromiseHandler(fn func(error)) AcquireOption {
	return func(cfg *acquireConfig) {
		if fn != nil {
			cfg.onCompromised = fn
		}
	}
}

// WithLockPath overrides the location of the on-disk lock artifact, for
// callers locking a resource that is not itself a writable path.
func WithLockPath(path string) AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.lockPath = path
	}
}

// newAcquireConfig applies opts over the defaults and normalizes the result.
func newAcquireConfig(m *Manager, opts ...AcquireOption) acquireConfig {
	cfg := acquireConfig{resolveSymlinks: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.normalize()

	if cfg.onCompromised == nil {
		// Silently continuing to operate while believing to hold a lock
		// that was reclaimed is the failure mode this package exists to
		// prevent, so the default handler is fatal regardless of how the
		// Manager's logger is configured.
		cfg.onCompromised = func(err error) {
			m.logger.Errorw("Lock compromised with no handler installed", "error", err)
			panic(fmt.Sprintf("lockdir: lock compromised with no handler installed: %v", err))
		}
	}
	return cfg
}

// normalize enforces the documented defaults and clamps.
func (cfg *acquireConfig) normalize() {
	if !cfg.staleSet {
		cfg.staleThreshold = DefaultStaleThreshold
	}
	if cfg.staleThreshold < 0 {
		cfg.staleThreshold = 0
	}
	if cfg.staleThreshold > 0 && cfg.staleThreshold < MinStaleThreshold {
		cfg.staleThreshold = MinStaleThreshold
	}

	if !cfg.renewSet {
		cfg.renewInterval = DefaultRenewInterval
	}
	if cfg.staleThreshold > 0 && cfg.renewInterval > cfg.staleThreshold/2 {
		cfg.renewInterval = cfg.staleThreshold / 2
	}
	if cfg.renewInterval < MinRenewInterval {
		cfg.renewInterval = MinRenewInterval
	}
}

// lockPathFor returns the artifact directory for the resolved identity.
func (cfg *acquireConfig) lockPathFor(resolved string) string {
	if cfg.lockPath != "" {
		return cfg.lockPath
	}
	return resolved + lockSuffix
}
