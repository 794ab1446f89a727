package lock

import "time"

// Time
const (
	// DefaultStaleThreshold is how long a lock artifact's heartbeat may lag
	// before any contender may treat the lock as abandoned.
	DefaultStaleThreshold = 10 * time.Second

	// MinStaleThreshold is the smallest accepted stale threshold. Heartbeat
	// timestamps cannot be trusted below clock-resolution noise, so smaller
	// values are clamped up to this.
	MinStaleThreshold = 2 * time.Second

	// DefaultRenewInterval is the default period between heartbeat renewals.
	DefaultRenewInterval = 5 * time.Second

	// MinRenewInterval is the smallest accepted renewal period.
	MinRenewInterval = 1 * time.Second

	// renewRetryDelay is the shortened delay before the next renewal attempt
	// after a transient filesystem failure.
	renewRetryDelay = 1 * time.Second
)

// Artifact layout. Must match other implementations sharing the filesystem.
const (
	// lockSuffix is appended to the resolved path to form the lock directory.
	lockSuffix = ".lock"

	// uidFileName is the ownership token file inside the lock directory.
	uidFileName = ".uid"
)
