package lock

import (
	"github.com/google/uuid"

	"github.com/jathurchan/lockdir/clock"
	"github.com/jathurchan/lockdir/fsys"
	"github.com/jathurchan/lockdir/logger"
)

// ManagerOption defines a function that applies a configuration setting
// to a Manager during initialization.
type ManagerOption func(*ManagerConfig)

// ManagerConfig holds configuration parameters for a Manager instance.
type ManagerConfig struct {
	// Logger receives structured log output for acquisition, renewal,
	// reclaim and compromise events. Defaults to a no-op logger.
	Logger logger.Logger

	// Clock supplies all time operations; replaceable for tests.
	Clock clock.Clock

	// FileSystem supplies the filesystem primitives the lock protocol
	// runs on. Defaults to the local OS filesystem.
	FileSystem fsys.FileSystem

	// Metrics records protocol events. Defaults to no-op.
	Metrics Metrics

	// AcquireLimiter, when set, paces filesystem acquisition attempts
	// across all locks managed by this Manager.
	AcquireLimiter AcquireLimiter

	// TokenFunc generates ownership tokens. The default produces
	// high-entropy UUID strings; overridable for tests.
	TokenFunc func() string
}

// DefaultManagerConfig returns a ManagerConfig with zero values; NewManager
// fills in the defaults for anything left unset.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{}
}

// WithLogger sets the structured logger used by the Manager.
func WithLogger(l logger.Logger) ManagerOption {
	return func(cfg *ManagerConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithClock sets the clock implementation, primarily useful for testing
// time-dependent behavior.
func WithClock(c clock.Clock) ManagerOption {
	return func(cfg *ManagerConfig) {
		if c != nil {
			cfg.Clock = c
		}
	}
}

// WithFileSystem sets the filesystem primitives the Manager operates on.
func WithFileSystem(fs fsys.FileSystem) ManagerOption {
	return func(cfg *ManagerConfig) {
		if fs != nil {
			cfg.FileSystem = fs
		}
	}
}

// WithMetrics sets the metrics sink for protocol events.
func WithMetrics(m Metrics) ManagerOption {
	return func(cfg *ManagerConfig) {
		if m != nil {
			cfg.Metrics = m
		}
	}
}

// WithAcquireLimiter installs a limiter pacing filesystem acquisition
// attempts, protecting shared (often networked) filesystems from retry
// storms.
func WithAcquireLimiter(l AcquireLimiter) ManagerOption {
	return func(cfg *ManagerConfig) {
		cfg.AcquireLimiter = l
	}
}

// WithTokenFunc overrides the ownership token generator.
func WithTokenFunc(fn func() string) ManagerOption {
	return func(cfg *ManagerConfig) {
		if fn != nil {
			cfg.TokenFunc = fn
		}
	}
}

// NewManager creates a Manager with the provided options.
func NewManager(opts ...ManagerOption) *Manager {
	cfg := DefaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewStandardClock()
	}
	if cfg.FileSystem == nil {
		cfg.FileSystem = fsys.NewOSFileSystem()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoOpMetrics{}
	}
	if cfg.TokenFunc == nil {
		cfg.TokenFunc = uuid.NewString
	}

	return &Manager{
		locks:    make(map[string]*Handle),
		fs:       cfg.FileSystem,
		clock:    cfg.Clock,
		logger:   cfg.Logger.WithComponent("lock"),
		metrics:  cfg.Metrics,
		limiter:  cfg.AcquireLimiter,
		newToken: cfg.TokenFunc,
	}
}
