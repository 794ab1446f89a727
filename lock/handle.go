package lock

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/jathurchan/lockdir/logger"
)

// Compromise reasons, as recorded in metrics.
const (
	compromiseUpdateTimeout     = "update_timeout"
	compromiseArtifactMissing   = "artifact_missing"
	compromiseOwnershipMismatch = "ownership_mismatch"
)

// Handle represents a lock held by this process. Exactly one handle exists
// per identity per process at any time. A handle is owned by the Manager
// that created it until released; afterwards it is inert.
type Handle struct {
	m *Manager

	path     string // canonical identity
	lockPath string
	uidPath  string
	token    string
	cfg      acquireConfig
	log      logger.Logger

	mu          sync.Mutex
	lastRenewal time.Time
	renewErr    error // remembered transient renewal failure, cleared on success
	released    bool
	compromised bool
	terminalErr error

	stopCh   chan struct{} // closed by release or compromise, stops the loop
	loopDone chan struct{} // closed when the renewal loop has exited
}

func newHandle(m *Manager, path, lockPath, token string, cfg acquireConfig, log logger.Logger) *Handle {
	return &Handle{
		m:           m,
		path:        path,
		lockPath:    lockPath,
		uidPath:     filepath.Join(lockPath, uidFileName),
		token:       token,
		cfg:         cfg,
		log:         log,
		lastRenewal: m.clock.Now(),
		stopCh:      make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
}

// Path returns the canonical identity of the lock.
func (h *Handle) Path() string {
	return h.path
}

// Done returns a channel closed once the background renewal loop has
// exited, whether through release or compromise.
func (h *Handle) Done() <-chan struct{} {
	return h.loopDone
}

// Err returns the terminal error if the lock was compromised, nil otherwise.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminalErr
}

// Compromised reports whether the lock was involuntarily lost.
func (h *Handle) Compromised() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compromised
}

// Release stops the renewal loop, removes the handle from the holder
// registry and tears down the on-disk artifacts. It is idempotent: a second
// call returns ErrAlreadyReleased without touching disk. Releasing never
// transitions a handle back to an active state.
func (h *Handle) Release(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrAlreadyReleased
	}
	h.released = true
	close(h.stopCh)
	h.mu.Unlock()

	h.m.unregister(h.path, h)

	if err := h.m.removeArtifacts(h.lockPath); err != nil {
		h.m.metrics.IncrRelease(false)
		return err
	}
	h.m.metrics.IncrRelease(true)
	h.log.Infow("Lock released")
	return nil
}

// isReleased reports whether the handle is past its active lifetime.
func (h *Handle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// lastRenewalTime returns the time of the last successful renewal.
func (h *Handle) lastRenewalTime() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRenewal
}

// compromise marks the handle as involuntarily lost: it stops the renewal
// loop, removes the handle from the registry and notifies the caller's
// compromise handler. The on-disk artifacts are deliberately left alone;
// after a compromise another party may already own them, and an abandoned
// artifact is reclaimed through staleness anyway.
func (h *Handle) compromise(reason string, err error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.compromised = true
	h.terminalErr = err
	handler := h.cfg.onCompromised
	close(h.stopCh)
	h.mu.Unlock()

	h.m.unregister(h.path, h)
	h.m.metrics.IncrCompromise(reason)
	h.log.Errorw("Lock compromised", "reason", reason, "error", err)
	handler(err)
}
