package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jathurchan/lockdir/clock"
	"github.com/jathurchan/lockdir/fsys"
	"github.com/jathurchan/lockdir/logger"
)

// Manager coordinates lock acquisition, renewal and release for one process.
// It owns the holder registry: the process-local mapping from canonical path
// to the handle currently held for it. The registry mutex is never held
// across a filesystem call.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*Handle

	fs       fsys.FileSystem
	clock    clock.Clock
	logger   logger.Logger
	metrics  Metrics
	limiter  AcquireLimiter
	newToken func() string
}

// tokenWriteError marks an ownership token write failure, which is never
// retried: the partially created artifact has already been torn down and the
// caller must see the error immediately.
type tokenWriteError struct {
	err error
}

func (e *tokenWriteError) Error() string { return "write ownership token: " + e.err.Error() }
func (e *tokenWriteError) Unwrap() error { return e.err }

// Acquire acquires the lock identified by path. On success it returns a
// handle whose background renewal loop keeps the lock fresh until Release
// is called or the lock is compromised.
//
// Returns ErrLockHeld if the lock is held (by this process or, non-stale,
// on disk), ErrNotFound if path resolution fails, or a wrapped filesystem
// error.
func (m *Manager) Acquire(ctx context.Context, path string, opts ...AcquireOption) (*Handle, error) {
	cfg := newAcquireConfig(m, opts...)
	start := m.clock.Now()

	resolved, err := resolvePath(path, cfg.resolveSymlinks)
	if err != nil {
		m.metrics.IncrAcquire(false, false)
		return nil, err
	}
	lockPath := cfg.lockPathFor(resolved)
	log := m.logger.WithPath(resolved)

	// Same-process shortcut. The filesystem remains the authority; this
	// only avoids a pointless round-trip for a lock we know we hold.
	if m.held(resolved) {
		log.Debugw("Acquisition refused, already held by this process")
		m.metrics.IncrAcquire(false, false)
		return nil, ErrLockHeld
	}

	var (
		token     string
		contested bool
		lastErr   error
	)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		token, lastErr = m.tryAcquire(lockPath, cfg, log)
		if lastErr == nil {
			break
		}
		if errors.Is(lastErr, ErrLockHeld) {
			contested = true
		}
		if attempt >= cfg.retry.MaxRetries || !isRetryable(lastErr) {
			log.Debugw("Acquisition failed", "attempts", attempt+1, "error", lastErr)
			m.metrics.IncrAcquire(false, contested)
			return nil, lastErr
		}

		backoff := cfg.retry.backoff(attempt + 1)
		select {
		case <-m.clock.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h := newHandle(m, resolved, lockPath, token, cfg, log)
	if !m.tryRegister(resolved, h) {
		// Lost a same-process race between the registry fast path and the
		// filesystem; roll back the artifact we just created.
		_ = m.removeArtifacts(lockPath)
		m.metrics.IncrAcquire(false, true)
		return nil, ErrLockHeld
	}
	h.startRenewal()

	m.metrics.IncrAcquire(true, contested)
	m.metrics.ObserveAcquireLatency(m.clock.Since(start))
	log.Infow("Lock acquired",
		"staleThreshold", cfg.staleThreshold,
		"renewInterval", cfg.renewInterval,
	)
	return h, nil
}

// Unlock releases the lock this process currently tracks for path.
// Returns ErrNotAcquired if no local handle exists for it.
func (m *Manager) Unlock(ctx context.Context, path string, opts ...AcquireOption) error {
	cfg := newAcquireConfig(m, opts...)

	resolved, err := resolvePath(path, cfg.resolveSymlinks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	h, ok := m.locks[resolved]
	m.mu.Unlock()
	if !ok {
		return ErrNotAcquired
	}
	return h.Release(ctx)
}

// ForceUnlock removes the on-disk lock artifact for path regardless of who
// holds it. If this process holds the lock, it is released normally; an
// artifact owned by another process is torn down without its cooperation, so
// this is only safe when its holder is known to be gone. Removing nothing is
// not an error.
func (m *Manager) ForceUnlock(ctx context.Context, path string, opts ...AcquireOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := newAcquireConfig(m, opts...)

	resolved, err := resolvePath(path, cfg.resolveSymlinks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	h, ok := m.locks[resolved]
	m.mu.Unlock()
	if ok {
		return h.Release(ctx)
	}

	m.logger.WithPath(resolved).Warnw("Forcibly removing lock artifact")
	return m.removeArtifacts(cfg.lockPathFor(resolved))
}

// Check reports whether a live (non-stale) lock artifact exists for path,
// without attempting to acquire it. A stale artifact counts as unlocked.
func (m *Manager) Check(ctx context.Context, path string, opts ...AcquireOption) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cfg := newAcquireConfig(m, opts...)

	resolved, err := resolvePath(path, cfg.resolveSymlinks)
	if err != nil {
		return false, err
	}

	info, err := m.fs.Stat(cfg.lockPathFor(resolved))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock: %w", err)
	}
	if cfg.staleThreshold > 0 && m.clock.Since(info.ModTime()) >= cfg.staleThreshold {
		return false, nil
	}
	return true, nil
}

// tryAcquire performs one full acquisition attempt against the filesystem:
// phase one checks staleness and possibly reclaims, phase two is a bare
// atomic create with staleness checking disabled. The explicit two-phase
// shape bounds the vanish/recreate race to a single extra create attempt.
func (m *Manager) tryAcquire(lockPath string, cfg acquireConfig, log logger.Logger) (string, error) {
	token, err := m.createArtifact(lockPath)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return "", err
	}

	// Contended. Without staleness handling, that's the answer.
	if cfg.staleThreshold <= 0 {
		return "", ErrLockHeld
	}

	info, statErr := m.fs.Stat(lockPath)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			// The entry vanished between create and stat; its holder was
			// releasing. Go straight to the bare attempt.
			return m.bareAcquire(lockPath)
		}
		return "", fmt.Errorf("stat existing lock: %w", statErr)
	}

	if age := m.clock.Since(info.ModTime()); age < cfg.staleThreshold {
		return "", ErrLockHeld
	}

	log.Warnw("Reclaiming stale lock", "heartbeat", info.ModTime())
	if err := m.removeArtifacts(lockPath); err != nil {
		return "", fmt.Errorf("remove stale lock: %w", err)
	}
	m.metrics.IncrReclaim()
	return m.bareAcquire(lockPath)
}

// bareAcquire is phase two: one atomic create attempt, no staleness check.
func (m *Manager) bareAcquire(lockPath string) (string, error) {
	token, err := m.createArtifact(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrLockHeld
		}
		return "", err
	}
	return token, nil
}

// createArtifact atomically creates the lock directory and stamps it with a
// fresh ownership token. If the token write fails the directory is torn
// down again: a token-less lock directory would be un-verifiable by anyone.
func (m *Manager) createArtifact(lockPath string) (string, error) {
	if err := m.fs.Mkdir(lockPath); err != nil {
		return "", err
	}

	token := m.newToken()
	uidPath := filepath.Join(lockPath, uidFileName)
	if err := m.fs.WriteFile(uidPath, []byte(token)); err != nil {
		_ = m.fs.Remove(uidPath)
		_ = m.fs.Remove(lockPath)
		return "", &tokenWriteError{err: err}
	}
	return token, nil
}

// removeArtifacts tears down a lock directory and its token file. Teardown
// is best-effort and idempotent: not-found is never an error here.
func (m *Manager) removeArtifacts(lockPath string) error {
	if err := m.fs.Remove(filepath.Join(lockPath, uidFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove ownership token: %w", err)
	}
	if err := m.fs.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock directory: %w", err)
	}
	return nil
}

// held reports whether this process already tracks a handle for the identity.
func (m *Manager) held(identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[identity]
	return ok
}

// tryRegister inserts the handle into the holder registry unless another
// handle already occupies the identity.
func (m *Manager) tryRegister(identity string, h *Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[identity]; ok {
		return false
	}
	m.locks[identity] = h
	return true
}

// unregister removes the handle from the registry, but only if it is still
// the registered holder for the identity.
func (m *Manager) unregister(identity string, h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.locks[identity]; ok && cur == h {
		delete(m.locks, identity)
	}
}
