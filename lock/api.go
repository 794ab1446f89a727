// Package lock implements advisory mutual exclusion between independent
// processes, or independent hosts sharing a filesystem, using nothing but
// filesystem primitives. A caller acquires a named lock identified by a
// path; while held, a background renewal loop keeps the lock's on-disk
// heartbeat fresh so that crashed holders are eventually detected as stale
// and reclaimed by others without the original holder ever running cleanup
// code.
//
// The on-disk artifact is a directory at <path>.lock whose existence means
// "held", whose modification time is the freshness heartbeat, and which
// contains a .uid file holding a random ownership token. The only atomic
// primitive relied upon is create-directory-or-fail; ownership token
// verification is the secondary safety net layered on top of it.
//
// This is not a consensus protocol. Takeover of a stale lease is last
// writer wins, and a holder that resumes after being declared stale is not
// fenced; it is only guaranteed to observe its own compromise and stop
// believing it holds the lock.
package lock

import (
	"context"
	"sync"
)

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the process-wide Manager used by the package-level
// convenience functions. It is created on first use with default options.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Acquire acquires the lock for path using the default Manager.
// See Manager.Acquire.
func Acquire(ctx context.Context, path string, opts ...AcquireOption) (*Handle, error) {
	return Default().Acquire(ctx, path, opts...)
}

// Unlock releases the lock this process holds for path using the default
// Manager. See Manager.Unlock.
func Unlock(ctx context.Context, path string, opts ...AcquireOption) error {
	return Default().Unlock(ctx, path, opts...)
}

// Check reports whether a live lock artifact exists for path using the
// default Manager. See Manager.Check.
func Check(ctx context.Context, path string, opts ...AcquireOption) (bool, error) {
	return Default().Check(ctx, path, opts...)
}
