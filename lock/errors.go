package lock

import "errors"

var (
	// ErrLockHeld indicates an attempt to acquire a lock that is already held
	// and not stale, either by this process or by another party on disk.
	ErrLockHeld = errors.New("lockdir: lock is already held")

	// ErrNotAcquired indicates a release or unlock for a path with no handle
	// tracked by this process.
	ErrNotAcquired = errors.New("lockdir: lock is not acquired by this process")

	// ErrAlreadyReleased indicates a release of a handle that was released before.
	ErrAlreadyReleased = errors.New("lockdir: lock already released")

	// ErrNotFound indicates that the path to lock could not be resolved
	// because its target does not exist.
	ErrNotFound = errors.New("lockdir: path not found")

	// ErrUpdateTimeout indicates the renewal loop missed the staleness
	// deadline; by the time a renewal would land, another party may already
	// have reclaimed the lock.
	ErrUpdateTimeout = errors.New("lockdir: unable to update lock within the stale threshold")

	// ErrOwnershipMismatch indicates the on-disk ownership token no longer
	// matches this handle, i.e. the lock was reclaimed by another party.
	ErrOwnershipMismatch = errors.New("lockdir: lock was acquired by someone else")
)
