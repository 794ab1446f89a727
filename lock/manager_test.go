package lock

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/jathurchan/lockdir/testutil"
)

const testPath = "/srv/data/orders.db"

var testLockPath = testPath + lockSuffix

func acquireOpts(opts ...AcquireOption) []AcquireOption {
	return noSymlinks(opts...)
}

func TestAcquire_FreshPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	testutil.RequireNotNil(t, h)
	defer func() { _ = h.Release(ctx) }()

	testutil.AssertEqual(t, testPath, h.Path())
	testutil.AssertTrue(t, env.fs.dirExists(testLockPath), "lock directory must exist")

	uid, ok := env.fs.fileContent(filepath.Join(testLockPath, uidFileName))
	testutil.AssertTrue(t, ok, "uid file must exist")
	testutil.AssertEqual(t, h.token, string(uid))

	testutil.AssertTrue(t, env.manager.held(testPath), "registry must track the handle")
	testutil.AssertEqual(t, uint64(1), env.metrics.AcquireSuccesses())
}

func TestAcquire_SameProcessFastFail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h.Release(ctx) }()

	before := env.fs.opCount()
	_, err = env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
	testutil.AssertEqual(t, before, env.fs.opCount(),
		"fast local fail must not touch the filesystem")
}

func TestAcquire_ContendedFresh(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.fs.setDirMtime(testLockPath, env.clock.Now())
	env.fs.setFile(filepath.Join(testLockPath, uidFileName), []byte("someone-else"))

	_, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
	testutil.AssertEqual(t, uint64(1), env.metrics.AcquireFailures())
}

func TestAcquire_ReclaimsStale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.fs.setDirMtime(testLockPath, env.clock.Now().Add(-DefaultStaleThreshold-time.Second))
	env.fs.setFile(filepath.Join(testLockPath, uidFileName), []byte("dead-holder"))

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h.Release(ctx) }()

	uid, _ := env.fs.fileContent(filepath.Join(testLockPath, uidFileName))
	testutil.AssertEqual(t, h.token, string(uid), "uid must be ours after reclamation")
	testutil.AssertEqual(t, uint64(1), env.metrics.Reclaims())
}

func TestAcquire_FreshWithinThresholdStaysHeld(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.fs.setDirMtime(testLockPath, env.clock.Now().Add(-DefaultStaleThreshold+time.Second))
	env.fs.setFile(filepath.Join(testLockPath, uidFileName), []byte("other"))

	_, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
}

func TestAcquire_StaleCheckingDisabled(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.fs.setDirMtime(testLockPath, env.clock.Now().Add(-time.Hour))

	before := env.fs.opCount()
	_, err := env.manager.Acquire(ctx, testPath, acquireOpts(WithStaleThreshold(0))...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
	testutil.AssertEqual(t, before+1, env.fs.opCount(),
		"with staleness disabled, contention must fail after the create attempt alone")
}

func TestAcquire_EntryVanishedDuringStat(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// First create attempt sees a holder that is concurrently releasing:
	// mkdir reports exists, stat reports gone. The bare second phase then
	// succeeds for real.
	env.fs.setErrOnce("mkdir", testLockPath, pathErr("mkdir", testLockPath, fs.ErrExist))
	env.fs.setErrOnce("stat", testLockPath, pathErr("stat", testLockPath, fs.ErrNotExist))

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h.Release(ctx) }()

	testutil.AssertTrue(t, env.fs.dirExists(testLockPath))
}

func TestAcquire_VanishRecreateCycleStopsAtSecondPhase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Both phases observe a competing holder; the second phase must not
	// recurse into another staleness inspection.
	env.fs.setErrOnce("mkdir", testLockPath, pathErr("mkdir", testLockPath, fs.ErrExist))
	env.fs.setErrOnce("stat", testLockPath, pathErr("stat", testLockPath, fs.ErrNotExist))
	env.fs.setErrOnce("mkdir", testLockPath, pathErr("mkdir", testLockPath, fs.ErrExist))

	before := env.fs.opCount()
	_, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
	testutil.AssertEqual(t, before+3, env.fs.opCount(),
		"exactly mkdir, stat, mkdir: no further staleness round")
}

func TestAcquire_TokenWriteFailureTearsDownDirectory(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	uidPath := filepath.Join(testLockPath, uidFileName)
	env.fs.setErr("write", uidPath, pathErr("write", uidPath, fs.ErrPermission))

	_, err := env.manager.Acquire(ctx, testPath,
		acquireOpts(WithRetryPolicy(RetryAttempts(3)))...)
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "write ownership token")
	testutil.AssertFalse(t, env.fs.dirExists(testLockPath),
		"no orphaned token-less lock directory may remain")
	testutil.AssertFalse(t, isRetryable(err), "token write failures are not retryable")
}

func TestAcquire_RetryEventuallySucceeds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Two contended attempts, then the holder is gone.
	env.fs.setErrOnce("mkdir", testLockPath, pathErr("mkdir", testLockPath, fs.ErrExist))
	env.fs.setErrOnce("mkdir", testLockPath, pathErr("mkdir", testLockPath, fs.ErrExist))

	h, err := env.manager.Acquire(ctx, testPath,
		acquireOpts(WithStaleThreshold(0), WithRetryPolicy(RetryAttempts(5)))...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h.Release(ctx) }()

	testutil.AssertEqual(t, uint64(1), env.metrics.AcquireSuccesses())
	testutil.AssertEqual(t, uint64(1), env.metrics.ContestedAcquires())
}

func TestAcquire_RetriesExhausted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.fs.setDirMtime(testLockPath, env.clock.Now())

	_, err := env.manager.Acquire(ctx, testPath,
		acquireOpts(WithRetryPolicy(RetryAttempts(2)))...)
	testutil.AssertErrorIs(t, err, ErrLockHeld)
	testutil.AssertEqual(t, uint64(1), env.metrics.AcquireFailures())
}

func TestAcquire_ResolutionFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := env.manager.Acquire(ctx, missing)
	testutil.AssertErrorIs(t, err, ErrNotFound)
}

func TestAcquire_CustomLockPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	custom := "/var/run/app/pipeline.lock"
	h, err := env.manager.Acquire(ctx, testPath, acquireOpts(WithLockPath(custom))...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h.Release(ctx) }()

	testutil.AssertTrue(t, env.fs.dirExists(custom))
	testutil.AssertFalse(t, env.fs.dirExists(testLockPath))
}

func TestUnlock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)

	testutil.AssertNoError(t, env.manager.Unlock(ctx, testPath, acquireOpts()...))
	testutil.AssertFalse(t, env.fs.dirExists(testLockPath))
	testutil.AssertFalse(t, env.manager.held(testPath))

	testutil.AssertErrorIs(t, env.manager.Unlock(ctx, testPath, acquireOpts()...), ErrNotAcquired)
}

func TestUnlock_NeverAcquired(t *testing.T) {
	env := newTestEnv()
	err := env.manager.Unlock(context.Background(), testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, ErrNotAcquired)
}

func TestCheck(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	held, err := env.manager.Check(ctx, testPath, acquireOpts()...)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, held, "no artifact means unlocked")

	env.fs.setDirMtime(testLockPath, env.clock.Now())
	held, err = env.manager.Check(ctx, testPath, acquireOpts()...)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, held, "fresh artifact means locked")

	env.fs.setDirMtime(testLockPath, env.clock.Now().Add(-DefaultStaleThreshold-time.Second))
	held, err = env.manager.Check(ctx, testPath, acquireOpts()...)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, held, "stale artifact counts as unlocked")

	held, err = env.manager.Check(ctx, testPath, acquireOpts(WithStaleThreshold(0))...)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, held, "with staleness disabled existence alone means locked")
}

func TestRelease_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)

	testutil.AssertNoError(t, h.Release(ctx))
	testutil.AssertFalse(t, env.fs.dirExists(testLockPath))
	testutil.AssertErrorIs(t, h.Release(ctx), ErrAlreadyReleased)
}

func TestAcquireRelease_RoundTripLeavesNoResidue(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, h.Release(ctx))

	testutil.AssertFalse(t, env.fs.dirExists(testLockPath))
	_, ok := env.fs.fileContent(filepath.Join(testLockPath, uidFileName))
	testutil.AssertFalse(t, ok)
	testutil.AssertFalse(t, env.manager.held(testPath))
}

func TestAcquire_ReacquireAfterRelease(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h1, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, h1.Release(ctx))

	h2, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.RequireNoError(t, err)
	defer func() { _ = h2.Release(ctx) }()

	testutil.AssertNotEqual(t, h1.token, h2.token,
		"each acquisition session gets a fresh ownership token")
}

func TestAcquire_ContextCancelled(t *testing.T) {
	env := newTestEnv()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.manager.Acquire(ctx, testPath, acquireOpts()...)
	testutil.AssertErrorIs(t, err, context.Canceled)
}
