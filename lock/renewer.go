package lock

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// startRenewal launches the background renewal loop for the handle.
func (h *Handle) startRenewal() {
	go h.runRenewLoop()
}

// runRenewLoop drives the renewal state machine. Ticks are strictly
// sequential: the next tick is scheduled only after the previous one has
// fully resolved.
func (h *Handle) runRenewLoop() {
	defer close(h.loopDone)

	timer := h.m.clock.NewTimer(h.cfg.renewInterval)
	defer timer.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-timer.Chan():
		}

		next, done := h.renewOnce()
		if done {
			return
		}
		timer.Reset(next)
	}
}

// renewOnce performs a single renewal tick and returns the delay before the
// next tick, or done=true if the loop must stop (release or compromise).
func (h *Handle) renewOnce() (next time.Duration, done bool) {
	if h.isReleased() {
		return 0, true
	}

	start := h.m.clock.Now()

	// Refresh the heartbeat and verify ownership in parallel; both results
	// are needed before the tick's outcome can be decided.
	var (
		wg                sync.WaitGroup
		uid               []byte
		readErr, touchErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		uid, readErr = h.m.fs.ReadFile(h.uidPath)
	}()
	go func() {
		defer wg.Done()
		now := h.m.clock.Now()
		touchErr = h.m.fs.Chtimes(h.lockPath, now, now)
	}()
	wg.Wait()

	if h.isReleased() {
		// Release won the race while the tick was in flight.
		return 0, true
	}

	// A renewal landing after the stale threshold is meaningless regardless
	// of its outcome: another party may already have reclaimed the lock.
	// The threshold doubles as the holder's own deadline, which leaves a
	// narrow window where a merely slow renewal races a reclaimer; the
	// artifact is left in place for staleness reclamation either way.
	if h.cfg.staleThreshold > 0 {
		if overdue := h.m.clock.Since(h.lastRenewalTime()); overdue > h.cfg.staleThreshold {
			h.compromise(compromiseUpdateTimeout,
				fmt.Errorf("%w: %v since last successful renewal", ErrUpdateTimeout, overdue))
			return 0, true
		}
	}

	if errors.Is(readErr, os.ErrNotExist) || errors.Is(touchErr, os.ErrNotExist) {
		cause := readErr
		if !errors.Is(cause, os.ErrNotExist) {
			cause = touchErr
		}
		h.compromise(compromiseArtifactMissing,
			fmt.Errorf("lock artifact removed externally: %w", cause))
		return 0, true
	}

	if readErr != nil || touchErr != nil {
		cause := readErr
		if cause == nil {
			cause = touchErr
		}
		h.setRenewErr(cause)
		h.m.metrics.IncrRenew(false)
		h.log.Warnw("Renewal failed, retrying shortly", "error", cause)
		return renewRetryDelay, false
	}

	if got := strings.TrimSpace(string(uid)); got != h.token {
		h.compromise(compromiseOwnershipMismatch,
			fmt.Errorf("%w: ownership token changed on disk", ErrOwnershipMismatch))
		return 0, true
	}

	h.mu.Lock()
	h.lastRenewal = start
	h.renewErr = nil
	h.mu.Unlock()

	h.m.metrics.IncrRenew(true)
	h.m.metrics.ObserveRenewLatency(h.m.clock.Since(start))
	h.log.Debugw("Lock renewed")
	return h.cfg.renewInterval, false
}

// setRenewErr remembers a transient renewal failure.
func (h *Handle) setRenewErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renewErr = err
}
