package app

import (
	"context"
	"time"

	"github.com/five82/lookout/internal/state"
)

const (
	offlinePollInterval = 15 * time.Second
	maxBackoff          = 2 * time.Minute
)

// reconciler is the part of engine.Service the poller drives.
type reconciler interface {
	Reconcile()
}

// StartReconciler launches a background goroutine that requests a full
// reconciliation every interval while the stream is up. Once reconnection
// has given up it falls back to polling, backing off while reads fail. A
// non-positive interval disables the online cadence. It returns immediately.
func StartReconciler(ctx context.Context, svc reconciler, store *state.Store, interval time.Duration) {
	go func() {
		failures := 0
		snap := store.Snapshot()
		for {
			due := nextPoll(snap.Connection.State, interval, failures)
			wait := due
			if wait <= 0 {
				wait = offlinePollInterval
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			snap = store.Snapshot()
			if snap.ReconcileError != nil {
				failures++
			} else {
				failures = 0
			}
			if due > 0 {
				svc.Reconcile()
			}
		}
	}()
}

// nextPoll returns the delay before the next reconciliation, or zero when
// none is due in this state.
func nextPoll(conn state.ConnState, interval time.Duration, failures int) time.Duration {
	if conn == state.ClosedTerminal {
		return calculateBackoff(failures, offlinePollInterval)
	}
	if interval <= 0 {
		return 0
	}
	return interval
}

// calculateBackoff returns the poll interval with exponential backoff applied.
// Each consecutive failure doubles the interval, capped at maxBackoff.
func calculateBackoff(failures int, baseInterval time.Duration) time.Duration {
	if failures <= 0 {
		return baseInterval
	}
	backoff := baseInterval
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
