// Package throttle coalesces bursts of structural events into at most one
// full reconciliation per window, with a single trailing trigger.
package throttle

import (
	"time"

	"github.com/five82/lookout/internal/scheduler"
)

// DefaultWindow is the minimum spacing between reconciliation triggers.
const DefaultWindow = 5 * time.Second

// Throttler fires trigger at most once per window. Events inside the window
// collapse into one trailing trigger.
//
// The window opens at construction, since the owner populates its cache with
// a full read at startup, and again whenever Mark reports a reconciliation
// that happened for another reason.
type Throttler struct {
	window  time.Duration
	sched   *scheduler.Scheduler
	trigger func()

	last     time.Time
	trailing *scheduler.Handle
}

// New builds a Throttler. A non-positive window uses DefaultWindow.
func New(window time.Duration, sched *scheduler.Scheduler, trigger func()) *Throttler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Throttler{window: window, sched: sched, trigger: trigger, last: sched.Now()}
}

// Mark records a reconciliation that was not started by the throttler.
func (t *Throttler) Mark() {
	t.last = t.sched.Now()
}

// Notify records a structural event.
func (t *Throttler) Notify() {
	now := t.sched.Now()
	elapsed := now.Sub(t.last)
	if elapsed >= t.window {
		t.trailing.Cancel()
		t.trailing = nil
		t.fire(now)
		return
	}
	t.trailing.Cancel()
	t.trailing = t.sched.After("structural-refetch", t.window-elapsed, func() {
		t.trailing = nil
		t.fire(t.sched.Now())
	})
}

// Pending reports whether a trailing trigger is scheduled.
func (t *Throttler) Pending() bool { return t.trailing.Active() }

// Stop cancels the trailing trigger.
func (t *Throttler) Stop() {
	t.trailing.Cancel()
	t.trailing = nil
}

func (t *Throttler) fire(now time.Time) {
	t.last = now
	t.trigger()
}
