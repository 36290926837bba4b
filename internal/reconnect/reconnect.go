// Package reconnect schedules reconnection attempts after unexpected closes
// using capped exponential backoff and a hard attempt ceiling.
package reconnect

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/five82/lookout/internal/scheduler"
)

const (
	DefaultBase        = 3 * time.Second
	DefaultCeiling     = 30 * time.Second
	DefaultMaxAttempts = 5

	growth = 1.5
)

// ErrExhausted marks the terminal state reached once every attempt failed.
var ErrExhausted = errors.New("reconnection exhausted")

// Config tunes the backoff curve.
type Config struct {
	Base        time.Duration
	Ceiling     time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Base <= 0 {
		c.Base = DefaultBase
	}
	if c.Ceiling <= 0 {
		c.Ceiling = DefaultCeiling
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Delay returns the wait before the given 1-based attempt, truncated to whole
// milliseconds: min(base * 1.5^(attempt-1), ceiling).
func Delay(cfg Config, attempt int) time.Duration {
	cfg = cfg.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	ms := float64(cfg.Base.Milliseconds()) * math.Pow(growth, float64(attempt-1))
	ceiling := float64(cfg.Ceiling.Milliseconds())
	if ms > ceiling || math.IsInf(ms, 0) {
		ms = ceiling
	}
	return time.Duration(int64(ms)) * time.Millisecond
}

// Outcome describes what the controller did with an unexpected close.
type Outcome struct {
	Scheduled bool
	Attempt   int
	Delay     time.Duration
	Exhausted bool
}

// Controller tracks the attempt counter and the single pending reconnect
// timer.
type Controller struct {
	cfg       Config
	sched     *scheduler.Scheduler
	reconnect func()

	attempt   int
	exhausted bool
	pending   *scheduler.Handle
}

// New builds a Controller that calls reconnect when a scheduled attempt is
// due.
func New(cfg Config, sched *scheduler.Scheduler, reconnect func()) *Controller {
	return &Controller{cfg: cfg.withDefaults(), sched: sched, reconnect: reconnect}
}

// OnUnexpectedClose schedules the next attempt or enters the terminal state.
func (c *Controller) OnUnexpectedClose() Outcome {
	if c.exhausted || c.attempt >= c.cfg.MaxAttempts {
		c.Cancel()
		c.exhausted = true
		return Outcome{Attempt: c.attempt, Exhausted: true}
	}
	c.Cancel()
	c.attempt++
	delay := Delay(c.cfg, c.attempt)
	c.pending = c.sched.After(fmt.Sprintf("reconnect#%d", c.attempt), delay, func() {
		c.pending = nil
		c.reconnect()
	})
	return Outcome{Scheduled: true, Attempt: c.attempt, Delay: delay}
}

// OnOpen cancels any pending attempt and resets the counter. It reports
// whether the open followed at least one attempt.
func (c *Controller) OnOpen() bool {
	reconnected := c.attempt > 0
	c.Cancel()
	c.attempt = 0
	c.exhausted = false
	return reconnected
}

// Reset clears the terminal state ahead of a manual retry.
func (c *Controller) Reset() {
	c.Cancel()
	c.attempt = 0
	c.exhausted = false
}

// Cancel drops the pending timer. Safe to call when nothing is pending.
func (c *Controller) Cancel() {
	c.pending.Cancel()
	c.pending = nil
}

// Attempt returns the current attempt counter.
func (c *Controller) Attempt() int { return c.attempt }

// Exhausted reports whether the ceiling was reached.
func (c *Controller) Exhausted() bool { return c.exhausted }

// Pending reports whether a reconnect timer is armed.
func (c *Controller) Pending() bool { return c.pending.Active() }

// MaxAttempts returns the configured ceiling.
func (c *Controller) MaxAttempts() int { return c.cfg.MaxAttempts }

// ExhaustedMessage is the user-facing text for the terminal state.
func (c *Controller) ExhaustedMessage() string {
	return fmt.Sprintf("Reconnection failed after %d attempts. Reload or press c to retry.", c.cfg.MaxAttempts)
}
