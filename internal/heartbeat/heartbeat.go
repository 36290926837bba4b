// Package heartbeat emits periodic liveness probes while the stream is open
// and, when configured, flags a connection whose probes go unanswered.
package heartbeat

import (
	"encoding/json"
	"time"

	"github.com/five82/lookout/internal/scheduler"
)

// DefaultInterval spaces probes while the stream is open.
const DefaultInterval = 30 * time.Second

// Probe is the outbound liveness message.
type Probe struct {
	Type string    `json:"type"`
	Data ProbeData `json:"data"`
}

// ProbeData carries the client clock for server-side diagnostics.
type ProbeData struct {
	ClientTime int64 `json:"client_time"`
}

// Encode renders the probe sent at now.
func Encode(now time.Time) []byte {
	b, _ := json.Marshal(Probe{Type: "ping", Data: ProbeData{ClientTime: now.UnixMilli()}})
	return b
}

// Heartbeat sends a probe every Interval. A positive Timeout arms a watchdog
// after each probe; OnTimeout runs if Ack is not called before it expires.
type Heartbeat struct {
	interval  time.Duration
	timeout   time.Duration
	sched     *scheduler.Scheduler
	send      func([]byte) bool
	onTimeout func()

	ticker   *scheduler.Handle
	watchdog *scheduler.Handle
	sent     int
}

// New builds a stopped Heartbeat.
func New(interval, timeout time.Duration, sched *scheduler.Scheduler, send func([]byte) bool, onTimeout func()) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Heartbeat{interval: interval, timeout: timeout, sched: sched, send: send, onTimeout: onTimeout}
}

// Start begins probing. Calling Start while running restarts the cadence.
func (h *Heartbeat) Start() {
	h.Stop()
	h.ticker = h.sched.Every("heartbeat", h.interval, h.beat)
}

// Stop cancels the probe ticker and any armed watchdog.
func (h *Heartbeat) Stop() {
	h.ticker.Cancel()
	h.ticker = nil
	h.watchdog.Cancel()
	h.watchdog = nil
}

// Ack records a liveness response and disarms the watchdog.
func (h *Heartbeat) Ack() {
	h.watchdog.Cancel()
	h.watchdog = nil
}

// Running reports whether probes are scheduled.
func (h *Heartbeat) Running() bool { return h.ticker.Active() }

// Sent counts probes handed to the transport.
func (h *Heartbeat) Sent() int { return h.sent }

func (h *Heartbeat) beat() {
	if !h.send(Encode(h.sched.Now())) {
		return
	}
	h.sent++
	if h.timeout <= 0 || h.watchdog.Active() {
		return
	}
	h.watchdog = h.sched.After("heartbeat-watchdog", h.timeout, func() {
		h.watchdog = nil
		if h.onTimeout != nil {
			h.onTimeout()
		}
	})
}
