package heartbeat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/five82/lookout/internal/scheduler"
)

type recorder struct {
	probes [][]byte
	ok     bool
}

func (r *recorder) send(b []byte) bool {
	if r.ok {
		r.probes = append(r.probes, b)
	}
	return r.ok
}

func setup(timeout time.Duration) (*Heartbeat, *scheduler.Scheduler, *scheduler.FakeClock, *recorder, *int) {
	clock := scheduler.NewFakeClock(time.Unix(1_700_000_000, 0))
	sched := scheduler.New(clock, nil)
	rec := &recorder{ok: true}
	timeouts := 0
	hb := New(30*time.Second, timeout, sched, rec.send, func() { timeouts++ })
	return hb, sched, clock, rec, &timeouts
}

func TestHeartbeat_SendsOnInterval(t *testing.T) {
	hb, _, clock, rec, _ := setup(0)
	hb.Start()

	clock.Advance(29 * time.Second)
	if len(rec.probes) != 0 {
		t.Fatalf("probes = %d before first interval, want 0", len(rec.probes))
	}
	clock.Advance(61 * time.Second)
	if len(rec.probes) != 3 {
		t.Fatalf("probes = %d, want 3", len(rec.probes))
	}

	var p Probe
	if err := json.Unmarshal(rec.probes[0], &p); err != nil {
		t.Fatalf("probe is not JSON: %v", err)
	}
	if p.Type != "ping" || p.Data.ClientTime == 0 {
		t.Fatalf("probe = %+v, want ping with client_time", p)
	}
}

func TestHeartbeat_StopLeavesNoTimers(t *testing.T) {
	hb, sched, clock, rec, _ := setup(10 * time.Second)
	hb.Start()
	clock.Advance(30 * time.Second)
	hb.Stop()
	hb.Stop()

	if sched.Pending() != 0 {
		t.Fatalf("Pending = %d after Stop, want 0", sched.Pending())
	}
	clock.Advance(5 * time.Minute)
	if len(rec.probes) != 1 {
		t.Fatalf("probes = %d, want 1", len(rec.probes))
	}
	if hb.Running() {
		t.Fatal("Running() = true after Stop")
	}
}

func TestHeartbeat_WatchdogFiresWithoutAck(t *testing.T) {
	hb, _, clock, _, timeouts := setup(10 * time.Second)
	hb.Start()

	clock.Advance(30 * time.Second)
	clock.Advance(5 * time.Second)
	hb.Ack()
	clock.Advance(10 * time.Second)
	if *timeouts != 0 {
		t.Fatalf("timeouts = %d after ack, want 0", *timeouts)
	}

	clock.Advance(15 * time.Second) // second probe at t=60s
	clock.Advance(10 * time.Second)
	if *timeouts != 1 {
		t.Fatalf("timeouts = %d, want 1", *timeouts)
	}
}

func TestHeartbeat_NoWatchdogWhenDisabled(t *testing.T) {
	hb, sched, clock, _, timeouts := setup(0)
	hb.Start()
	clock.Advance(5 * time.Minute)
	if *timeouts != 0 {
		t.Fatalf("timeouts = %d, want 0", *timeouts)
	}
	if sched.Pending() != 1 {
		t.Fatalf("Pending = %d, want only the ticker", sched.Pending())
	}
}

func TestHeartbeat_FailedSendIsNotCounted(t *testing.T) {
	hb, _, clock, rec, timeouts := setup(time.Second)
	rec.ok = false
	hb.Start()
	clock.Advance(time.Minute)
	if hb.Sent() != 0 || *timeouts != 0 {
		t.Fatalf("sent = %d timeouts = %d, want 0 0", hb.Sent(), *timeouts)
	}
}
