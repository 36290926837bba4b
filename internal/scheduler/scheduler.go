// Package scheduler owns every timer the sync layer arms. Each timer is
// reachable through a Handle, so teardown can cancel all of them and assert
// that nothing remains pending.
package scheduler

import (
	"sync"
	"time"
)

// Clock abstracts wall time so timer-driven components can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

// Scheduler arms timers whose callbacks are delivered through post, which is
// expected to run them on the owner's event loop.
type Scheduler struct {
	clock Clock
	post  func(func())

	mu   sync.Mutex
	next uint64
	live map[uint64]*Handle
}

// Handle identifies a scheduled timer. The zero value and nil are safe to
// cancel.
type Handle struct {
	s     *Scheduler
	id    uint64
	name  string
	timer Timer
}

// New builds a Scheduler. A nil post runs callbacks on the timer goroutine.
func New(clock Clock, post func(func())) *Scheduler {
	if clock == nil {
		clock = Real()
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Scheduler{clock: clock, post: post, live: make(map[uint64]*Handle)}
}

// Now reports the scheduler's clock time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// After runs fn once after d unless the handle is cancelled first.
func (s *Scheduler) After(name string, d time.Duration, fn func()) *Handle {
	h := s.register(name)
	t := s.clock.AfterFunc(d, func() {
		s.post(func() {
			if s.take(h) {
				fn()
			}
		})
	})
	s.setTimer(h, t)
	return h
}

// Every runs fn every d until the handle is cancelled. fn may cancel its own
// handle.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) *Handle {
	h := s.register(name)
	var arm func()
	arm = func() {
		t := s.clock.AfterFunc(d, func() {
			s.post(func() {
				if !s.alive(h) {
					return
				}
				fn()
				if s.alive(h) {
					arm()
				}
			})
		})
		s.setTimer(h, t)
	}
	arm()
	return h
}

// Pending reports how many handles are still armed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// PendingNames lists the names of armed handles, for diagnostics.
func (s *Scheduler) PendingNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.live))
	for _, h := range s.live {
		names = append(names, h.name)
	}
	return names
}

// CancelAll stops every armed handle.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.live))
	for _, h := range s.live {
		handles = append(handles, h)
	}
	s.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}

// Cancel stops the timer. It is idempotent and safe on a nil handle or one
// that already fired.
func (h *Handle) Cancel() {
	if h == nil || h.s == nil {
		return
	}
	s := h.s
	s.mu.Lock()
	_, ok := s.live[h.id]
	delete(s.live, h.id)
	t := h.timer
	s.mu.Unlock()
	if ok && t != nil {
		t.Stop()
	}
}

// Active reports whether the handle is still armed.
func (h *Handle) Active() bool {
	if h == nil || h.s == nil {
		return false
	}
	return h.s.alive(h)
}

// Name returns the label given when the handle was created.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

func (s *Scheduler) register(name string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := &Handle{s: s, id: s.next, name: name}
	s.live[h.id] = h
	return h
}

func (s *Scheduler) setTimer(h *Handle, t Timer) {
	s.mu.Lock()
	_, ok := s.live[h.id]
	if ok {
		h.timer = t
	}
	s.mu.Unlock()
	if !ok {
		// Cancelled before the timer was stored.
		t.Stop()
	}
}

func (s *Scheduler) alive(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[h.id]
	return ok
}

func (s *Scheduler) take(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[h.id]; !ok {
		return false
	}
	delete(s.live, h.id)
	return true
}
