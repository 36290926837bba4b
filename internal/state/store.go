package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/lookout/internal/cache"
	"github.com/five82/lookout/internal/eventlog"
	"github.com/five82/lookout/internal/wire"
)

// ConnState is the lifecycle state of the stream connection.
type ConnState int

const (
	Idle ConnState = iota
	Connecting
	Open
	Reconnecting
	ClosedTerminal
)

func (s ConnState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case ClosedTerminal:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Connection describes the stream connection for display.
type Connection struct {
	State            ConnState
	ID               string
	LastError        string
	ReconnectAttempt int
	MaxAttempts      int
	RetryIn          time.Duration
	RetryAt          time.Time
	LastOpened       time.Time
}

// resourceErrorTypes are server error types that stay visible until the
// user acknowledges them.
var resourceErrorTypes = map[string]bool{
	"resource_exhausted": true,
	"disk_full":          true,
	"out_of_space":       true,
	"quota_exceeded":     true,
}

// AppError is an application error reported by the server.
type AppError struct {
	Message     string
	Type        string
	Context     map[string]any
	RequiresAck bool
	At          time.Time
}

// NewAppError converts a server error message.
func NewAppError(m wire.ServerError, at time.Time) AppError {
	return AppError{
		Message:     m.Message,
		Type:        m.ErrorType,
		Context:     m.Context,
		RequiresAck: resourceErrorTypes[m.ErrorType],
		At:          at,
	}
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Connection       Connection
	Cache            cache.Cache
	Events           []eventlog.Entry
	AppError         *AppError
	Reconciling      bool
	LastReconciled   time.Time
	ReconcileError   error
	MessageErrors    int // Frames or members dropped as malformed
	LastMessageError error
	LastUpdated      time.Time
}

// IsOffline returns true when the stream is not open.
func (s Snapshot) IsOffline() bool {
	return s.Connection.State != Open
}

// Store coordinates concurrent updates to the snapshot. The zero value is
// ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]chan struct{}
	nextSub  int
}

// SetConnection replaces the connection state.
func (s *Store) SetConnection(c Connection) {
	s.update(func(snap *Snapshot) { snap.Connection = c })
}

// SetCache installs a copy of the cache and the event log produced by one
// frame or reconciliation.
func (s *Store) SetCache(c cache.Cache, events []eventlog.Entry) {
	s.update(func(snap *Snapshot) {
		snap.Cache = c
		snap.Events = events
	})
}

// ReportAppError surfaces err. A pending error that requires acknowledgement
// is not replaced by one that does not; ReportAppError reports whether err is
// now the visible error.
func (s *Store) ReportAppError(err AppError) bool {
	shown := false
	s.update(func(snap *Snapshot) {
		if cur := snap.AppError; cur != nil && cur.RequiresAck && !err.RequiresAck {
			return
		}
		snap.AppError = &err
		shown = true
	})
	return shown
}

// Acknowledge clears the visible application error.
func (s *Store) Acknowledge() {
	s.update(func(snap *Snapshot) { snap.AppError = nil })
}

// BeginReconcile marks a reconciliation read in flight.
func (s *Store) BeginReconcile() {
	s.update(func(snap *Snapshot) { snap.Reconciling = true })
}

// EndReconcile records the outcome of a reconciliation read. On error the
// previous cache is kept and the error recorded for visibility.
func (s *Store) EndReconcile(err error, at time.Time) {
	s.update(func(snap *Snapshot) {
		snap.Reconciling = false
		snap.ReconcileError = err
		if err == nil {
			snap.LastReconciled = at
		}
	})
}

// MessageError counts a malformed message.
func (s *Store) MessageError(err error) {
	s.update(func(snap *Snapshot) {
		snap.MessageErrors++
		snap.LastMessageError = err
	})
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Cache = s.snapshot.Cache.Clone()
	snap.Events = slices.Clone(s.snapshot.Events)
	if s.snapshot.AppError != nil {
		appErr := *s.snapshot.AppError
		snap.AppError = &appErr
	}
	return snap
}

// Subscribe returns a channel that receives a value after updates. Bursts
// coalesce into one pending notification and a slow reader never blocks a
// writer. Call cancel to release the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]chan struct{})
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snapshot)
	s.snapshot.LastUpdated = time.Now()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
