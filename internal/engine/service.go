package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/lookout/internal/api"
	"github.com/five82/lookout/internal/cache"
	"github.com/five82/lookout/internal/config"
	"github.com/five82/lookout/internal/dedup"
	"github.com/five82/lookout/internal/heartbeat"
	"github.com/five82/lookout/internal/reconnect"
	"github.com/five82/lookout/internal/scheduler"
	"github.com/five82/lookout/internal/state"
	"github.com/five82/lookout/internal/throttle"
	"github.com/five82/lookout/internal/transport"
	"github.com/five82/lookout/internal/wire"
)

const (
	taskQueueSize = 256
	replayLimit   = 1000
)

var errHeartbeatTimeout = errors.New("heartbeat unanswered")

// Options configures a Service.
type Options struct {
	Stream config.Stream
	URL    string
	Dialer transport.Dialer
	Reader api.Reader
	Store  *state.Store
	Clock  scheduler.Clock
	Logger *log.Logger
}

// Service is the sync engine. Create it with New, then Start it.
type Service struct {
	url    string
	reader api.Reader
	store  *state.Store
	logger *log.Logger

	tasks     chan func()
	stopped   chan struct{}
	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	sched      *scheduler.Scheduler
	transport  *transport.Transport
	reconnect  *reconnect.Controller
	heartbeat  *heartbeat.Heartbeat
	throttle   *throttle.Throttler
	seen       *dedup.Set
	dispatcher *cache.Dispatcher

	// Loop-owned.
	conn           state.Connection
	everOpened     bool
	resumed        bool
	reconciling    bool
	reconcileAgain bool
	replay         []replayed
}

type replayed struct {
	n wire.Normalized
	m wire.Message
}

// New builds a stopped Service.
func New(opts Options) (*Service, error) {
	if opts.Reader == nil {
		return nil, errors.New("engine: reader is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.URL == "" {
		return nil, errors.New("engine: stream url is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Service{
		url:     opts.URL,
		reader:  opts.Reader,
		store:   opts.Store,
		logger:  logger,
		tasks:   make(chan func(), taskQueueSize),
		stopped: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	cfg := opts.Stream

	s.sched = scheduler.New(opts.Clock, func(fn func()) { s.post(fn) })
	s.transport = transport.New(transport.Options{
		URL:     opts.URL,
		Dialer:  opts.Dialer,
		Handler: streamHandler{s},
		Post:    func(fn func()) { s.post(fn) },
		Logger:  logger.WithPrefix("transport"),
	})
	s.reconnect = reconnect.New(reconnect.Config{
		Base:        cfg.ReconnectBase,
		Ceiling:     cfg.ReconnectCeiling,
		MaxAttempts: cfg.ReconnectMaxAttempts,
	}, s.sched, s.redial)
	s.heartbeat = heartbeat.New(cfg.HeartbeatInterval, cfg.HeartbeatTimeout, s.sched, s.transport.Send, func() {
		s.transport.Drop(errHeartbeatTimeout)
	})
	s.throttle = throttle.New(cfg.ThrottleWindow, s.sched, func() { s.requestReconcile("structural") })
	s.seen = dedup.New(cfg.DedupSize)
	s.dispatcher = cache.NewDispatcher(cache.Options{
		EventLogSize: cfg.EventLogSize,
		Logger:       logger.WithPrefix("cache"),
		Now:          s.sched.Now,
	})
	s.conn.MaxAttempts = s.reconnect.MaxAttempts()
	return s, nil
}

// Start runs the event loop until ctx is cancelled or Close is called, then
// connects and issues the initial reconciliation read. Only the first call
// has any effect.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go func() {
			select {
			case <-ctx.Done():
				s.cancel()
			case <-s.stopped:
			}
		}()
		go s.run()
		s.post(func() {
			s.connect()
			s.requestReconcile("start")
		})
	})
}

// Close stops the loop after tearing everything down. It is safe to call
// more than once, and before Start.
func (s *Service) Close() {
	s.cancel()
	s.startOnce.Do(func() { close(s.stopped) })
	<-s.stopped
}

// Done is closed once the loop has exited.
func (s *Service) Done() <-chan struct{} { return s.stopped }

// Connect opens the stream. After a terminal failure it starts a fresh
// series of attempts; a pending reconnect is replaced by an immediate dial.
func (s *Service) Connect() {
	s.post(func() {
		s.reconnect.Reset()
		if s.everOpened {
			s.resumed = true
		}
		s.connect()
	})
}

// Disconnect closes the stream without scheduling a reconnect.
func (s *Service) Disconnect() {
	s.post(s.teardown)
}

// Reconcile requests a full reconciliation read.
func (s *Service) Reconcile() {
	s.post(func() { s.requestReconcile("manual") })
}

// Acknowledge clears a server error that requires acknowledgement.
func (s *Service) Acknowledge() {
	s.store.Acknowledge()
}

// PendingTimers reports the number of armed timers.
func (s *Service) PendingTimers() int { return s.sched.Pending() }

// PendingTimerNames lists armed timers for diagnostics.
func (s *Service) PendingTimerNames() []string { return s.sched.PendingNames() }

func (s *Service) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.ctx.Done():
			s.teardown()
			s.throttle.Stop()
			s.sched.CancelAll()
			return
		}
	}
}

// post queues fn for the loop. It reports false once the loop has exited.
func (s *Service) post(fn func()) bool {
	select {
	case s.tasks <- fn:
		return true
	case <-s.stopped:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (s *Service) call(fn func()) bool {
	done := make(chan struct{})
	if !s.post(func() { fn(); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Service) now() time.Time { return s.sched.Now() }

func (s *Service) setConn(c state.Connection) {
	c.MaxAttempts = s.reconnect.MaxAttempts()
	s.conn = c
	s.store.SetConnection(c)
}

func (s *Service) connect() {
	if s.transport.Active() {
		return
	}
	s.setConn(state.Connection{
		State:            state.Connecting,
		LastError:        s.conn.LastError,
		ReconnectAttempt: s.reconnect.Attempt(),
		LastOpened:       s.conn.LastOpened,
	})
	s.transport.Connect(s.ctx)
}

// redial runs when a scheduled reconnect is due.
func (s *Service) redial() {
	s.logger.Info("reconnecting", "attempt", s.reconnect.Attempt())
	s.connect()
}

func (s *Service) teardown() {
	s.transport.Disconnect()
	s.heartbeat.Stop()
	s.reconnect.Cancel()
	s.throttle.Stop()
	if s.conn.State != state.Idle {
		s.setConn(state.Connection{State: state.Idle, LastOpened: s.conn.LastOpened})
	}
}

func (s *Service) opened() {
	reconnected := s.reconnect.OnOpen() || s.resumed
	s.resumed = false
	s.everOpened = true
	s.setConn(state.Connection{State: state.Open, ID: s.transport.ID(), LastOpened: s.now()})
	s.heartbeat.Start()
	if reconnected {
		s.requestReconcile("reconnected")
	}
}

func (s *Service) failed(err error) {
	c := s.conn
	c.LastError = err.Error()
	s.setConn(c)
}

func (s *Service) closed(err error, intentional bool) {
	s.heartbeat.Stop()
	if intentional {
		s.reconnect.Cancel()
		return
	}

	c := state.Connection{LastOpened: s.conn.LastOpened, LastError: s.conn.LastError}
	if err != nil {
		c.LastError = err.Error()
	}
	out := s.reconnect.OnUnexpectedClose()
	if out.Exhausted {
		c.State = state.ClosedTerminal
		c.ReconnectAttempt = out.Attempt
		c.LastError = s.reconnect.ExhaustedMessage()
		s.setConn(c)
		s.logger.Error("stream lost", "err", fmt.Errorf("%w after %d attempts", reconnect.ErrExhausted, out.Attempt))
		s.requestReconcile("terminal")
		return
	}
	c.State = state.Reconnecting
	c.ReconnectAttempt = out.Attempt
	c.RetryIn = out.Delay
	c.RetryAt = s.now().Add(out.Delay)
	s.setConn(c)
	s.logger.Info("reconnect scheduled", "attempt", out.Attempt, "delay", out.Delay)
}

func (s *Service) frame(data []byte) {
	msgs, err := wire.Normalize(data)
	if err != nil {
		s.messageError(err)
	}
	changed := false
	for _, n := range msgs {
		if !s.seen.ShouldProcess(n.ID) {
			continue
		}
		m, err := wire.Decode(n)
		if err != nil {
			s.messageError(err)
			continue
		}
		if wire.IsLiveness(m) {
			s.heartbeat.Ack()
		}
		res := s.dispatcher.Apply(n, m)
		if res.Err != nil {
			continue
		}
		if res.Liveness || res.Applied {
			changed = true
		}
		if res.Applied && s.reconciling {
			s.remember(n, m)
		}
		if res.ServerError != nil {
			s.serverError(*res.ServerError)
		}
		if res.Structural {
			s.throttle.Notify()
		}
	}
	if changed {
		s.publish()
	}
}

func (s *Service) remember(n wire.Normalized, m wire.Message) {
	if len(s.replay) >= replayLimit {
		// Too much happened during the read; read again instead.
		s.reconcileAgain = true
		return
	}
	s.replay = append(s.replay, replayed{n: n, m: m})
}

func (s *Service) serverError(m wire.ServerError) {
	appErr := state.NewAppError(m, s.now())
	s.logger.Warn("server error", "type", m.ErrorType, "message", m.Message, "requires_ack", appErr.RequiresAck)
	s.store.ReportAppError(appErr)
}

func (s *Service) messageError(err error) {
	s.logger.Warn("malformed message", "err", err)
	s.store.MessageError(err)
}

func (s *Service) publish() {
	s.store.SetCache(s.dispatcher.Snapshot(), s.dispatcher.Events())
}

type streamHandler struct{ s *Service }

func (h streamHandler) Opened()                            { h.s.opened() }
func (h streamHandler) Message(data []byte)                { h.s.frame(data) }
func (h streamHandler) Failed(err error)                   { h.s.failed(err) }
func (h streamHandler) Closed(err error, intentional bool) { h.s.closed(err, intentional) }
