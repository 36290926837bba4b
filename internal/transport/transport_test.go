package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type loop struct {
	tasks chan func()
}

func newLoop() *loop { return &loop{tasks: make(chan func(), 256)} }

func (l *loop) post(fn func()) { l.tasks <- fn }

// runUntil executes posted tasks on the test goroutine until cond holds.
func (l *loop) runUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case fn := <-l.tasks:
			fn()
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

type closeEvent struct {
	err         error
	intentional bool
}

type recorder struct {
	opened   int
	messages []string
	failed   []error
	closed   []closeEvent
}

func (r *recorder) Opened()          { r.opened++ }
func (r *recorder) Message(p []byte) { r.messages = append(r.messages, string(p)) }
func (r *recorder) Failed(err error) { r.failed = append(r.failed, err) }
func (r *recorder) Closed(err error, intentional bool) {
	r.closed = append(r.closed, closeEvent{err: err, intentional: intentional})
}

func (r *recorder) has(msg string) bool {
	for _, m := range r.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func newStreamServer(t *testing.T, serve func(ctx context.Context, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		serve(r.Context(), c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTransport(url string, d Dialer, rec *recorder, l *loop) *Transport {
	return New(Options{URL: url, Dialer: d, Handler: rec, Post: l.post})
}

func TestTransport_OpenReceiveSendDisconnect(t *testing.T) {
	url := newStreamServer(t, func(ctx context.Context, c *websocket.Conn) {
		if err := c.Write(ctx, websocket.MessageText, []byte("hello")); err != nil {
			return
		}
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			if err := c.Write(ctx, websocket.MessageText, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	})
	l, rec := newLoop(), &recorder{}
	tr := newTransport(url, WebsocketDialer{UserAgent: "lookout-test"}, rec, l)

	tr.Connect(context.Background())
	l.runUntil(t, func() bool { return rec.opened == 1 && rec.has("hello") })
	if tr.ID() == "" {
		t.Fatal("connection id not assigned")
	}

	if !tr.Send([]byte("ping")) {
		t.Fatal("Send on open stream = false")
	}
	l.runUntil(t, func() bool { return rec.has("echo:ping") })

	tr.Disconnect()
	if len(rec.closed) != 1 || !rec.closed[0].intentional || rec.closed[0].err != nil {
		t.Fatalf("closed = %+v, want one intentional close", rec.closed)
	}
	if tr.Open() || tr.Active() {
		t.Fatal("transport still active after Disconnect")
	}
	if tr.Send([]byte("ping")) {
		t.Fatal("Send after Disconnect = true")
	}
	tr.Disconnect()
	if len(rec.closed) != 1 {
		t.Fatalf("second Disconnect reported close: %+v", rec.closed)
	}
}

func TestTransport_ServerCloseIsUnexpected(t *testing.T) {
	url := newStreamServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Close(websocket.StatusGoingAway, "restart")
	})
	l, rec := newLoop(), &recorder{}
	tr := newTransport(url, WebsocketDialer{}, rec, l)

	tr.Connect(context.Background())
	l.runUntil(t, func() bool { return len(rec.closed) == 1 })

	if rec.closed[0].intentional || rec.closed[0].err == nil {
		t.Fatalf("closed = %+v, want unexpected close with error", rec.closed[0])
	}
	if websocket.CloseStatus(rec.closed[0].err) != websocket.StatusGoingAway {
		t.Fatalf("close status = %v, want going away", websocket.CloseStatus(rec.closed[0].err))
	}
	if tr.Open() {
		t.Fatal("transport open after server close")
	}
}

func TestTransport_DialFailureReportsErrorThenClose(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	l, rec := newLoop(), &recorder{}
	tr := newTransport("ws"+strings.TrimPrefix(srv.URL, "http"), WebsocketDialer{}, rec, l)

	tr.Connect(context.Background())
	l.runUntil(t, func() bool { return len(rec.closed) == 1 })

	if len(rec.failed) != 1 || !strings.Contains(rec.failed[0].Error(), "dial stream") {
		t.Fatalf("failed = %v, want one dial error", rec.failed)
	}
	if rec.closed[0].intentional || rec.opened != 0 {
		t.Fatalf("closed = %+v opened = %d", rec.closed, rec.opened)
	}
	if tr.Active() {
		t.Fatal("transport active after failed dial")
	}
}

type fakeSocket struct {
	closed atomic.Bool
	mu     sync.Mutex
	writes [][]byte
}

func (s *fakeSocket) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	<-ctx.Done()
	return 0, nil, ctx.Err()
}

func (s *fakeSocket) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, p)
	return nil
}

func (s *fakeSocket) Close(websocket.StatusCode, string) error {
	s.closed.Store(true)
	return nil
}

type gatedDialer struct {
	dials   atomic.Int32
	release chan Socket
}

func (d *gatedDialer) Dial(context.Context, string) (Socket, error) {
	d.dials.Add(1)
	return <-d.release, nil
}

func TestTransport_ConnectIsNoopWhileDialing(t *testing.T) {
	l, rec := newLoop(), &recorder{}
	d := &gatedDialer{release: make(chan Socket, 1)}
	tr := newTransport("ws://unused", d, rec, l)

	tr.Connect(context.Background())
	tr.Connect(context.Background())
	if !tr.Connecting() {
		t.Fatal("Connecting = false during dial")
	}

	sock := &fakeSocket{}
	d.release <- sock
	l.runUntil(t, func() bool { return rec.opened == 1 })
	tr.Connect(context.Background())

	if got := d.dials.Load(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}
	tr.Disconnect()
	l.runUntil(t, sock.closed.Load)
}

func TestTransport_SupersededDialIsDiscarded(t *testing.T) {
	l, rec := newLoop(), &recorder{}
	d := &gatedDialer{release: make(chan Socket, 1)}
	tr := newTransport("ws://unused", d, rec, l)

	tr.Connect(context.Background())
	tr.Disconnect()
	if len(rec.closed) != 1 || !rec.closed[0].intentional {
		t.Fatalf("closed = %+v, want intentional", rec.closed)
	}

	sock := &fakeSocket{}
	d.release <- sock
	l.runUntil(t, sock.closed.Load)
	if rec.opened != 0 || tr.Open() {
		t.Fatal("superseded dial opened the transport")
	}
}

func TestTransport_DropReportsUnexpectedClose(t *testing.T) {
	l, rec := newLoop(), &recorder{}
	d := &gatedDialer{release: make(chan Socket, 1)}
	tr := newTransport("ws://unused", d, rec, l)
	sock := &fakeSocket{}
	d.release <- sock

	tr.Connect(context.Background())
	l.runUntil(t, func() bool { return rec.opened == 1 })
	if !tr.Send([]byte(`{"type":"ping"}`)) {
		t.Fatal("Send = false on open socket")
	}

	tr.Drop(context.DeadlineExceeded)
	if len(rec.closed) != 1 || rec.closed[0].intentional {
		t.Fatalf("closed = %+v, want unexpected", rec.closed)
	}
	l.runUntil(t, sock.closed.Load)
	if tr.Send([]byte("x")) {
		t.Fatal("Send after Drop = true")
	}
}
