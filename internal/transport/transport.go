// Package transport owns the single stream socket. It dials off the caller's
// event loop and posts every outcome back through the post function, so the
// Handler is only ever invoked on that loop.
//
// A generation counter is bumped on every Connect, Disconnect and Drop;
// results and frames from a superseded generation are discarded and their
// sockets closed.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Handler receives connection lifecycle events on the event loop.
type Handler interface {
	Opened()
	Message(data []byte)
	// Failed reports a connection error suitable for display. A Closed call
	// always follows.
	Failed(err error)
	// Closed reports that the socket is gone. intentional is true only for
	// Disconnect.
	Closed(err error, intentional bool)
}

// Options configures a Transport.
type Options struct {
	URL          string
	Dialer       Dialer
	Handler      Handler
	Post         func(func())
	Logger       *log.Logger
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Transport is a single reconnectable stream connection. All methods must be
// called on the event loop that Post delivers to.
type Transport struct {
	url          string
	dialer       Dialer
	handler      Handler
	post         func(func())
	logger       *log.Logger
	dialTimeout  time.Duration
	writeTimeout time.Duration

	gen        uint64
	id         string
	conn       Socket
	cancel     context.CancelFunc
	connecting bool
}

// New builds a Transport.
func New(opts Options) *Transport {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	t := &Transport{
		url:          opts.URL,
		dialer:       dialer,
		handler:      opts.Handler,
		post:         opts.Post,
		logger:       logger,
		dialTimeout:  opts.DialTimeout,
		writeTimeout: opts.WriteTimeout,
	}
	if t.dialTimeout <= 0 {
		t.dialTimeout = defaultDialTimeout
	}
	if t.writeTimeout <= 0 {
		t.writeTimeout = defaultWriteTimeout
	}
	return t
}

// Connect starts a dial unless one is in flight or the socket is open.
func (t *Transport) Connect(ctx context.Context) {
	if t.connecting || t.conn != nil {
		return
	}
	t.gen++
	gen := t.gen
	t.id = uuid.NewString()
	t.connecting = true
	connCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.logger.Debug("dialing stream", "url", t.url, "conn", t.id)

	go func() {
		dialCtx, stop := context.WithTimeout(connCtx, t.dialTimeout)
		defer stop()
		sock, err := t.dialer.Dial(dialCtx, t.url)
		t.post(func() { t.dialed(connCtx, gen, sock, err) })
	}()
}

func (t *Transport) dialed(ctx context.Context, gen uint64, sock Socket, err error) {
	if gen != t.gen {
		if sock != nil {
			go sock.Close(websocket.StatusNormalClosure, "superseded")
		}
		return
	}
	t.connecting = false
	if err != nil {
		t.release()
		err = fmt.Errorf("dial stream: %w", err)
		t.logger.Warn("stream dial failed", "conn", t.id, "err", err)
		t.handler.Failed(err)
		t.handler.Closed(err, false)
		return
	}
	t.conn = sock
	t.logger.Info("stream open", "url", t.url, "conn", t.id)
	go t.readLoop(ctx, gen, sock)
	t.handler.Opened()
}

func (t *Transport) readLoop(ctx context.Context, gen uint64, sock Socket) {
	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			t.post(func() { t.readFailed(gen, err) })
			return
		}
		t.post(func() {
			if gen == t.gen && t.conn != nil {
				t.handler.Message(data)
			}
		})
	}
}

func (t *Transport) readFailed(gen uint64, err error) {
	if gen != t.gen {
		return
	}
	t.gen++
	t.release()
	if status := websocket.CloseStatus(err); status != -1 {
		err = fmt.Errorf("stream closed by server (%d): %w", status, err)
	} else {
		err = fmt.Errorf("read stream: %w", err)
	}
	t.logger.Warn("stream closed", "conn", t.id, "err", err)
	t.handler.Closed(err, false)
}

// Disconnect closes the socket or abandons the dial in flight. It reports a
// Closed(nil, true) when anything was active.
func (t *Transport) Disconnect() {
	if !t.Active() {
		return
	}
	t.gen++
	t.closeConn(websocket.StatusNormalClosure, "client disconnect")
	t.release()
	t.logger.Info("stream disconnected", "conn", t.id)
	t.handler.Closed(nil, true)
}

// Drop closes an open socket as if the server had gone away; the handler sees
// an unexpected close carrying err.
func (t *Transport) Drop(err error) {
	if t.conn == nil {
		return
	}
	t.gen++
	t.closeConn(websocket.StatusGoingAway, "timeout")
	t.release()
	t.logger.Warn("stream dropped", "conn", t.id, "err", err)
	t.handler.Closed(err, false)
}

// Send writes a text frame. It returns false, after logging, when the
// socket is not open or the write fails.
func (t *Transport) Send(data []byte) bool {
	if t.conn == nil {
		t.logger.Warn("send on closed stream", "bytes", len(data))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()
	if err := t.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.Warn("stream write failed", "conn", t.id, "err", err)
		}
		return false
	}
	return true
}

// Open reports whether the socket is open.
func (t *Transport) Open() bool { return t.conn != nil }

// Connecting reports whether a dial is in flight.
func (t *Transport) Connecting() bool { return t.connecting }

// Active reports whether the transport is open or dialing.
func (t *Transport) Active() bool { return t.connecting || t.conn != nil }

// ID returns the correlation id of the current or last connection.
func (t *Transport) ID() string { return t.id }

func (t *Transport) closeConn(code websocket.StatusCode, reason string) {
	if t.conn == nil {
		return
	}
	sock := t.conn
	go sock.Close(code, reason)
}

func (t *Transport) release() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.conn = nil
	t.connecting = false
}
