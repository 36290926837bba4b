package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// DefaultReadLimit bounds a single inbound frame. Batches of file events can
// exceed the library default of 32 KiB.
const DefaultReadLimit = 4 << 20

// Socket is the subset of *websocket.Conn the transport uses.
type Socket interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// WebsocketDialer dials with github.com/coder/websocket.
type WebsocketDialer struct {
	UserAgent  string
	ReadLimit  int64
	HTTPClient *http.Client
}

// Dial implements Dialer.
func (d WebsocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	header := http.Header{}
	if d.UserAgent != "" {
		header.Set("User-Agent", d.UserAgent)
	}
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{ //nolint:bodyclose // websocket.Dial closes the response body internally
		HTTPHeader: header,
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	conn.SetReadLimit(limit)
	return conn, nil
}
