package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Reader defines the reconciliation reads the sync layer depends on.
// It is implemented by *Client and can be faked in tests.
type Reader interface {
	FetchSessions(ctx context.Context) ([]Session, error)
	FetchSessionFiles(ctx context.Context, sessionID string) ([]File, error)
	FetchWorkerStatus(ctx context.Context) (*WorkerStatus, error)
}

// Ensure Client implements Reader at compile time.
var _ Reader = (*Client)(nil)

// Client talks to the media server's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind    = "127.0.0.1:7487"
	defaultUserAgent  = "lookout/0.1"
	defaultStreamPath = "/api/ws"
	requestTimeout    = 10 * time.Second
)

// NewClient builds a Client using the provided apiBind host:port value or URL.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// UserAgent returns the User-Agent header value the client sends.
func (c *Client) UserAgent() string { return c.userAgent }

// StreamURL returns the WebSocket endpoint URL, using wss when the API is
// served over https.
func (c *Client) StreamURL(path string) string {
	if strings.TrimSpace(path) == "" {
		path = defaultStreamPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	return u.String()
}

// FetchSessions retrieves every session.
func (c *Client) FetchSessions(ctx context.Context) ([]Session, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload SessionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", &payload); err != nil {
		return nil, err
	}
	return payload.Sessions, nil
}

// FetchSessionFiles retrieves the files owned by one session.
func (c *Client) FetchSessionFiles(ctx context.Context, sessionID string) ([]File, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, fmt.Errorf("session id required")
	}
	var payload FileListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id)+"/files", &payload); err != nil {
		return nil, err
	}
	for i := range payload.Files {
		if payload.Files[i].SessionID == "" {
			payload.Files[i].SessionID = id
		}
	}
	return payload.Files, nil
}

// FetchWorkerStatus retrieves the worker pool status.
func (c *Client) FetchWorkerStatus(ctx context.Context) (*WorkerStatus, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload WorkerStatus
	if err := c.do(ctx, http.MethodGet, "/api/workers/status", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.String(), resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
