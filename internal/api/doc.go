// Package api provides the HTTP client for the media server's
// request/response API and the domain records shared by the sync layer.
//
// # Overview
//
// The sync layer keeps its materialized cache current from pushed events,
// but it falls back to full reads whenever incremental updates cannot be
// trusted: on first load, after reconnecting from an outage, after a burst of
// structural changes, and when reconnection is exhausted. This package
// implements those reads.
//
// # Endpoints
//
//   - GET /api/sessions: every processing session
//   - GET /api/sessions/{id}/files: the files owned by one session
//   - GET /api/workers/status: worker pool, queue counts and pause flags
//
// The streaming endpoint lives next to them; StreamURL derives its ws:// or
// wss:// URL from the API base URL so both always use the same host and a
// matching security level.
//
// # Client Usage
//
//	client, err := api.NewClient("127.0.0.1:7487")
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	sessions, err := client.FetchSessions(ctx)
//	if err != nil {
//		log.Printf("session read failed: %v", err)
//	}
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json header
//   - Include User-Agent: lookout/0.1 header
//   - Have a 10-second timeout
//   - Return wrapped errors with context about what failed
//
// # Records
//
// Session, File and WorkerStatus mirror the server's JSON. Timestamps stay
// strings on the wire and are parsed on demand (ParsedDiscoveredAt,
// ParsedTimestamp), accepting RFC 3339 and the server's
// "2006-01-02 15:04:05" local layout. FileState keeps unknown values so a
// newer server never breaks an older client.
//
// # Error Handling
//
//   - Client initialization errors: invalid api_bind format
//   - Network errors: wrapped as "execute request"
//   - HTTP errors: "api <path> returned status <code>" for 4xx/5xx
//   - Decode errors: wrapped as "decode response"
//
// The Reader interface is what the sync engine consumes, so tests can supply
// an in-memory fake instead of a server.
package api
