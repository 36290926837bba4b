// Package state provides thread-safe state sharing between the sync engine
// and its consumers.
//
// # Overview
//
// The sync engine runs a single event loop that owns the cache, the
// ownership index and the connection controllers. Nothing outside that loop
// may touch them. The Store is the one object the loop shares: after every
// processed frame, connection transition or reconciliation the loop writes a
// copy of what changed, and the dashboard or the tail printer reads
// snapshots on their own schedule.
//
//	Event loop (engine):            Consumers (UI, tail):
//	┌─────────────────────┐        ┌─────────────────────┐
//	│ frame → dispatcher  │        │                     │
//	│ store.SetCache()    │───────→│ store.Snapshot()    │
//	│ store.SetConnection │ (mutex)│      ↓              │
//	│ store.EndReconcile  │        │ render / print      │
//	└─────────────────────┘        └─────────────────────┘
//
// # Core Types
//
// Snapshot:
//   - Connection: lifecycle state, retry countdown, last error string
//   - Cache: deep copy of sessions, files and worker status
//   - Events: recent applied messages, oldest first
//   - AppError: the visible server error, if any
//   - Reconcile status and malformed-message counters
//
// Connection states:
//
//	Idle → Connecting → Open → Reconnecting → Connecting → ...
//	                              ↓ (attempts exhausted)
//	                         ClosedTerminal
//
// # Application Errors
//
// Server errors of the resource-exhaustion family (resource_exhausted,
// disk_full, out_of_space, quota_exceeded) require acknowledgement. Until
// Acknowledge is called, ReportAppError refuses to replace them with a
// non-critical error, so a storm of minor errors cannot hide a full disk.
//
// # Notifications
//
// Subscribe hands out a channel with a one-slot buffer. Writers fill the
// slot without blocking; a burst of updates becomes a single wake-up, and
// the reader then takes a fresh Snapshot. Writers never wait on readers.
//
// # Testing Considerations
//
// The Store is safe to construct with zero value:
//
//	store := &state.Store{}  // Ready to use immediately
//
// Snapshot returns a zero Snapshot, with an empty cache, if never updated.
package state
