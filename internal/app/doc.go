// Package app provides the orchestration layer for lookout.
//
// # Overview
//
// This package wires together configuration, logging, the HTTP client, the
// sync engine, the shared store and the UI. It is the composition root:
// every dependency is built here and nothing below it reaches for globals.
//
// # Architecture
//
//  1. Load config from ~/.config/lookout/config.toml (defaults when absent)
//  2. Open the log file; the dashboard owns the terminal
//  3. Build the api.Client and derive the stream URL from it
//  4. Create the shared state.Store and the engine.Service
//  5. Start the engine loop; it dials the stream and reads a first snapshot
//  6. Start the reconciler goroutine
//  7. Run the dashboard (or the tail printer) until exit or cancellation
//
// # Components
//
//   - app.go: Run and Tail entry points and the shared boot sequence
//   - logging.go: charmbracelet/log setup and log file handling
//   - poller.go: periodic reconciliation and the offline polling fallback
//   - tail.go: plain-text event printer used by "lookout tail"
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()
//	       ├─────> OpenLogFile() / NewLogger()
//	       ├─────> api.NewClient()
//	       ├─────> engine.New(store, client, dialer)
//	       ├─────> svc.Start()         dial + first reconciliation
//	       ├─────> StartReconciler()   background cadence
//	       └─────> ui.Run()            blocks
//
// # Reconciliation Cadence
//
// While the stream is open the reconciler asks for a full refetch every
// reconcile_every_s (five minutes by default) to heal drift that no message
// announced. Once the engine has given up reconnecting the dashboard would
// otherwise go stale, so the reconciler polls every 15 seconds instead,
// doubling the wait after each failed read up to two minutes. The engine
// coalesces overlapping requests, so the reconciler never waits for a read.
//
// # Error Handling
//
// Fatal errors (returned from Run and Tail):
//   - Config parse or validation failure
//   - Log file cannot be opened
//   - Invalid API bind address
//
// Everything after startup is recoverable: stream failures drive the
// reconnect state machine and failed reads are recorded on the store.
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{}); err != nil {
//		log.Fatalf("lookout failed: %v", err)
//	}
package app
