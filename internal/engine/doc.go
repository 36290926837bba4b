// Package engine runs the real-time sync service: one event loop that owns
// the stream transport, the reconnection controller, the heartbeat, the
// structural refetch throttler and the cache dispatcher.
//
// # Event Loop
//
// Every state change happens on a single goroutine started by Start. Socket
// reads, dials, reconciliation reads and timer expiries run elsewhere and
// post closures back onto the loop, so none of the owned components need
// locks. The only object shared with consumers is the state.Store, which
// receives a copy of the cache after each processed frame.
//
//	socket frame → Normalize → dedup → Decode → Dispatcher.Apply → Store
//	                                              ↓ structural
//	                                          Throttler → reconcile
//
// # Reconciliation
//
// A full read of sessions, their files and the worker status replaces the
// cache. It runs on start, after a reconnect, when the throttler fires,
// when reconnection gives up, on a manual request, and periodically when the
// caller drives Reconcile from a ticker. Requests made while a read is in
// flight collapse into one follow-up read. Messages applied while a read is
// in flight are replayed on top of its result.
//
// # Teardown
//
// Disconnect and Close cancel the heartbeat, the pending reconnect and the
// trailing throttle trigger, and discard the transport. PendingTimers then
// reports zero.
package engine
