// Package ui implements the lookout terminal dashboard using Bubble Tea.
//
// # Architecture
//
// The dashboard never talks to the server. Everything it shows comes from
// a state.Store snapshot, and every action it takes goes through the
// Control interface, which the sync engine implements by posting onto its
// event loop. Key presses therefore return immediately.
//
//	engine loop ──publish──▶ state.Store ──Subscribe──▶ changeMsg ──▶ Model.Update
//	     ▲                                                              │
//	     └───────────────────────── Control ◀──────── key press ────────┘
//
// A change notification is turned into a fresh Snapshot by
// waitForChangeCmd, which re-arms itself after every delivery. A one
// second tick keeps the reconnect countdown and "synced ago" labels moving
// when nothing else changes.
//
// # Layout
//
//	┌ header: connection, endpoint, totals, workers, sync status ┐
//	│ banner: visible server error (red when it needs an ack)    │
//	├ sessions table (newest first)                              ┤
//	├ lower pane: files of the selected session, or event log    ┤
//	└ footer: pane, theme, key help                              ┘
//
// # Key Bindings
//
//	r       refetch all sessions and files
//	c / d   connect / disconnect the stream
//	a       acknowledge the visible error
//	tab     switch the lower pane between files and events
//	T       cycle Nightfox, Kanagawa, Slate
//	?       toggle full help
//	q       quit
//
// The selected theme and pane are saved with the prefs package as soon as
// they change.
package ui
