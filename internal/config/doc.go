// Package config handles loading and parsing the lookout configuration file.
//
// # Overview
//
// lookout needs to know where the media pipeline's HTTP API lives and how
// aggressively to keep its real-time stream alive. Both come from a single
// TOML file; every key is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/lookout/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing, empty or zero, use defaults
//
// # Example
//
//	api_bind = "127.0.0.1:7487"
//	log_file = "~/.local/share/lookout/lookout.log"
//
//	[stream]
//	path = "/api/ws"
//	heartbeat_interval_ms = 30000
//	heartbeat_timeout_ms = 0      # 0 disables the pong watchdog
//	reconnect_base_ms = 3000
//	reconnect_ceiling_ms = 30000
//	reconnect_max_attempts = 5
//	throttle_window_ms = 5000
//	event_log_size = 100
//	dedup_size = 1000
//	reconcile_every_s = 300      # 0 disables periodic reconciliation
//
// # Validation
//
// Negative numbers and a reconnect ceiling below the base are rejected with
// an "invalid config" error listing every offending key. Parse failures are
// wrapped as "parse config".
//
// # Path Expansion
//
// Paths beginning with ~ are expanded against the user's home directory and
// made absolute.
package config
