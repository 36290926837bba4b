package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != defaultAPIBind {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, defaultAPIBind)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.Stream != DefaultStream() {
		t.Fatalf("Stream = %+v, want defaults", cfg.Stream)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(writeConfig(t, `
api_bind = "  10.0.0.5:9999  "
log_file = "  ~/logs/lookout.log  "

[stream]
path = "events"
heartbeat_interval_ms = 10000
heartbeat_timeout_ms = 45000
reconnect_base_ms = 1000
reconnect_ceiling_ms = 8000
reconnect_max_attempts = 9
throttle_window_ms = 2500
event_log_size = 50
dedup_size = 200
reconcile_every_s = 0
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "10.0.0.5:9999" {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, "10.0.0.5:9999")
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}

	want := Stream{
		Path:                 "/events",
		HeartbeatInterval:    10 * time.Second,
		HeartbeatTimeout:     45 * time.Second,
		ReconnectBase:        time.Second,
		ReconnectCeiling:     8 * time.Second,
		ReconnectMaxAttempts: 9,
		ThrottleWindow:       2500 * time.Millisecond,
		EventLogSize:         50,
		DedupSize:            200,
		ReconcileEvery:       0,
	}
	if cfg.Stream != want {
		t.Fatalf("Stream = %+v, want %+v", cfg.Stream, want)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `
api_bind = "   "
log_file = ""

[stream]
path = " "
heartbeat_interval_ms = 0
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != defaultAPIBind {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, defaultAPIBind)
	}
	if cfg.Stream != DefaultStream() {
		t.Fatalf("Stream = %+v, want defaults", cfg.Stream)
	}
}

func TestLoad_RejectsNegativeValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"heartbeat", "[stream]\nheartbeat_interval_ms = -1\n", "heartbeat_interval_ms"},
		{"attempts", "[stream]\nreconnect_max_attempts = -3\n", "reconnect_max_attempts"},
		{"reconcile", "[stream]\nreconcile_every_s = -60\n", "reconcile_every_s"},
		{"ceiling below base", "[stream]\nreconnect_base_ms = 5000\nreconnect_ceiling_ms = 1000\n", "reconnect_ceiling_ms"},
		{"base above default ceiling", "[stream]\nreconnect_base_ms = 60000\n", "reconnect_ceiling_ms (30000) is below reconnect_base_ms (60000)"},
		{"ceiling below default base", "[stream]\nreconnect_ceiling_ms = 1000\n", "reconnect_ceiling_ms (1000) is below reconnect_base_ms (3000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load returned nil error")
			}
			if !strings.Contains(err.Error(), "invalid config") || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want invalid config mentioning %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(writeConfig(t, "api_bind = \n"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("err = %v, want parse config error", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/x/y.toml")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "x", "y.toml") {
		t.Fatalf("expandPath = %q, want under %q", got, home)
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatal("expandPath(empty) returned nil error")
	}
}
