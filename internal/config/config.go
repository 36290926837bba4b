package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything lookout reads from its TOML file.
type Config struct {
	APIBind string
	LogFile string
	Stream  Stream
}

// Stream tunes the real-time sync layer.
type Stream struct {
	Path                 string
	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration // zero disables the pong watchdog
	ReconnectBase        time.Duration
	ReconnectCeiling     time.Duration
	ReconnectMaxAttempts int
	ThrottleWindow       time.Duration
	EventLogSize         int
	DedupSize            int
	ReconcileEvery       time.Duration // zero disables periodic reconciliation
}

const (
	defaultConfigPath = "~/.config/lookout/config.toml"
	defaultLogFile    = "~/.local/share/lookout/lookout.log"
	defaultAPIBind    = "127.0.0.1:7487"
	defaultStreamPath = "/api/ws"
)

// DefaultStream returns the stream settings used when the file omits them.
func DefaultStream() Stream {
	return Stream{
		Path:                 defaultStreamPath,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBase:        3 * time.Second,
		ReconnectCeiling:     30 * time.Second,
		ReconnectMaxAttempts: 5,
		ThrottleWindow:       5 * time.Second,
		EventLogSize:         100,
		DedupSize:            1000,
		ReconcileEvery:       5 * time.Minute,
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{APIBind: defaultAPIBind, LogFile: mustExpand(defaultLogFile), Stream: DefaultStream()}
}

type rawConfig struct {
	APIBind string    `toml:"api_bind"`
	LogFile string    `toml:"log_file"`
	Stream  rawStream `toml:"stream"`
}

// Zero means "use the default" for every key except those held by pointer,
// where an explicit zero disables the feature.
type rawStream struct {
	Path                 string `toml:"path"`
	HeartbeatIntervalMS  int64  `toml:"heartbeat_interval_ms"`
	HeartbeatTimeoutMS   int64  `toml:"heartbeat_timeout_ms"`
	ReconnectBaseMS      int64  `toml:"reconnect_base_ms"`
	ReconnectCeilingMS   int64  `toml:"reconnect_ceiling_ms"`
	ReconnectMaxAttempts int    `toml:"reconnect_max_attempts"`
	ThrottleWindowMS     int64  `toml:"throttle_window_ms"`
	EventLogSize         int    `toml:"event_log_size"`
	DedupSize            int    `toml:"dedup_size"`
	ReconcileEveryS      *int64 `toml:"reconcile_every_s"`
}

// Load locates and parses the lookout config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := raw.Stream.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	if bind := strings.TrimSpace(raw.APIBind); bind != "" {
		cfg.APIBind = bind
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}
	raw.Stream.apply(&cfg.Stream)
	if err := cfg.Stream.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

type limit struct {
	key   string
	value int64
}

func (r rawStream) validate() error {
	limits := []limit{
		{"heartbeat_interval_ms", r.HeartbeatIntervalMS},
		{"heartbeat_timeout_ms", r.HeartbeatTimeoutMS},
		{"reconnect_base_ms", r.ReconnectBaseMS},
		{"reconnect_ceiling_ms", r.ReconnectCeilingMS},
		{"reconnect_max_attempts", int64(r.ReconnectMaxAttempts)},
		{"throttle_window_ms", r.ThrottleWindowMS},
		{"event_log_size", int64(r.EventLogSize)},
		{"dedup_size", int64(r.DedupSize)},
	}
	if r.ReconcileEveryS != nil {
		limits = append(limits, limit{"reconcile_every_s", *r.ReconcileEveryS})
	}
	var errs []error
	for _, v := range limits {
		if v.value < 0 {
			errs = append(errs, fmt.Errorf("stream.%s must not be negative (got %d)", v.key, v.value))
		}
	}
	return errors.Join(errs...)
}

// validate checks relations between effective values, defaults included.
func (s Stream) validate() error {
	if s.ReconnectCeiling < s.ReconnectBase {
		return fmt.Errorf("stream.reconnect_ceiling_ms (%d) is below reconnect_base_ms (%d)",
			s.ReconnectCeiling.Milliseconds(), s.ReconnectBase.Milliseconds())
	}
	return nil
}

func (r rawStream) apply(s *Stream) {
	if path := strings.TrimSpace(r.Path); path != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		s.Path = path
	}
	setMillis(&s.HeartbeatInterval, r.HeartbeatIntervalMS)
	s.HeartbeatTimeout = time.Duration(r.HeartbeatTimeoutMS) * time.Millisecond
	setMillis(&s.ReconnectBase, r.ReconnectBaseMS)
	setMillis(&s.ReconnectCeiling, r.ReconnectCeilingMS)
	if r.ReconnectMaxAttempts > 0 {
		s.ReconnectMaxAttempts = r.ReconnectMaxAttempts
	}
	setMillis(&s.ThrottleWindow, r.ThrottleWindowMS)
	if r.EventLogSize > 0 {
		s.EventLogSize = r.EventLogSize
	}
	if r.DedupSize > 0 {
		s.DedupSize = r.DedupSize
	}
	if r.ReconcileEveryS != nil {
		s.ReconcileEvery = time.Duration(*r.ReconcileEveryS) * time.Second
	}
}

func setMillis(dst *time.Duration, ms int64) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

// DefaultPath returns the config path used when none is given.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
