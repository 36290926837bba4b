package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogs_PrintsFilteredTail(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "lookout.log")
	content := strings.Join([]string{
		"2025-01-02 15:04:01 INFO lookout: stream open",
		"2025-01-02 15:04:02 WARN lookout: reconnecting attempt=1",
		"2025-01-02 15:04:03 ERRO lookout: reconciliation failed",
	}, "\n") + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("log_file = \""+logPath+"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var b strings.Builder
	if err := Logs(Options{ConfigPath: cfgPath}, &b, 1, "warn"); err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if got, want := b.String(), "2025-01-02 15:04:03 ERRO lookout: reconciliation failed\n"; got != want {
		t.Fatalf("Logs output = %q, want %q", got, want)
	}

	if err := Logs(Options{ConfigPath: cfgPath}, &b, 1, "loud"); err == nil {
		t.Fatalf("Logs with bad level succeeded, want error")
	}
}
