package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func writeLog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lookout.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestRead(t *testing.T) {
	var all []string
	for i := 1; i <= 10; i++ {
		all = append(all, fmt.Sprintf("2025-01-02 15:04:%02d INFO lookout: line %d", i, i))
	}
	path := writeLog(t, all)

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, all},
		{"read all (negative)", -1, all},
		{"read partial (5)", 5, all[5:]},
		{"read exactly all (10)", 10, all},
		{"read more than exists (20)", 20, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(path, tt.maxLines, log.DebugLevel)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRead_FiltersByLevel(t *testing.T) {
	path := writeLog(t, []string{
		"2025-01-02 15:04:01 DEBU lookout: frame applied type=file_added",
		"2025-01-02 15:04:02 INFO lookout: stream open",
		"2025-01-02 15:04:03 WARN lookout: reconnecting attempt=1",
		"2025-01-02 15:04:04 ERRO lookout: reconciliation failed",
		"  err=\"fetch sessions: 502\"",
		"2025-01-02 15:04:05 DEBU lookout: probe sent",
		"  detail",
	})

	got, err := Read(path, 0, log.WarnLevel)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{
		"2025-01-02 15:04:03 WARN lookout: reconnecting attempt=1",
		"2025-01-02 15:04:04 ERRO lookout: reconciliation failed",
		"  err=\"fetch sessions: 502\"",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}

	tail, err := Read(path, 2, log.WarnLevel)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(tail, want[1:]) {
		t.Fatalf("Read tail = %q, want %q", tail, want[1:])
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10, log.InfoLevel)
	if err != nil {
		t.Fatalf("Read missing: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("lines = %q, want none", lines)
	}
}

func TestLineLevel(t *testing.T) {
	cases := []struct {
		line string
		want log.Level
		ok   bool
	}{
		{"2025-01-02 15:04:05 INFO lookout: hi", log.InfoLevel, true},
		{"2025-01-02 15:04:05 ERRO lookout: bad", log.ErrorLevel, true},
		{"  continuation INFO", 0, false},
		{"", 0, false},
		{"a b c d INFO", 0, false},
	}
	for _, tc := range cases {
		got, ok := LineLevel(tc.line)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("LineLevel(%q) = %v, %v; want %v, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}
