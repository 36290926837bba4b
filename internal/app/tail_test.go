package app

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/five82/lookout/internal/eventlog"
	"github.com/five82/lookout/internal/state"
)

func TestFormatEntry(t *testing.T) {
	at := time.Date(2025, 1, 1, 14, 32, 15, 0, time.UTC)
	got := formatEntry(eventlog.Entry{Seq: 7, At: at, Type: "file_state_change", ID: "m1", Data: json.RawMessage(`{"file_id":"f1"}`)})
	want := `14:32:15 #7 file_state_change m1 {"file_id":"f1"}`
	if got != want {
		t.Fatalf("formatEntry = %q, want %q", got, want)
	}

	long := formatEntry(eventlog.Entry{Seq: 1, At: at, Type: "x", Data: json.RawMessage(`"` + strings.Repeat("a", 400) + `"`)})
	if !strings.HasSuffix(long, "...") || !strings.Contains(long, " x - ") {
		t.Fatalf("long entry = %q", long)
	}

	// Multibyte names are cut on rune boundaries.
	name := strings.Repeat("é", 100) + strings.Repeat("映", 100)
	cut := formatEntry(eventlog.Entry{Seq: 2, At: at, Type: "x", Data: json.RawMessage(`{"n":"` + name + `"}`)})
	if !utf8.ValidString(cut) {
		t.Fatalf("truncated entry is not valid UTF-8: %q", cut)
	}
	data := strings.TrimPrefix(cut, "14:32:15 #2 x - ")
	if n := utf8.RuneCountInString(data); n != maxDataWidth {
		t.Fatalf("data runes = %d, want %d", n, maxDataWidth)
	}
}

func TestTailPrinter_PrintsOnlyNewLines(t *testing.T) {
	var p tailPrinter
	var b strings.Builder

	snap := state.Snapshot{
		Connection: state.Connection{State: state.Open},
		Events:     []eventlog.Entry{{Seq: 1, Type: "a"}, {Seq: 2, Type: "b"}},
	}
	if err := p.print(&b, snap); err != nil {
		t.Fatalf("print: %v", err)
	}
	snap.Events = append(snap.Events, eventlog.Entry{Seq: 3, Type: "c"})
	if err := p.print(&b, snap); err != nil {
		t.Fatalf("print: %v", err)
	}
	snap.Connection = state.Connection{State: state.Reconnecting, ReconnectAttempt: 1, MaxAttempts: 5, RetryIn: 3 * time.Second}
	if err := p.print(&b, snap); err != nil {
		t.Fatalf("print: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %q, want 5", lines)
	}
	if lines[0] != "-- stream open" || lines[4] != "-- stream reconnecting (attempt 1/5 in 3s)" {
		t.Fatalf("connection lines = %q / %q", lines[0], lines[4])
	}
	if !strings.Contains(lines[3], "#3 c") {
		t.Fatalf("line 3 = %q, want event c", lines[3])
	}
}
