package api

import (
	"testing"
	"time"
)

func TestFileState(t *testing.T) {
	if !FileComplete.Terminal() || !FileFailed.Terminal() || FileCopied.Terminal() {
		t.Fatal("Terminal mismatch")
	}
	if FileState("transcoding").Terminal() {
		t.Fatal("unknown state reported terminal")
	}
}

func TestCloneIsolation(t *testing.T) {
	pct := 40.0
	f := File{ID: "f1", ProgressPct: &pct}
	dup := f.Clone()
	*dup.ProgressPct = 99
	if *f.ProgressPct != 40 {
		t.Fatal("File.Clone shares ProgressPct")
	}

	w := &WorkerStatus{Workers: []WorkerEntry{{ID: "w1"}}, QueueCounts: map[string]int{"q": 1}}
	wd := w.Clone()
	wd.Workers[0].ID = "mutated"
	wd.QueueCounts["q"] = 5
	if w.Workers[0].ID != "w1" || w.QueueCounts["q"] != 1 {
		t.Fatal("WorkerStatus.Clone shares state")
	}
	if (*WorkerStatus)(nil).Clone() != nil {
		t.Fatal("nil Clone should be nil")
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if (Session{DiscoveredAt: "2025-12-13T10:11:12Z"}).ParsedDiscoveredAt().IsZero() {
		t.Fatalf("should parse RFC3339")
	}
	got := WorkerStatus{Timestamp: "2025-12-13 10:11:12"}.ParsedTimestamp()
	if got.Year() != 2025 || got.Month() != time.December || got.Day() != 13 {
		t.Fatalf("parseTime = %v, want 2025-12-13", got)
	}
	if !parseTime("yesterday").IsZero() {
		t.Fatal("garbage should parse to zero time")
	}
}
