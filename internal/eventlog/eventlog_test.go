package eventlog

import (
	"fmt"
	"testing"
)

func TestPush_RetainsLastEntriesOldestFirst(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
		wantLen  int
		wantHead uint64
	}{
		{"empty", 100, 0, 0, 0},
		{"partial", 100, 10, 10, 1},
		{"exactly full", 100, 100, 100, 1},
		{"overflow", 100, 150, 100, 51},
		{"tiny", 1, 5, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				l.Push(Entry{Type: "file_state_change", ID: fmt.Sprintf("m%d", i)})
			}
			got := l.Entries()
			if len(got) != tt.wantLen || l.Len() != tt.wantLen {
				t.Fatalf("len = %d (Len %d), want %d", len(got), l.Len(), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if got[0].Seq != tt.wantHead {
				t.Fatalf("oldest seq = %d, want %d", got[0].Seq, tt.wantHead)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Seq != got[i-1].Seq+1 {
					t.Fatalf("entries out of order at %d: %d after %d", i, got[i].Seq, got[i-1].Seq)
				}
			}
			if last := got[len(got)-1]; last.ID != fmt.Sprintf("m%d", tt.pushes-1) {
				t.Fatalf("newest id = %q, want m%d", last.ID, tt.pushes-1)
			}
		})
	}
}

func TestSince(t *testing.T) {
	l := New(5)
	for i := 0; i < 8; i++ {
		l.Push(Entry{Type: "ping"})
	}
	all := l.Entries()
	if got := Since(all, 6); len(got) != 2 || got[0].Seq != 7 || got[1].Seq != 8 {
		t.Fatalf("Since(6) = %+v, want seqs 7,8", got)
	}
	if got := Since(all, 0); len(got) != 5 || got[0].Seq != 4 {
		t.Fatalf("Since(0) = %+v, want 5 entries from 4", got)
	}
	if got := Since(all, 8); got != nil {
		t.Fatalf("Since(8) = %+v, want nil", got)
	}
	if got := Since(nil, 0); got != nil {
		t.Fatalf("Since(nil) = %+v, want nil", got)
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	if got := New(0).Cap(); got != DefaultCapacity {
		t.Fatalf("Cap = %d, want %d", got, DefaultCapacity)
	}
}
