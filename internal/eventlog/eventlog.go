// Package eventlog keeps the most recent applied messages for diagnostics and
// UI replay in a fixed-capacity ring.
package eventlog

import (
	"encoding/json"
	"sort"
	"time"
)

// DefaultCapacity bounds the log.
const DefaultCapacity = 100

// Entry is one applied message.
type Entry struct {
	Seq  uint64
	At   time.Time
	Type string
	ID   string
	Data json.RawMessage
}

// Log is a ring buffer of entries; the oldest entry is evicted first.
type Log struct {
	ring  []Entry
	idx   int
	count int
	seq   uint64
}

// New builds a Log. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{ring: make([]Entry, capacity)}
}

// Push appends e, assigning the next sequence number, and returns the stored
// entry.
func (l *Log) Push(e Entry) Entry {
	l.seq++
	e.Seq = l.seq
	l.ring[l.idx] = e
	l.idx = (l.idx + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
	return e
}

// Entries returns the retained entries oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, l.count)
	if l.count == len(l.ring) {
		for i := 0; i < l.count; i++ {
			out[i] = l.ring[(l.idx+i)%len(l.ring)]
		}
	} else {
		copy(out, l.ring[:l.count])
	}
	return out
}

// Since returns the suffix of entries, ordered oldest first as Entries
// returns them, whose sequence number is greater than seq.
func Since(entries []Entry, seq uint64) []Entry {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Seq > seq })
	if i == len(entries) {
		return nil
	}
	return entries[i:]
}

// Len returns the number of retained entries.
func (l *Log) Len() int { return l.count }

// Cap returns the capacity.
func (l *Log) Cap() int { return len(l.ring) }
