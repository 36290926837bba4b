// Package dedup rejects messages whose id was already applied, remembering a
// bounded number of ids with first-in first-out eviction.
package dedup

// DefaultCapacity bounds the seen-id set.
const DefaultCapacity = 1000

// Set remembers the most recent Cap() ids.
type Set struct {
	seen  map[string]struct{}
	order []string // ring of ids in insertion order
	head  int
	size  int
}

// New builds a Set. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{
		seen:  make(map[string]struct{}, capacity),
		order: make([]string, capacity),
	}
}

// ShouldProcess reports whether a message with id should be applied and
// records the id when it is new. Empty ids are never deduplicated.
func (s *Set) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	if s.contains(id) {
		return false
	}
	if s.size == len(s.order) {
		oldest := s.order[s.head]
		delete(s.seen, oldest)
		s.order[s.head] = id
		s.head = (s.head + 1) % len(s.order)
	} else {
		s.order[(s.head+s.size)%len(s.order)] = id
		s.size++
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *Set) contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of remembered ids.
func (s *Set) Len() int { return s.size }

// Cap returns the capacity.
func (s *Set) Cap() int { return len(s.order) }
