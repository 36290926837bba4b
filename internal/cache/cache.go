package cache

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/five82/lookout/internal/api"
)

// Cache is the materialized view of sessions, their files and the worker
// pool. Files are keyed by owning session id, then file id.
type Cache struct {
	Sessions map[string]api.Session
	Files    map[string]map[string]api.File
	Workers  *api.WorkerStatus
	LastSeen time.Time
}

func newCache() Cache {
	return Cache{
		Sessions: make(map[string]api.Session),
		Files:    make(map[string]map[string]api.File),
	}
}

// Clone returns a deep copy.
func (c Cache) Clone() Cache {
	dup := Cache{
		Sessions: maps.Clone(c.Sessions),
		Files:    make(map[string]map[string]api.File, len(c.Files)),
		Workers:  c.Workers.Clone(),
		LastSeen: c.LastSeen,
	}
	if dup.Sessions == nil {
		dup.Sessions = make(map[string]api.Session)
	}
	for sessionID, files := range c.Files {
		inner := make(map[string]api.File, len(files))
		for id, f := range files {
			inner[id] = f.Clone()
		}
		dup.Files[sessionID] = inner
	}
	return dup
}

// File returns the file stored under sessionID.
func (c Cache) File(sessionID, fileID string) (api.File, bool) {
	f, ok := c.Files[sessionID][fileID]
	return f, ok
}

// SortedSessions returns sessions newest discovery first, ties broken by id.
func (c Cache) SortedSessions() []api.Session {
	out := slices.Collect(maps.Values(c.Sessions))
	slices.SortFunc(out, func(a, b api.Session) int {
		if n := b.ParsedDiscoveredAt().Compare(a.ParsedDiscoveredAt()); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// SessionFiles returns the files of sessionID ordered by name then id.
func (c Cache) SessionFiles(sessionID string) []api.File {
	out := slices.Collect(maps.Values(c.Files[sessionID]))
	slices.SortFunc(out, func(a, b api.File) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// FileTotal counts every cached file.
func (c Cache) FileTotal() int {
	n := 0
	for _, files := range c.Files {
		n += len(files)
	}
	return n
}

// StateCounts tallies cached files by state.
func (c Cache) StateCounts() map[api.FileState]int {
	counts := make(map[api.FileState]int)
	for _, files := range c.Files {
		for _, f := range files {
			counts[f.State]++
		}
	}
	return counts
}
