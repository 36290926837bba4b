// Package index keeps the best-effort file to session reverse lookup used to
// route updates that omit their owning session. It is derived data: a miss
// means an update cannot be placed, never that the cache is wrong.
package index

// Index maps file ids to owning session ids.
type Index struct {
	owners map[string]string
}

// New returns an empty Index.
func New() *Index {
	return &Index{owners: make(map[string]string)}
}

// Observe records that fileID belongs to sessionID. An existing owner is kept;
// Observe reports whether the pair is now recorded as given.
func (x *Index) Observe(fileID, sessionID string) bool {
	if fileID == "" || sessionID == "" {
		return false
	}
	if owner, ok := x.owners[fileID]; ok {
		return owner == sessionID
	}
	x.owners[fileID] = sessionID
	return true
}

// Lookup returns the owning session for fileID.
func (x *Index) Lookup(fileID string) (string, bool) {
	owner, ok := x.owners[fileID]
	return owner, ok
}

// ForgetSession drops every file owned by sessionID.
func (x *Index) ForgetSession(sessionID string) {
	for fileID, owner := range x.owners {
		if owner == sessionID {
			delete(x.owners, fileID)
		}
	}
}

// Rebuild replaces the index with the pairs in files (session id to file ids).
func (x *Index) Rebuild(files map[string][]string) {
	x.owners = make(map[string]string, len(x.owners))
	for sessionID, ids := range files {
		for _, fileID := range ids {
			x.Observe(fileID, sessionID)
		}
	}
}

// Len returns the number of tracked files.
func (x *Index) Len() int { return len(x.owners) }
