// Package cache holds the materialized session, file and worker view and the
// dispatcher that folds decoded stream messages into it.
//
// The Dispatcher is not safe for concurrent use. The sync service calls it
// from its event loop only and hands consumers deep copies via Snapshot.
package cache

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/lookout/internal/api"
	"github.com/five82/lookout/internal/eventlog"
	"github.com/five82/lookout/internal/index"
	"github.com/five82/lookout/internal/wire"
)

// Result describes what Apply did with one message.
type Result struct {
	// Applied is set when the message changed or confirmed cache state and was
	// appended to the event log.
	Applied bool
	// Structural asks the caller for a throttled reconciliation read.
	Structural bool
	// Liveness marks ping, pong and server_time.
	Liveness    bool
	ServerError *wire.ServerError
	Err         error
}

// Options configures a Dispatcher.
type Options struct {
	EventLogSize int
	Logger       *log.Logger
	Now          func() time.Time
}

// Dispatcher owns the Cache, the file ownership index and the event log.
type Dispatcher struct {
	cache  Cache
	owners *index.Index
	events *eventlog.Log
	logger *log.Logger
	now    func() time.Time
}

// NewDispatcher returns a Dispatcher over an empty cache.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		cache:  newCache(),
		owners: index.New(),
		events: eventlog.New(opts.EventLogSize),
		logger: logger,
		now:    now,
	}
}

// Apply folds one decoded message into the cache. n supplies the id and raw
// data recorded in the event log.
func (d *Dispatcher) Apply(n wire.Normalized, msg wire.Message) Result {
	return d.apply(n, msg, true)
}

// Reapply folds a message that was already applied and logged once, for
// replay on top of a reconciliation read.
func (d *Dispatcher) Reapply(n wire.Normalized, msg wire.Message) Result {
	return d.apply(n, msg, false)
}

func (d *Dispatcher) apply(n wire.Normalized, msg wire.Message, record bool) Result {
	if wire.IsLiveness(msg) {
		d.cache.LastSeen = d.now()
		return Result{Liveness: true}
	}

	var res Result
	switch m := msg.(type) {
	case wire.SessionUpsert:
		d.upsertSession(m.Patch)
		res.Applied = true
	case wire.SessionDeleted:
		res.Applied = d.deleteSession(m.SessionID)
	case wire.FileAdded:
		res = d.addFile(m)
	case wire.FileStateChange:
		res = d.fileStateChange(m)
	case wire.ProcessingSubstep:
		res.Applied = d.mergeFile(m.Type(), m.FileID, m.SessionID, func(f *api.File) {
			f.Substep = m.Substep
			if m.Progress != nil {
				f.SubstepProgress = *m.Progress
			}
			if m.Detail != nil {
				f.SubstepDetail = *m.Detail
			}
		})
	case wire.AnalyticsState:
		res.Applied = d.mergeFile(m.Type(), m.FileID, m.SessionID, func(f *api.File) {
			f.AnalyticsState = m.State
			setString(&f.AnalyticsTitle, m.Title)
			setString(&f.Language, m.Language)
			setString(&f.AnalyticsError, m.Error)
			if m.CanRetry != nil {
				f.CanRetry = *m.CanRetry
			}
		})
	case wire.ThumbnailUpdate:
		res.Applied = d.mergeFile(m.Type(), m.FileID, m.SessionID, func(f *api.File) {
			f.ThumbnailState = m.State
			setString(&f.ThumbnailETag, m.ETag)
			setString(&f.ThumbnailError, m.Error)
		})
	case wire.StructuralComplete:
		res.Applied = true
	case wire.WorkerStatus:
		status := m.Status
		d.cache.Workers = status.Clone()
		res.Applied = true
	case wire.ServerError:
		res.Applied = true
		res.ServerError = &m
	case wire.Unknown:
		d.logger.Debug("ignore unknown message", "type", m.Kind)
		return res
	}

	res.Structural = wire.IsStructural(msg)
	if res.Err != nil {
		d.logger.Warn("drop update", "type", n.Type, "err", res.Err)
		return res
	}
	if res.Applied && record {
		d.events.Push(eventlog.Entry{At: d.now(), Type: n.Type, ID: n.ID, Data: n.Data})
	}
	return res
}

func (d *Dispatcher) upsertSession(p wire.SessionPatch) {
	s, ok := d.cache.Sessions[p.ID]
	if !ok {
		s = api.Session{ID: p.ID}
	}
	setString(&s.Name, p.Name)
	if p.FileCount != nil {
		s.FileCount = *p.FileCount
	}
	setString(&s.PrimaryFileID, p.PrimaryFileID)
	if p.PrimaryFileState != nil {
		s.PrimaryFileState = *p.PrimaryFileState
	}
	setString(&s.Status, p.Status)
	setString(&s.DiscoveredAt, p.DiscoveredAt)
	setString(&s.UpdatedAt, p.UpdatedAt)
	d.cache.Sessions[p.ID] = s
}

func (d *Dispatcher) deleteSession(sessionID string) bool {
	_, hadSession := d.cache.Sessions[sessionID]
	_, hadFiles := d.cache.Files[sessionID]
	delete(d.cache.Sessions, sessionID)
	delete(d.cache.Files, sessionID)
	d.owners.ForgetSession(sessionID)
	return hadSession || hadFiles
}

func (d *Dispatcher) addFile(m wire.FileAdded) Result {
	p := m.Patch
	owner := d.resolve(p.ID, p.SessionID)
	if owner != p.SessionID {
		d.logger.Warn("file already owned", "file_id", p.ID, "owner", owner, "claimed", p.SessionID)
	}
	f, existed := d.cache.File(owner, p.ID)
	if !existed {
		f = api.File{ID: p.ID, SessionID: owner, State: api.FileDiscovered}
	}
	setString(&f.Name, p.Name)
	setString(&f.Path, p.Path)
	if p.State != nil {
		f.State = *p.State
	}
	if p.ProgressPct != nil {
		pct := *p.ProgressPct
		f.ProgressPct = &pct
	}
	setString(&f.ProgressStage, p.ProgressStage)
	setString(&f.AnalyticsState, p.AnalyticsState)
	setString(&f.ThumbnailState, p.ThumbnailState)
	setString(&f.ErrorMessage, p.ErrorMessage)
	d.putFile(owner, f)

	if s, ok := d.cache.Sessions[owner]; ok && !existed {
		// The session payload may already count this file.
		if n := len(d.cache.Files[owner]); s.FileCount < n {
			s.FileCount = n
			d.cache.Sessions[owner] = s
		}
	}
	return Result{Applied: true}
}

func (d *Dispatcher) fileStateChange(m wire.FileStateChange) Result {
	owner := d.resolve(m.FileID, m.SessionID)
	if owner == "" {
		return Result{Err: &RoutingError{Type: m.Type(), FileID: m.FileID}}
	}
	f, ok := d.cache.File(owner, m.FileID)
	if !ok {
		f = api.File{ID: m.FileID, SessionID: owner}
	}
	f.State = m.State
	if m.ProgressPct != nil {
		pct := *m.ProgressPct
		f.ProgressPct = &pct
	}
	setString(&f.ProgressStage, m.ProgressStage)
	setString(&f.ErrorMessage, m.ErrorMessage)
	d.putFile(owner, f)
	return Result{Applied: true}
}

// mergeFile applies fn to an existing file. Updates for files the cache does
// not know are ignored.
func (d *Dispatcher) mergeFile(typ, fileID, sessionID string, fn func(*api.File)) bool {
	owner := d.resolve(fileID, sessionID)
	f, ok := d.cache.File(owner, fileID)
	if !ok {
		d.logger.Debug("ignore update for unknown file", "type", typ, "file_id", fileID)
		return false
	}
	fn(&f)
	d.cache.Files[owner][fileID] = f
	return true
}

// resolve returns the owning session of fileID. A recorded owner always wins
// over the session named by the message.
func (d *Dispatcher) resolve(fileID, sessionID string) string {
	if owner, ok := d.owners.Lookup(fileID); ok {
		return owner
	}
	return sessionID
}

func (d *Dispatcher) putFile(owner string, f api.File) {
	files, ok := d.cache.Files[owner]
	if !ok {
		files = make(map[string]api.File)
		d.cache.Files[owner] = files
	}
	files[f.ID] = f
	d.owners.Observe(f.ID, owner)
}

// Replace installs the result of a reconciliation read and rebuilds the
// ownership index from it. Files listed with an empty session id take the
// key they were listed under.
func (d *Dispatcher) Replace(sessions []api.Session, files map[string][]api.File, workers *api.WorkerStatus) {
	next := newCache()
	next.LastSeen = d.cache.LastSeen
	next.Workers = workers.Clone()
	for _, s := range sessions {
		next.Sessions[s.ID] = s
	}
	pairs := make(map[string][]string, len(files))
	for sessionID, list := range files {
		inner := make(map[string]api.File, len(list))
		for _, f := range list {
			if f.SessionID == "" {
				f.SessionID = sessionID
			}
			inner[f.ID] = f.Clone()
			pairs[sessionID] = append(pairs[sessionID], f.ID)
		}
		next.Files[sessionID] = inner
	}
	d.cache = next
	d.owners.Rebuild(pairs)
}

// Snapshot returns a deep copy of the cache.
func (d *Dispatcher) Snapshot() Cache { return d.cache.Clone() }

// Events returns the retained event log entries, oldest first.
func (d *Dispatcher) Events() []eventlog.Entry { return d.events.Entries() }

// Owner reports the indexed owner of fileID.
func (d *Dispatcher) Owner(fileID string) (string, bool) { return d.owners.Lookup(fileID) }

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
