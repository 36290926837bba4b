package wire

import "github.com/five82/lookout/internal/api"

// Message types on the stream.
const (
	TypePing               = "ping"
	TypePong               = "pong"
	TypeServerTime         = "server_time"
	TypeBatch              = "batch"
	TypeFileStateChange    = "file_state_change"
	TypeSessionDiscovered  = "session_discovered"
	TypeSessionCreated     = "session.created"
	TypeSessionUpdated     = "session.updated"
	TypeSessionDeleted     = "session.deleted"
	TypeSessionFileAdded   = "session.file_added"
	TypeFileAdded          = "file_added"
	TypeProcessingSubstep  = "processing_substep"
	TypeAnalyticsState     = "analytics.state"
	TypeThumbnailUpdate    = "thumbnail_update"
	TypeDiscoveryComplete  = "discovery.complete"
	TypeBulkImportComplete = "bulk_import.complete"
	TypeWorkerStatus       = "worker_status"
	TypeError              = "error"
)

// Message is the closed set of decoded stream messages. Only types in this
// package implement it.
type Message interface {
	Type() string
	message()
}

// Ping is a liveness probe from the server.
type Ping struct{}

// Pong answers a client probe.
type Pong struct{}

// ServerTime carries the server clock; it is diagnostic only.
type ServerTime struct {
	Time string
}

// FileStateChange moves a file along the pipeline.
type FileStateChange struct {
	FileID        string
	SessionID     string
	State         api.FileState
	ProgressPct   *float64
	ProgressStage *string
	ErrorMessage  *string
}

// SessionUpsert creates or patches a session. Kind is the wire type it
// arrived as.
type SessionUpsert struct {
	Kind  string
	Patch SessionPatch
}

// SessionDeleted removes a session and its files.
type SessionDeleted struct {
	SessionID string
}

// FileAdded adds a file to a session.
type FileAdded struct {
	Kind  string
	Patch FilePatch
}

// ProcessingSubstep reports fine-grained progress inside a processing stage.
type ProcessingSubstep struct {
	FileID    string
	SessionID string
	Substep   string
	Progress  *float64
	Detail    *string
}

// AnalyticsState reports the analytics pass for a file.
type AnalyticsState struct {
	FileID    string
	SessionID string
	State     string
	Title     *string
	Language  *string
	Error     *string
	CanRetry  *bool
}

// ThumbnailUpdate reports thumbnail generation for a file.
type ThumbnailUpdate struct {
	FileID    string
	SessionID string
	State     string
	ETag      *string
	Error     *string
}

// StructuralComplete signals that the entity graph changed shape.
type StructuralComplete struct {
	Kind string
}

// WorkerStatus replaces the worker pool status wholesale.
type WorkerStatus struct {
	Status api.WorkerStatus
}

// ServerError is an application-level error reported by the server.
type ServerError struct {
	Message   string
	ErrorType string
	Context   map[string]any
}

// Unknown is any type outside the catalog.
type Unknown struct {
	Kind string
}

func (Ping) Type() string                 { return TypePing }
func (Pong) Type() string                 { return TypePong }
func (ServerTime) Type() string           { return TypeServerTime }
func (FileStateChange) Type() string      { return TypeFileStateChange }
func (m SessionUpsert) Type() string      { return m.Kind }
func (SessionDeleted) Type() string       { return TypeSessionDeleted }
func (m FileAdded) Type() string          { return m.Kind }
func (ProcessingSubstep) Type() string    { return TypeProcessingSubstep }
func (AnalyticsState) Type() string       { return TypeAnalyticsState }
func (ThumbnailUpdate) Type() string      { return TypeThumbnailUpdate }
func (m StructuralComplete) Type() string { return m.Kind }
func (WorkerStatus) Type() string         { return TypeWorkerStatus }
func (ServerError) Type() string          { return TypeError }
func (m Unknown) Type() string            { return m.Kind }

func (Ping) message()               {}
func (Pong) message()               {}
func (ServerTime) message()         {}
func (FileStateChange) message()    {}
func (SessionUpsert) message()      {}
func (SessionDeleted) message()     {}
func (FileAdded) message()          {}
func (ProcessingSubstep) message()  {}
func (AnalyticsState) message()     {}
func (ThumbnailUpdate) message()    {}
func (StructuralComplete) message() {}
func (WorkerStatus) message()       {}
func (ServerError) message()        {}
func (Unknown) message()            {}

// IsLiveness reports messages that only refresh the last-seen time.
func IsLiveness(m Message) bool {
	switch m.(type) {
	case Ping, Pong, ServerTime:
		return true
	}
	return false
}

// IsStructural reports messages implying the entity graph changed shape in a
// way partial merges cannot express.
func IsStructural(m Message) bool {
	switch m := m.(type) {
	case StructuralComplete:
		return true
	case SessionUpsert:
		return m.Kind == TypeSessionDiscovered
	}
	return false
}

// SessionPatch holds the session fields present in a payload; nil means the
// field was absent and must not be overwritten.
type SessionPatch struct {
	ID               string         `json:"id"`
	Name             *string        `json:"name"`
	FileCount        *int           `json:"file_count"`
	PrimaryFileID    *string        `json:"primary_file_id"`
	PrimaryFileState *api.FileState `json:"primary_file_state"`
	Status           *string        `json:"status"`
	DiscoveredAt     *string        `json:"discovered_at"`
	UpdatedAt        *string        `json:"updated_at"`
}

// FilePatch holds the file fields present in a payload.
type FilePatch struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	Name           *string        `json:"name"`
	Path           *string        `json:"path"`
	State          *api.FileState `json:"state"`
	ProgressPct    *float64       `json:"progress_pct"`
	ProgressStage  *string        `json:"progress_stage"`
	AnalyticsState *string        `json:"analytics_state"`
	ThumbnailState *string        `json:"thumbnail_state"`
	ErrorMessage   *string        `json:"error_message"`
}
