package api

import (
	"maps"
	"slices"
	"time"
)

const serverTimestampLayout = "2006-01-02 15:04:05"

// FileState is a file's position in the discovery to completion pipeline.
// Unknown values sent by newer servers are preserved as-is.
type FileState string

const (
	FileDiscovered FileState = "discovered"
	FileCopying    FileState = "copying"
	FileCopied     FileState = "copied"
	FileProcessing FileState = "processing"
	FileProcessed  FileState = "processed"
	FileOrganizing FileState = "organizing"
	FileComplete   FileState = "complete"
	FileFailed     FileState = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s FileState) Terminal() bool {
	return s == FileComplete || s == FileFailed
}

// SessionListResponse mirrors GET /api/sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// FileListResponse mirrors GET /api/sessions/{id}/files.
type FileListResponse struct {
	Files []File `json:"files"`
}

// Session is one processing session.
type Session struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	FileCount        int       `json:"file_count"`
	PrimaryFileID    string    `json:"primary_file_id,omitempty"`
	PrimaryFileState FileState `json:"primary_file_state,omitempty"`
	Status           string    `json:"status,omitempty"`
	DiscoveredAt     string    `json:"discovered_at,omitempty"`
	UpdatedAt        string    `json:"updated_at,omitempty"`
}

// ParsedDiscoveredAt returns DiscoveredAt as time.Time when possible.
func (s Session) ParsedDiscoveredAt() time.Time {
	return parseTime(s.DiscoveredAt)
}

// File is one media file owned by a session.
type File struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Name            string    `json:"name,omitempty"`
	Path            string    `json:"path,omitempty"`
	State           FileState `json:"state"`
	ProgressPct     *float64  `json:"progress_pct,omitempty"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	Substep         string    `json:"substep,omitempty"`
	SubstepProgress float64   `json:"substep_progress,omitempty"`
	SubstepDetail   string    `json:"substep_detail,omitempty"`
	AnalyticsState  string    `json:"analytics_state,omitempty"`
	AnalyticsTitle  string    `json:"analytics_title,omitempty"`
	Language        string    `json:"language,omitempty"`
	AnalyticsError  string    `json:"analytics_error,omitempty"`
	CanRetry        bool      `json:"can_retry,omitempty"`
	ThumbnailState  string    `json:"thumbnail_state,omitempty"`
	ThumbnailETag   string    `json:"thumbnail_etag,omitempty"`
	ThumbnailError  string    `json:"thumbnail_error,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// Clone returns a copy that shares no pointers with f.
func (f File) Clone() File {
	if f.ProgressPct != nil {
		pct := *f.ProgressPct
		f.ProgressPct = &pct
	}
	return f
}

// WorkerStatus mirrors GET /api/workers/status and the worker_status event.
type WorkerStatus struct {
	Workers     []WorkerEntry  `json:"workers"`
	QueueCounts map[string]int `json:"queue_counts"`
	Paused      Paused         `json:"paused"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

// Clone returns a deep copy.
func (w *WorkerStatus) Clone() *WorkerStatus {
	if w == nil {
		return nil
	}
	dup := *w
	dup.Workers = slices.Clone(w.Workers)
	dup.QueueCounts = maps.Clone(w.QueueCounts)
	return &dup
}

// ParsedTimestamp returns Timestamp as time.Time when possible.
func (w WorkerStatus) ParsedTimestamp() time.Time {
	return parseTime(w.Timestamp)
}

// Busy counts workers currently holding a file.
func (w WorkerStatus) Busy() int {
	n := 0
	for _, worker := range w.Workers {
		if worker.CurrentFileID != "" {
			n++
		}
	}
	return n
}

// WorkerEntry describes one worker process.
type WorkerEntry struct {
	ID            string `json:"id"`
	Kind          string `json:"type"`
	State         string `json:"state"`
	CurrentFileID string `json:"current_file_id,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
}

// Paused flags the queues an operator has paused.
type Paused struct {
	Processing bool `json:"processing"`
	Analytics  bool `json:"analytics"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(serverTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
