package wire

import (
	"strings"

	"github.com/five82/lookout/internal/api"
)

// Decode maps a normalized message onto its typed form. Types outside the
// catalog decode to Unknown without error. A known type whose payload is
// malformed returns a *ParseError.
func Decode(n Normalized) (Message, error) {
	switch n.Type {
	case TypePing:
		return Ping{}, nil
	case TypePong:
		return Pong{}, nil
	case TypeServerTime:
		return ServerTime{Time: n.Get("time").String()}, nil
	case TypeFileStateChange:
		return decodeFileStateChange(n)
	case TypeSessionDiscovered, TypeSessionCreated, TypeSessionUpdated:
		return decodeSessionUpsert(n)
	case TypeSessionDeleted:
		id := strings.TrimSpace(n.Get("session_id").String())
		if id == "" {
			return nil, n.fail(missingField("session_id"))
		}
		return SessionDeleted{SessionID: id}, nil
	case TypeSessionFileAdded, TypeFileAdded:
		return decodeFileAdded(n)
	case TypeProcessingSubstep:
		return decodeSubstep(n)
	case TypeAnalyticsState:
		return decodeAnalytics(n)
	case TypeThumbnailUpdate:
		return decodeThumbnail(n)
	case TypeDiscoveryComplete, TypeBulkImportComplete:
		return StructuralComplete{Kind: n.Type}, nil
	case TypeWorkerStatus:
		var status api.WorkerStatus
		if err := n.decode(&status); err != nil {
			return nil, err
		}
		return WorkerStatus{Status: status}, nil
	case TypeError:
		return decodeServerError(n)
	default:
		return Unknown{Kind: n.Type}, nil
	}
}

func decodeFileStateChange(n Normalized) (Message, error) {
	var p struct {
		FileID        string        `json:"file_id"`
		SessionID     string        `json:"session_id"`
		State         api.FileState `json:"state"`
		ProgressPct   *float64      `json:"progress_pct"`
		ProgressStage *string       `json:"progress_stage"`
		ErrorMessage  *string       `json:"error_message"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	if p.FileID == "" {
		return nil, n.fail(missingField("file_id"))
	}
	if p.State == "" {
		return nil, n.fail(missingField("state"))
	}
	return FileStateChange{
		FileID:        p.FileID,
		SessionID:     p.SessionID,
		State:         p.State,
		ProgressPct:   p.ProgressPct,
		ProgressStage: p.ProgressStage,
		ErrorMessage:  p.ErrorMessage,
	}, nil
}

// decodeSessionUpsert accepts either {"session": {...}} or the flat
// session_id/session_name/file_count form, and fills gaps in the nested form
// from flat keys.
func decodeSessionUpsert(n Normalized) (Message, error) {
	var p struct {
		Session     *SessionPatch `json:"session"`
		SessionID   string        `json:"session_id"`
		SessionName *string       `json:"session_name"`
		FileCount   *int          `json:"file_count"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	var patch SessionPatch
	if p.Session != nil {
		patch = *p.Session
		if patch.ID == "" {
			patch.ID = p.SessionID
		}
	} else {
		if err := n.decode(&patch); err != nil {
			return nil, err
		}
		if p.SessionID != "" {
			patch.ID = p.SessionID
		}
		if p.SessionName != nil {
			patch.Name = p.SessionName
		}
	}
	if patch.Name == nil {
		patch.Name = p.SessionName
	}
	if patch.FileCount == nil {
		patch.FileCount = p.FileCount
	}
	patch.ID = strings.TrimSpace(patch.ID)
	if patch.ID == "" {
		return nil, n.fail(missingField("session_id"))
	}
	return SessionUpsert{Kind: n.Type, Patch: patch}, nil
}

func decodeFileAdded(n Normalized) (Message, error) {
	var p struct {
		SessionID string     `json:"session_id"`
		FileData  *FilePatch `json:"file_data"`
		File      *FilePatch `json:"file"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	data := p.FileData
	if data == nil {
		data = p.File
	}
	if data == nil {
		return nil, n.fail(missingField("file_data"))
	}
	patch := *data
	if patch.ID == "" {
		patch.ID = n.Get("file_id").String()
	}
	if patch.ID == "" {
		return nil, n.fail(missingField("file_data.id"))
	}
	if patch.SessionID == "" {
		patch.SessionID = p.SessionID
	}
	if patch.SessionID == "" {
		return nil, n.fail(missingField("session_id"))
	}
	return FileAdded{Kind: n.Type, Patch: patch}, nil
}

func decodeSubstep(n Normalized) (Message, error) {
	var p struct {
		FileID    string   `json:"file_id"`
		SessionID string   `json:"session_id"`
		Substep   string   `json:"substep"`
		Progress  *float64 `json:"progress"`
		Detail    *string  `json:"detail"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	if p.FileID == "" {
		return nil, n.fail(missingField("file_id"))
	}
	return ProcessingSubstep(p), nil
}

func decodeAnalytics(n Normalized) (Message, error) {
	var p struct {
		FileID    string  `json:"file_id"`
		SessionID string  `json:"session_id"`
		State     string  `json:"state"`
		Title     *string `json:"title"`
		Language  *string `json:"language"`
		Error     *string `json:"error"`
		CanRetry  *bool   `json:"can_retry"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	if p.FileID == "" {
		return nil, n.fail(missingField("file_id"))
	}
	if p.State == "" {
		return nil, n.fail(missingField("state"))
	}
	return AnalyticsState(p), nil
}

func decodeThumbnail(n Normalized) (Message, error) {
	var p struct {
		FileID    string  `json:"file_id"`
		SessionID string  `json:"session_id"`
		State     string  `json:"thumbnail_state"`
		ETag      *string `json:"etag"`
		Error     *string `json:"error"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	if p.FileID == "" {
		return nil, n.fail(missingField("file_id"))
	}
	if p.State == "" {
		return nil, n.fail(missingField("thumbnail_state"))
	}
	return ThumbnailUpdate(p), nil
}

func decodeServerError(n Normalized) (Message, error) {
	var p struct {
		ErrorMessage string         `json:"error_message"`
		Message      string         `json:"message"`
		ErrorType    string         `json:"error_type"`
		Context      map[string]any `json:"context"`
	}
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(p.ErrorMessage)
	if msg == "" {
		msg = strings.TrimSpace(p.Message)
	}
	if msg == "" {
		return nil, n.fail(missingField("error_message"))
	}
	return ServerError{Message: msg, ErrorType: strings.TrimSpace(p.ErrorType), Context: p.Context}, nil
}
