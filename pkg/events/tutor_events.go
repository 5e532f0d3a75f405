package events

import "time"

const (
	TypeFilesUploaded          = "FILES_UPLOADED"
	TypeTurnCompleted          = "TURN_COMPLETED"
	TypeStructuredDecodeFailed = "STRUCTURED_DECODE_FAILED"
	TypeSessionReset           = "SESSION_RESET"
)

func NewFilesUploaded(sessionID string, names []string, totalFiles int) BaseEvent {
	return BaseEvent{
		Type: TypeFilesUploaded,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"files":       names,
			"total_files": totalFiles,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnCompleted records one finished query. errorKind is empty on success.
func NewTurnCompleted(sessionID, mode, tier, errorKind string, duration time.Duration) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"mode":        mode,
			"tier":        tier,
			"error_kind":  errorKind,
			"duration_ms": duration.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
}

// NewStructuredDecodeFailed carries the raw model text that could not be
// decoded so it can be kept in the diagnostics log.
func NewStructuredDecodeFailed(sessionID, tier, rawText string, missingFields []string) BaseEvent {
	return BaseEvent{
		Type: TypeStructuredDecodeFailed,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"tier":           tier,
			"raw_text":       rawText,
			"missing_fields": missingFields,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionReset(sessionID string) BaseEvent {
	return BaseEvent{
		Type:       TypeSessionReset,
		Data:       map[string]interface{}{"session_id": sessionID},
		OccurredAt: time.Now(),
	}
}
