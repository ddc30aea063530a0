package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of call event
type EventType string

const (
	EventCallStarted          EventType = "call_started"
	EventCallRejected         EventType = "call_rejected"
	EventLanguageSelected     EventType = "language_selected"
	EventBridgeStarted        EventType = "bridge_started"
	EventLegBConnected        EventType = "leg_b_connected"
	EventTranscriptReceived   EventType = "transcript_received"
	EventTranscriptDropped    EventType = "transcript_dropped"
	EventTranslationCompleted EventType = "translation_completed"
	EventTranslationFailed    EventType = "translation_failed"
	EventTranslationDiscarded EventType = "translation_discarded"
	EventSpeechInjected       EventType = "speech_injected"
	EventProtocolViolation    EventType = "protocol_violation"
	EventCallError            EventType = "call_error"
	EventCallEnded            EventType = "call_ended"
)

// Schema creates the call_events table if it does not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS call_events (
	id         BIGSERIAL PRIMARY KEY,
	call_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS call_events_call_id_idx ON call_events (call_id, created_at);
`

// Event is a stored call event.
type Event struct {
	CallID    string         `json:"call_id"`
	Type      EventType      `json:"event_type"`
	Data      map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger provides async event logging to the database
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger. A nil pool disables logging.
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Enabled reports whether events are persisted.
func (l *Logger) Enabled() bool {
	return l != nil && l.db != nil
}

// EnsureSchema applies Schema.
func (l *Logger) EnsureSchema(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.db.Exec(ctx, Schema)
	return err
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, callID string, eventType EventType, data map[string]any) error {
	if !l.Enabled() || callID == "" {
		return nil // Silently skip if no DB or call ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO call_events (call_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, callID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(callID string, eventType EventType, data map[string]any) {
	if !l.Enabled() || callID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, callID, eventType, data)
	}()
}

// List returns the events recorded for a call, oldest first.
func (l *Logger) List(ctx context.Context, callID string, limit int) ([]Event, error) {
	if !l.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	rows, err := l.db.Query(ctx, `
		SELECT call_id, event_type, event_data, created_at
		FROM call_events
		WHERE call_id = $1
		ORDER BY created_at, id
		LIMIT $2
	`, callID, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		var eventType string
		err := row.Scan(&e.CallID, &eventType, &e.Data, &e.CreatedAt)
		e.Type = EventType(eventType)
		return e, err
	})
}
