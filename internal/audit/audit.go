// Package audit records security-relevant events: denials, authentication
// failures and role/claim mutations. Recording is fire-and-forget; a sink
// that cannot write logs and drops, it never propagates failure to the
// caller and never blocks a decision already made.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one append-only audit record.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	PrincipalID string         `json:"principal_id,omitempty"`
	Detail      map[string]any `json:"detail,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType, principalID string, detail map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		PrincipalID: principalID,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}
}

// Sink accepts audit events. Implementations must never return control back
// to the caller with an error and must not block on backend failures.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LoggerSink writes audit events to the structured log at warn level.
type LoggerSink struct{}

// NewLoggerSink creates a sink backed by the global zerolog logger.
func NewLoggerSink() *LoggerSink {
	return &LoggerSink{}
}

// Record logs the event.
func (s *LoggerSink) Record(ctx context.Context, event Event) {
	log.Warn().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("principal_id", event.PrincipalID).
		Fields(event.Detail).
		Msg("security event")
}

// MultiSink fans an event out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that records to every given sink in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record fans out the event.
func (s *MultiSink) Record(ctx context.Context, event Event) {
	for _, sink := range s.sinks {
		sink.Record(ctx, event)
	}
}

// NopSink discards all events.
type NopSink struct{}

// Record discards the event.
func (NopSink) Record(ctx context.Context, event Event) {}
