package audit

import (
	"context"
	"slices"
	"sync"
)

// MemorySink collects audit events in memory for tests and development.
type MemorySink struct {
	mu     sync.Mutex
	events []Event

	// Fail simulates an unavailable backend. Record still must not surface
	// the failure to callers.
	Fail bool
}

// NewMemorySink creates a new in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the event, unless the sink is simulating failure.
func (s *MemorySink) Record(ctx context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return
	}

	s.events = append(s.events, event)
}

// Events returns a snapshot of recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events)
}

// EventsOfType returns recorded events with the given type.
func (s *MemorySink) EventsOfType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Event
	for _, e := range s.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Reset discards all recorded events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
}
