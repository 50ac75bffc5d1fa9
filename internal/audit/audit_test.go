package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("user_created", "user-1", map[string]any{"email": "user1@example.com"})

	require.NotEmpty(t, event.ID)
	require.Equal(t, "user_created", event.Type)
	require.Equal(t, "user-1", event.PrincipalID)
	require.Equal(t, "user1@example.com", event.Detail["email"])
	require.False(t, event.CreatedAt.IsZero())

	other := NewEvent("user_created", "user-1", nil)
	require.NotEqual(t, event.ID, other.ID)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	sink.Record(ctx, NewEvent("user_created", "user-1", nil))
	sink.Record(ctx, NewEvent("user_deleted", "user-1", nil))

	require.Len(t, sink.Events(), 2)
	require.Len(t, sink.EventsOfType("user_created"), 1)

	sink.Reset()
	require.Empty(t, sink.Events())
}

func TestMemorySink_FailSimulation(t *testing.T) {
	sink := NewMemorySink()
	sink.Fail = true

	// Record must swallow backend failure silently.
	sink.Record(context.Background(), NewEvent("user_created", "user-1", nil))
	require.Empty(t, sink.Events())
}

func TestMultiSink(t *testing.T) {
	first := NewMemorySink()
	second := NewMemorySink()
	multi := NewMultiSink(first, second)

	multi.Record(context.Background(), NewEvent("user_created", "user-1", nil))

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
}
