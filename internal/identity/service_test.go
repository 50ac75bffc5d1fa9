package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/store"
)

func TestProfileService(t *testing.T) {
	sink := audit.NewMemorySink()
	svc := NewProfileService(store.NewMemoryProfileStore(), sink)
	ctx := context.Background()

	t.Run("create is audited", func(t *testing.T) {
		created, err := svc.CreateProfile(ctx, &store.ProfileRecord{
			SubjectID: "user-1",
			Email:     "user1@example.com",
		})
		require.NoError(t, err)
		require.False(t, created.CreatedAt.IsZero())
		require.False(t, created.UpdatedAt.IsZero())

		events := sink.EventsOfType("user_created")
		require.Len(t, events, 1)
		require.Equal(t, "user-1", events[0].PrincipalID)
		require.Equal(t, "user1@example.com", events[0].Detail["email"])
	})

	t.Run("update is audited", func(t *testing.T) {
		sink.Reset()

		profile, err := svc.UpdateProfile(ctx, &store.ProfileRecord{
			SubjectID:   "user-1",
			Email:       "user1@example.com",
			DisplayName: "Renamed",
		})
		require.NoError(t, err)
		require.Equal(t, "Renamed", profile.DisplayName)
		require.Len(t, sink.EventsOfType("user_updated"), 1)
	})

	t.Run("set roles records actor", func(t *testing.T) {
		sink.Reset()

		err := svc.SetRoles(ctx, "admin-1", "user-1", []string{"user", "moderator"})
		require.NoError(t, err)

		events := sink.EventsOfType("roles_changed")
		require.Len(t, events, 1)
		require.Equal(t, "user-1", events[0].PrincipalID)
		require.Equal(t, "admin-1", events[0].Detail["actor_id"])
	})

	t.Run("set claims records actor", func(t *testing.T) {
		sink.Reset()

		err := svc.SetCustomClaims(ctx, "admin-1", "user-1", map[string]any{"department": "sales"})
		require.NoError(t, err)

		events := sink.EventsOfType("claims_changed")
		require.Len(t, events, 1)
		require.Equal(t, "admin-1", events[0].Detail["actor_id"])
	})

	t.Run("delete is audited", func(t *testing.T) {
		sink.Reset()

		err := svc.DeleteProfile(ctx, "admin-1", "user-1")
		require.NoError(t, err)
		require.Len(t, sink.EventsOfType("user_deleted"), 1)
	})

	t.Run("missing profile surfaces store error", func(t *testing.T) {
		err := svc.SetRoles(ctx, "admin-1", "no-such-user", []string{"user"})
		require.ErrorIs(t, err, store.ErrProfileNotFound)
	})
}
