//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/authgate/authgate/internal/store"
)

func setupPostgresPool(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)

	err = RunMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func newTestProfile(subjectID, email string) *store.ProfileRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &store.ProfileRecord{
		SubjectID:     subjectID,
		Email:         email,
		DisplayName:   "Test User",
		EmailVerified: true,
		Roles:         []string{"user"},
		CustomClaims:  map[string]any{"department": "engineering"},
		Provider:      "password",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestIntegration_ProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	profiles := NewProfileStore(pool)

	t.Run("create and get", func(t *testing.T) {
		err := profiles.Create(ctx, newTestProfile("user-1", "user1@example.com"))
		require.NoError(t, err)

		got, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, "user1@example.com", got.Email)
		require.Equal(t, []string{"user"}, got.Roles)
		require.Equal(t, "engineering", got.CustomClaims["department"])
	})

	t.Run("duplicate create", func(t *testing.T) {
		err := profiles.Create(ctx, newTestProfile("user-1", "other@example.com"))
		require.ErrorIs(t, err, store.ErrProfileAlreadyExists)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := profiles.GetByEmail(ctx, "user1@example.com")
		require.NoError(t, err)
		require.Equal(t, "user-1", got.SubjectID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := profiles.Get(ctx, "no-such-user")
		require.ErrorIs(t, err, store.ErrProfileNotFound)
	})

	t.Run("set roles", func(t *testing.T) {
		err := profiles.SetRoles(ctx, "user-1", []string{"user", "admin"})
		require.NoError(t, err)

		got, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, []string{"user", "admin"}, got.Roles)
	})

	t.Run("set custom claims", func(t *testing.T) {
		err := profiles.SetCustomClaims(ctx, "user-1", map[string]any{
			"feature_flags": map[string]any{"beta_dashboard": true},
		})
		require.NoError(t, err)

		got, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		flags, ok := got.CustomClaims["feature_flags"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, flags["beta_dashboard"])
	})

	t.Run("touch last seen", func(t *testing.T) {
		err := profiles.TouchLastSeen(ctx, "user-1")
		require.NoError(t, err)

		got, err := profiles.Get(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, got.LastSeenAt)
	})

	t.Run("list by role", func(t *testing.T) {
		require.NoError(t, profiles.Create(ctx, newTestProfile("user-2", "user2@example.com")))

		admins, err := profiles.List(ctx, store.ListProfilesOptions{Role: "admin"})
		require.NoError(t, err)
		require.Len(t, admins, 1)
		require.Equal(t, "user-1", admins[0].SubjectID)
	})

	t.Run("delete", func(t *testing.T) {
		err := profiles.Delete(ctx, "user-2")
		require.NoError(t, err)

		_, err = profiles.Get(ctx, "user-2")
		require.ErrorIs(t, err, store.ErrProfileNotFound)
	})
}

func TestIntegration_ItemCounters(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	profiles := NewProfileStore(pool)
	items := NewItemStore(pool)

	require.NoError(t, profiles.Create(ctx, newTestProfile("owner-1", "owner@example.com")))

	now := time.Now().UTC().Truncate(time.Millisecond)
	item := &store.Item{
		ItemID:     "item-1",
		OwnerID:    "owner-1",
		Title:      "First item",
		Visibility: store.VisibilityPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, items.Create(ctx, item))

	t.Run("concurrent increments", func(t *testing.T) {
		const n = 20

		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			go func() {
				errs <- items.IncrementLikes(ctx, "item-1", 1)
			}()
		}
		for i := 0; i < n; i++ {
			require.NoError(t, <-errs)
		}

		got, err := items.Get(ctx, "item-1")
		require.NoError(t, err)
		require.Equal(t, int64(n), got.LikeCount)
	})

	t.Run("increment missing item", func(t *testing.T) {
		err := items.IncrementShares(ctx, "no-such-item", 1)
		require.ErrorIs(t, err, store.ErrItemNotFound)
	})

	t.Run("owner delete cascades", func(t *testing.T) {
		require.NoError(t, profiles.Delete(ctx, "owner-1"))

		_, err := items.Get(ctx, "item-1")
		require.ErrorIs(t, err, store.ErrItemNotFound)
	})
}
