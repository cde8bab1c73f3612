package itinerary

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyplan/internal/infra"
	"skyplan/migrations"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("SKYPLAN_TEST_DSN")
	if dsn == "" {
		t.Skip("SKYPLAN_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, infra.Migrate(ctx, db, migrations.FS))
	_, err = db.Exec(ctx, "TRUNCATE TABLE itineraries")
	require.NoError(t, err)
	return NewStore(db)
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := &Itinerary{UID: "u1", Preferences: beachWeek, Text: "Day 1: Bali"}
	require.NoError(t, store.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &Itinerary{UID: "u1", Preferences: beachWeek, Text: "Day 1: Phuket"}
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, &Itinerary{UID: "u2", Preferences: beachWeek, Text: "other"}))

	list, err := store.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Day 1: Phuket", list[0].Text, "newest first")
	assert.Equal(t, beachWeek, list[1].Preferences)

	limited, err := store.ListByUser(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := store.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Bali", got.Text)

	_, err = store.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
