package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

func TestRaceStore_InsertAndGetByGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRaceStore(pool)
	ctx := context.Background()

	races := []*domain.Race{
		{RaceID: "race-2", GameID: "game-1", Name: "Chicago Marathon", DistanceKm: 42.195, StartTime: 2000, RulesVersion: 1},
		{RaceID: "race-1", GameID: "game-1", Name: "Berlin Marathon", DistanceKm: 42.195, StartTime: 1000, RulesVersion: 1},
	}
	for _, r := range races {
		require.NoError(t, store.Insert(ctx, r))
	}

	retrieved, err := store.GetByGame(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "race-1", retrieved[0].RaceID)
	assert.Equal(t, "race-2", retrieved[1].RaceID)
	assert.NotZero(t, retrieved[0].CreatedAt)
}

func TestRaceStore_SetRulesVersion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRaceStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Race{
		RaceID: "race-1", GameID: "game-1", Name: "Berlin Marathon", DistanceKm: 42.195, RulesVersion: 1,
	}))

	require.NoError(t, store.SetRulesVersion(ctx, "race-1", 2))

	race, err := store.GetByID(ctx, "race-1")
	require.NoError(t, err)
	assert.Equal(t, 2, race.RulesVersion)

	assert.ErrorIs(t, store.SetRulesVersion(ctx, "missing", 2), storage.ErrNotFound)
}
