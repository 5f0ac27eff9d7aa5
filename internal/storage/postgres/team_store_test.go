package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

func TestTeamStore_RosterRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTeamStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-a", GameID: "game-1", Name: "Alpha"}))
	require.NoError(t, store.AddRosterEntry(ctx, &domain.RosterEntry{TeamID: "team-a", GameID: "game-1", CompetitorID: "athlete-2"}))
	require.NoError(t, store.AddRosterEntry(ctx, &domain.RosterEntry{TeamID: "team-a", GameID: "game-1", CompetitorID: "athlete-1"}))

	roster, err := store.GetRoster(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"athlete-1", "athlete-2"}, roster)

	team, err := store.GetTeamForCompetitor(ctx, "game-1", "athlete-1")
	require.NoError(t, err)
	assert.Equal(t, "team-a", team.TeamID)
	assert.Equal(t, "Alpha", team.Name)

	_, err = store.GetTeamForCompetitor(ctx, "game-1", "unrostered")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTeamStore_CompetitorRosteredOncePerGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTeamStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-a", GameID: "game-1", Name: "Alpha"}))
	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-b", GameID: "game-1", Name: "Bravo"}))

	require.NoError(t, store.AddRosterEntry(ctx, &domain.RosterEntry{TeamID: "team-a", GameID: "game-1", CompetitorID: "athlete-1"}))

	err := store.AddRosterEntry(ctx, &domain.RosterEntry{TeamID: "team-b", GameID: "game-1", CompetitorID: "athlete-1"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTeamStore_GetByGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTeamStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-b", GameID: "game-1", Name: "Bravo"}))
	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-a", GameID: "game-1", Name: "Alpha"}))
	require.NoError(t, store.Insert(ctx, &domain.Team{TeamID: "team-x", GameID: "game-2", Name: "Other"}))

	teams, err := store.GetByGame(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "team-a", teams[0].TeamID)
	assert.Equal(t, "team-b", teams[1].TeamID)
}
