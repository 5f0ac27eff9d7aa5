package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

func TestRulesStore_InsertAndGetByVersion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRulesStore(pool)
	ctx := context.Background()

	rules := domain.DefaultRules()

	err := store.Insert(ctx, rules)
	require.NoError(t, err)

	retrieved, err := store.GetByVersion(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, rules.Version, retrieved.Version)
	assert.Equal(t, rules.PlacementPoints, retrieved.PlacementPoints)
	assert.Equal(t, rules.MaxScoredPlace, retrieved.MaxScoredPlace)
	assert.Equal(t, rules.TimeGapWindows, retrieved.TimeGapWindows)
	assert.Equal(t, rules.NegativeSplit, retrieved.NegativeSplit)
	assert.Equal(t, rules.EvenPace, retrieved.EvenPace)
	assert.Equal(t, rules.FastFinishKick, retrieved.FastFinishKick)
	assert.Equal(t, rules.CourseRecord, retrieved.CourseRecord)
	assert.Equal(t, rules.WorldRecord, retrieved.WorldRecord)
	assert.Equal(t, rules.RecordsMutuallyExclusive, retrieved.RecordsMutuallyExclusive)
	assert.Equal(t, rules.RecordConfirmationPolicy, retrieved.RecordConfirmationPolicy)
	assert.Equal(t, rules.ProvisionalPointsPolicy, retrieved.ProvisionalPointsPolicy)
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestRulesStore_InsertDuplicateVersion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRulesStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, domain.DefaultRules())
	require.NoError(t, err)

	err = store.Insert(ctx, domain.DefaultRules())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRulesStore_InsertInvalidRules(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRulesStore(pool)
	ctx := context.Background()

	rules := domain.DefaultRules()
	rules.MaxScoredPlace = 99 // beyond the placement table

	err := store.Insert(ctx, rules)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRulesStore_Latest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRulesStore(pool)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, domain.DefaultRules()))

	v2 := domain.DefaultRules()
	v2.Version = 2
	v2.WorldRecord.Points = 12
	require.NoError(t, store.Insert(ctx, v2))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 12, latest.WorldRecord.Points)
}

func TestRulesStore_GetByVersionNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRulesStore(pool)

	_, err := store.GetByVersion(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
