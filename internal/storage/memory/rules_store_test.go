package memory

import (
	"context"
	"errors"
	"testing"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

func testRules(version int) *domain.ScoringRules {
	return &domain.ScoringRules{
		Version:                  version,
		PlacementPoints:          []int{10, 9, 8},
		MaxScoredPlace:           3,
		TimeGapWindows:           []domain.TimeGapWindow{{ThresholdSeconds: 60, BonusPoints: 5}},
		RecordConfirmationPolicy: domain.ConfirmationRequired,
		ProvisionalPointsPolicy:  domain.ProvisionalWithhold,
		CreatedAt:                1704067200000,
	}
}

func TestRulesStore_InsertAndGet(t *testing.T) {
	store := NewRulesStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRules(1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByVersion(ctx, 1)
	if err != nil {
		t.Fatalf("GetByVersion failed: %v", err)
	}
	if len(got.PlacementPoints) != 3 || got.PlacementPoints[0] != 10 {
		t.Errorf("PlacementPoints mismatch: %v", got.PlacementPoints)
	}

	// Stored versions are immutable; returned slices must be copies.
	got.PlacementPoints[0] = 99
	again, _ := store.GetByVersion(ctx, 1)
	if again.PlacementPoints[0] != 10 {
		t.Error("store state leaked through returned slice")
	}
}

func TestRulesStore_DuplicateVersion(t *testing.T) {
	store := NewRulesStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRules(1)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.Insert(ctx, testRules(1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestRulesStore_Latest(t *testing.T) {
	store := NewRulesStore()
	ctx := context.Background()

	if _, err := store.Latest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}

	for _, v := range []int{2, 5, 3} {
		if err := store.Insert(ctx, testRules(v)); err != nil {
			t.Fatalf("Insert %d failed: %v", v, err)
		}
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Version != 5 {
		t.Errorf("expected version 5, got %d", latest.Version)
	}
}
