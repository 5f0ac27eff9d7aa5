package scoring

import (
	"testing"

	"marathon-league/internal/domain"
)

func finished(id string, timeMs int64) *domain.FinishRecord {
	return &domain.FinishRecord{
		CompetitorID: id,
		Gender:       domain.GenderMen,
		Status:       domain.FinishFinished,
		FinishTimeMs: timeMs,
	}
}

func TestAssignPlacements_StandardCompetitionRanking(t *testing.T) {
	// Times 100s, 100s, 105s must rank 1, 1, 3.
	finishers := []*domain.FinishRecord{
		finished("a", 100_000),
		finished("b", 100_000),
		finished("c", 105_000),
	}

	placed := AssignPlacements(finishers)

	if len(placed) != 3 {
		t.Fatalf("expected 3 placed finishers, got %d", len(placed))
	}
	want := []int{1, 1, 3}
	for i, p := range placed {
		if p.Placement != want[i] {
			t.Errorf("placement[%d]: got %d, want %d", i, p.Placement, want[i])
		}
	}
}

func TestAssignPlacements_TieInMiddle(t *testing.T) {
	// Ranks 2 and 3 tie: both get 2, the next distinct time gets 4.
	finishers := []*domain.FinishRecord{
		finished("a", 100_000),
		finished("b", 102_000),
		finished("c", 102_000),
		finished("d", 104_000),
	}

	placed := AssignPlacements(finishers)

	want := []int{1, 2, 2, 4}
	for i, p := range placed {
		if p.Placement != want[i] {
			t.Errorf("placement[%d]: got %d, want %d", i, p.Placement, want[i])
		}
	}
}

func TestAssignPlacements_ExcludesNonFinishers(t *testing.T) {
	finishers := []*domain.FinishRecord{
		finished("a", 100_000),
		{CompetitorID: "b", Status: domain.FinishDNF},
		{CompetitorID: "c", Status: domain.FinishDNS},
		{CompetitorID: "d", Status: domain.FinishFinished, FinishTimeMs: 0}, // invalid time
	}

	placed := AssignPlacements(finishers)

	if len(placed) != 1 {
		t.Fatalf("expected 1 placed finisher, got %d", len(placed))
	}
	if placed[0].Finish.CompetitorID != "a" || placed[0].Placement != 1 {
		t.Errorf("unexpected placement: %+v", placed[0])
	}
}

func TestPlacementPoints_BeyondMaxScoredPlace(t *testing.T) {
	rules := domain.DefaultRules()

	if got := PlacementPoints(rules, 1); got != 10 {
		t.Errorf("place 1: got %d, want 10", got)
	}
	if got := PlacementPoints(rules, 10); got != 1 {
		t.Errorf("place 10: got %d, want 1", got)
	}
	if got := PlacementPoints(rules, 11); got != 0 {
		t.Errorf("place 11: got %d, want 0", got)
	}
	if got := PlacementPoints(rules, 0); got != 0 {
		t.Errorf("place 0: got %d, want 0", got)
	}
}
