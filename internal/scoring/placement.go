// Package scoring converts a division's finish records into itemized point
// breakdowns: placement points, time-gap bonuses and pacing-quality bonuses.
// All functions are pure; record detection and persistence live elsewhere.
package scoring

import (
	"sort"

	"marathon-league/internal/domain"
)

// Placed pairs an eligible finisher with its competition rank.
type Placed struct {
	Finish    *domain.FinishRecord
	Placement int
}

// AssignPlacements ranks the eligible finishers of one division using
// standard competition ranking: identical times share a placement and the
// next distinct time skips the tied positions (1, 1, 3 — never 1, 1, 2).
//
// Only FINISHED records with a positive time are ranked; DNF/DNS and
// recovered-invalid records stay out of the placement order entirely.
func AssignPlacements(finishers []*domain.FinishRecord) []Placed {
	eligible := make([]*domain.FinishRecord, 0, len(finishers))
	for _, f := range finishers {
		if f.Status == domain.FinishFinished && f.FinishTimeMs > 0 {
			eligible = append(eligible, f)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].FinishTimeMs != eligible[j].FinishTimeMs {
			return eligible[i].FinishTimeMs < eligible[j].FinishTimeMs
		}
		return eligible[i].CompetitorID < eligible[j].CompetitorID
	})

	placed := make([]Placed, len(eligible))
	for i, f := range eligible {
		rank := i + 1
		if i > 0 && f.FinishTimeMs == eligible[i-1].FinishTimeMs {
			rank = placed[i-1].Placement
		}
		placed[i] = Placed{Finish: f, Placement: rank}
	}

	return placed
}

// PlacementPoints returns the points for a placement under the given
// rules. Placements beyond MaxScoredPlace (or the table length) earn 0.
func PlacementPoints(rules *domain.ScoringRules, placement int) int {
	if placement < 1 || placement > rules.MaxScoredPlace || placement > len(rules.PlacementPoints) {
		return 0
	}
	return rules.PlacementPoints[placement-1]
}
