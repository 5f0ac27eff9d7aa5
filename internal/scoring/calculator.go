package scoring

import (
	"sort"

	"marathon-league/internal/domain"
	"marathon-league/internal/idhash"
	"marathon-league/internal/normalization"
)

// ScoreDivision computes point breakdowns for one race+gender division
// from a consistent snapshot of its finish records.
//
// Every input record gets a breakdown: DNF/DNS and recovered-invalid
// finishes produce a zero-point row (placement 0) so the race's scoring
// output is complete and auditable. Record bonus fields are left at
// NONE; the record detector fills them in afterwards.
//
// The function is pure and deterministic: output order is placement ASC
// with unplaced rows last, competitor id as tie-break.
func ScoreDivision(rules *domain.ScoringRules, race *domain.Race, finishers []*domain.FinishRecord) []*domain.PointBreakdown {
	placed := AssignPlacements(finishers)

	placementOf := make(map[string]int, len(placed))
	for _, p := range placed {
		placementOf[p.Finish.CompetitorID] = p.Placement
	}

	var winnerTimeMs int64
	if len(placed) > 0 {
		winnerTimeMs = placed[0].Finish.FinishTimeMs
	}

	breakdowns := make([]*domain.PointBreakdown, 0, len(finishers))
	for _, f := range finishers {
		b := &domain.PointBreakdown{
			BreakdownID:  idhash.ComputeBreakdownID(race.RaceID, f.CompetitorID, rules.Version),
			RaceID:       race.RaceID,
			CompetitorID: f.CompetitorID,
			Gender:       f.Gender,
			RecordType:   domain.RecordNone,
			RecordStatus: domain.RecordStatusNone,
			RulesVersion: rules.Version,
		}

		// Invalid data is recovered locally: the warning rides along on
		// the breakdown and split-dependent bonuses stay untriggered.
		n, _ := normalization.Normalize(f, race.DistanceKm)
		b.DataWarning = n.Warning

		if placement, ok := placementOf[f.CompetitorID]; ok {
			b.Placement = placement
			b.PlacementPoints = PlacementPoints(rules, placement)
			b.TimeGapSeconds = GapSeconds(f.FinishTimeMs, winnerTimeMs)
			b.TimeGapPoints = GapPoints(rules.TimeGapWindows, b.TimeGapSeconds)
			b.PerformanceBonusPoints, b.BonusesTriggered = PerformanceBonuses(rules, n)
		}

		b.TotalPoints = b.ComponentSum()
		breakdowns = append(breakdowns, b)
	}

	sort.Slice(breakdowns, func(i, j int) bool {
		pi, pj := breakdowns[i].Placement, breakdowns[j].Placement
		if pi == 0 {
			pi = len(finishers) + 1
		}
		if pj == 0 {
			pj = len(finishers) + 1
		}
		if pi != pj {
			return pi < pj
		}
		return breakdowns[i].CompetitorID < breakdowns[j].CompetitorID
	})

	return breakdowns
}
