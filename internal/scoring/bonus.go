package scoring

import (
	"marathon-league/internal/domain"
	"marathon-league/internal/normalization"
)

// Performance bonus names as they appear in breakdown JSON.
const (
	BonusNegativeSplit  = "NEGATIVE_SPLIT"
	BonusEvenPace       = "EVEN_PACE"
	BonusFastFinishKick = "FAST_FINISH_KICK"
)

// PerformanceBonuses evaluates the pacing-quality bonuses for one
// normalized result. Each bonus is checked independently and triggered
// bonuses combine additively; nothing in the rules makes NegativeSplit
// and EvenPace exclusive, so an edge-case finish can earn both.
//
// Bonuses requiring absent split data are simply not triggered. A result
// recovered from invalid input earns no performance bonus at all: once
// one raw field is untrustworthy, the rest of the pacing data is too,
// and the finisher scores on placement and time gap only.
func PerformanceBonuses(rules *domain.ScoringRules, n *normalization.Result) (int, []string) {
	if n.Warning != "" {
		return 0, nil
	}

	points := 0
	var triggered []string

	if rules.NegativeSplit.Enabled && n.HasSplits && n.SecondHalfMs < n.FirstHalfMs {
		points += rules.NegativeSplit.Points
		triggered = append(triggered, BonusNegativeSplit)
	}

	if rules.EvenPace.Enabled && n.HasSplits {
		tolerance := rules.EvenPace.Tolerance * float64(n.FinishTimeMs)
		delta := n.SplitDeltaMs
		if delta < 0 {
			delta = -delta
		}
		if float64(delta) <= tolerance {
			points += rules.EvenPace.Points
			triggered = append(triggered, BonusEvenPace)
		}
	}

	if rules.FastFinishKick.Enabled && n.HasFinalSegment && n.AvgPacePerKmMs > 0 {
		required := n.AvgPacePerKmMs * (1 - rules.FastFinishKick.Tolerance)
		if n.FinalPacePerKmMs <= required {
			points += rules.FastFinishKick.Points
			triggered = append(triggered, BonusFastFinishKick)
		}
	}

	return points, triggered
}
