package scoring

import "marathon-league/internal/domain"

// GapSeconds returns the whole-second gap between a finisher and the
// division winner, floored at 0. Milliseconds truncate: a 60.9s gap is a
// 60s gap.
func GapSeconds(finishTimeMs, winnerTimeMs int64) int64 {
	gap := (finishTimeMs - winnerTimeMs) / 1000
	if gap < 0 {
		gap = 0
	}
	return gap
}

// GapPoints evaluates the time-gap windows in ascending threshold order
// and awards the first window whose threshold covers the gap. Windows
// never stack; a gap beyond the largest threshold earns 0.
func GapPoints(windows []domain.TimeGapWindow, gapSeconds int64) int {
	for _, w := range windows {
		if w.ThresholdSeconds >= gapSeconds {
			return w.BonusPoints
		}
	}
	return 0
}
