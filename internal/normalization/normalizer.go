// Package normalization derives scoring-ready facts from raw finish records:
// elapsed time, half-split balance and final-segment pace. Invalid input is
// recovered locally — the finisher is still scored on placement and time gap,
// with split-dependent bonuses disabled and a warning attached.
package normalization

import (
	"errors"
	"fmt"

	"marathon-league/internal/domain"
)

// ErrInvalidFinishData marks a finish record whose raw fields are
// internally inconsistent. It is recorded as a warning, never surfaced as
// a scoring failure.
var ErrInvalidFinishData = errors.New("invalid finish data")

// splitToleranceMs is how far first+second half may drift from the total
// time before the splits are considered inconsistent. Timing mats round
// each split independently, so a small gap is expected.
const splitToleranceMs = 1000

// finalSegmentKm is the length of the finishing segment used for the
// fast-finish pace comparison.
const finalSegmentKm = 5.0

// Result holds the derived facts for one finish record.
type Result struct {
	FinishTimeMs int64

	// HasSplits is true when both half splits are present and consistent.
	HasSplits    bool
	FirstHalfMs  int64
	SecondHalfMs int64
	SplitDeltaMs int64 // firstHalf - secondHalf, positive for a negative split

	// HasFinalSegment is true when the last-5k split is present and plausible.
	HasFinalSegment  bool
	AvgPacePerKmMs   float64 // whole-race average pace
	FinalPacePerKmMs float64 // pace over the final segment

	// Warning carries the recovered-input note, empty for clean data.
	Warning string
}

// Normalize computes derived facts for a finish record over a course of
// the given distance. The returned error is only ever ErrInvalidFinishData
// (wrapped); callers treat it as a local warning, not a failure.
func Normalize(f *domain.FinishRecord, distanceKm float64) (*Result, error) {
	r := &Result{FinishTimeMs: f.FinishTimeMs}

	if f.FinishTimeMs <= 0 {
		r.Warning = fmt.Sprintf("non-positive finish time %dms", f.FinishTimeMs)
		return r, fmt.Errorf("%w: %s", ErrInvalidFinishData, r.Warning)
	}
	if distanceKm > 0 {
		r.AvgPacePerKmMs = float64(f.FinishTimeMs) / distanceKm
	}

	if f.FirstHalfMs != nil && f.SecondHalfMs != nil {
		first, second := *f.FirstHalfMs, *f.SecondHalfMs
		switch {
		case first <= 0 || second <= 0:
			r.Warning = "non-positive half split"
		case absInt64(first+second-f.FinishTimeMs) > splitToleranceMs:
			r.Warning = fmt.Sprintf("half splits %d+%d disagree with finish time %d",
				first, second, f.FinishTimeMs)
		default:
			r.HasSplits = true
			r.FirstHalfMs = first
			r.SecondHalfMs = second
			r.SplitDeltaMs = first - second
		}
	}

	if f.Last5kMs != nil {
		last := *f.Last5kMs
		if last > 0 && last <= f.FinishTimeMs && distanceKm >= finalSegmentKm {
			r.HasFinalSegment = true
			r.FinalPacePerKmMs = float64(last) / finalSegmentKm
		} else if r.Warning == "" {
			r.Warning = fmt.Sprintf("implausible last-5k split %dms", last)
		}
	}

	if r.Warning != "" {
		return r, fmt.Errorf("%w: %s", ErrInvalidFinishData, r.Warning)
	}
	return r, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
