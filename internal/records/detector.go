// Package records detects course/world record candidates and drives the
// two-stage confirmation workflow. The confirmation state machine is an
// explicit transition table with a reject-by-default guard: anything not
// listed is an invalid transition.
package records

import (
	"marathon-league/internal/domain"
)

// Candidate is a detected record bonus before policy is applied.
type Candidate struct {
	Type   domain.RecordType
	Points int
}

// Detect compares a finish time against the known baselines for its
// race+gender. A record stands only when the finish is strictly faster
// than the baseline. When both course and world qualify:
//   - RecordsMutuallyExclusive: only the world record (the larger bonus)
//     is flagged;
//   - otherwise both bonuses sum, reported under the superior WORLD type.
//
// A nil baseline means no record is known for that combination, so no
// candidate of that type can be flagged.
func Detect(rules *domain.ScoringRules, finishTimeMs int64, course, world *domain.RecordBaseline) Candidate {
	if finishTimeMs <= 0 {
		return Candidate{Type: domain.RecordNone}
	}

	courseBeaten := rules.CourseRecord.Enabled && course != nil && finishTimeMs < course.TimeMs
	worldBeaten := rules.WorldRecord.Enabled && world != nil && finishTimeMs < world.TimeMs

	switch {
	case courseBeaten && worldBeaten:
		if rules.RecordsMutuallyExclusive {
			return Candidate{Type: domain.RecordWorld, Points: rules.WorldRecord.Points}
		}
		return Candidate{Type: domain.RecordWorld, Points: rules.WorldRecord.Points + rules.CourseRecord.Points}
	case worldBeaten:
		return Candidate{Type: domain.RecordWorld, Points: rules.WorldRecord.Points}
	case courseBeaten:
		return Candidate{Type: domain.RecordCourse, Points: rules.CourseRecord.Points}
	default:
		return Candidate{Type: domain.RecordNone}
	}
}

// Apply stamps a detected candidate onto a breakdown according to the
// confirmation and provisional-points policies, and recomputes the total.
func Apply(b *domain.PointBreakdown, rules *domain.ScoringRules, c Candidate) {
	if c.Type == domain.RecordNone {
		b.RecordType = domain.RecordNone
		b.RecordStatus = domain.RecordStatusNone
		b.RecordBonusPoints = 0
		b.PendingRecordPoints = 0
		b.TotalPoints = b.ComponentSum()
		return
	}

	b.RecordType = c.Type

	switch rules.RecordConfirmationPolicy {
	case domain.ConfirmationAuto:
		b.RecordStatus = domain.RecordStatusConfirmed
		b.RecordBonusPoints = c.Points
		b.PendingRecordPoints = 0
	default: // REQUIRE_CONFIRMATION
		b.RecordStatus = domain.RecordStatusProvisional
		if rules.ProvisionalPointsPolicy == domain.ProvisionalAward {
			b.RecordBonusPoints = c.Points
			b.PendingRecordPoints = 0
		} else {
			b.RecordBonusPoints = 0
			b.PendingRecordPoints = c.Points
		}
	}

	b.TotalPoints = b.ComponentSum()
}
