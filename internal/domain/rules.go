package domain

import "fmt"

// ConfirmationPolicy controls how detected records become final.
type ConfirmationPolicy string

const (
	// ConfirmationRequired keeps a detected record PROVISIONAL until an
	// authority confirms or rejects it.
	ConfirmationRequired ConfirmationPolicy = "REQUIRE_CONFIRMATION"
	// ConfirmationAuto confirms a detected record immediately.
	ConfirmationAuto ConfirmationPolicy = "AUTO_CONFIRM"
)

// IsValid checks if the policy is a valid value.
func (p ConfirmationPolicy) IsValid() bool {
	return p == ConfirmationRequired || p == ConfirmationAuto
}

// ProvisionalPolicy controls whether record points are granted while a
// record is still PROVISIONAL.
type ProvisionalPolicy string

const (
	// ProvisionalWithhold grants no record points until confirmation.
	ProvisionalWithhold ProvisionalPolicy = "WITHHOLD"
	// ProvisionalAward grants record points immediately; they are
	// retracted on rejection.
	ProvisionalAward ProvisionalPolicy = "AWARD_PROVISIONALLY"
)

// IsValid checks if the policy is a valid value.
func (p ProvisionalPolicy) IsValid() bool {
	return p == ProvisionalWithhold || p == ProvisionalAward
}

// TimeGapWindow awards BonusPoints when the gap to the division winner is
// at most ThresholdSeconds. Windows are evaluated in ascending threshold
// order and the first match applies exclusively.
type TimeGapWindow struct {
	ThresholdSeconds int64
	BonusPoints      int
}

// PerformanceBonus configures one named pacing-quality bonus.
type PerformanceBonus struct {
	Enabled   bool
	Points    int
	Tolerance float64 // EvenPace: split-delta ratio; FastFinishKick: pace-improvement ratio
}

// RecordBonus configures a course or world record bonus.
type RecordBonus struct {
	Enabled bool
	Points  int
}

// ScoringRules is one immutable, versioned scoring configuration.
// A version is never mutated once referenced by a computed breakdown;
// rule changes always create a new version.
type ScoringRules struct {
	Version                  int                // unique, ascending
	PlacementPoints          []int              // points for ranks 1..len
	MaxScoredPlace           int                // placements beyond this earn 0
	TimeGapWindows           []TimeGapWindow    // ascending thresholds, first match wins
	NegativeSplit            PerformanceBonus   // second half faster than first
	EvenPace                 PerformanceBonus   // halves within Tolerance*finishTime
	FastFinishKick           PerformanceBonus   // last 5k at least Tolerance faster than avg pace
	CourseRecord             RecordBonus        //
	WorldRecord              RecordBonus        //
	RecordsMutuallyExclusive bool               // world-over-course when both qualify
	RecordConfirmationPolicy ConfirmationPolicy //
	ProvisionalPointsPolicy  ProvisionalPolicy  //
	CreatedAt                int64              // record creation timestamp (ms)
}

// Validate checks structural constraints on a rule set.
func (r *ScoringRules) Validate() error {
	if r.Version <= 0 {
		return fmt.Errorf("rules version must be positive, got %d", r.Version)
	}
	if len(r.PlacementPoints) == 0 {
		return fmt.Errorf("rules v%d: placement points table is empty", r.Version)
	}
	if r.MaxScoredPlace <= 0 || r.MaxScoredPlace > len(r.PlacementPoints) {
		return fmt.Errorf("rules v%d: max scored place %d out of range 1..%d",
			r.Version, r.MaxScoredPlace, len(r.PlacementPoints))
	}
	var prev int64
	for i, w := range r.TimeGapWindows {
		if w.ThresholdSeconds <= prev {
			return fmt.Errorf("rules v%d: time gap window %d not strictly ascending", r.Version, i)
		}
		prev = w.ThresholdSeconds
	}
	if !r.RecordConfirmationPolicy.IsValid() {
		return fmt.Errorf("rules v%d: invalid confirmation policy %q", r.Version, r.RecordConfirmationPolicy)
	}
	if !r.ProvisionalPointsPolicy.IsValid() {
		return fmt.Errorf("rules v%d: invalid provisional points policy %q", r.Version, r.ProvisionalPointsPolicy)
	}
	return nil
}

// RecordBonusFor returns the configured bonus points for a record type.
// Disabled bonuses and NONE return 0.
func (r *ScoringRules) RecordBonusFor(t RecordType) int {
	switch t {
	case RecordCourse:
		if r.CourseRecord.Enabled {
			return r.CourseRecord.Points
		}
	case RecordWorld:
		if r.WorldRecord.Enabled {
			return r.WorldRecord.Points
		}
	}
	return 0
}

// DefaultRules returns the version-1 rule set used when a game has no
// explicit configuration.
func DefaultRules() *ScoringRules {
	return &ScoringRules{
		Version:         1,
		PlacementPoints: []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		MaxScoredPlace:  10,
		TimeGapWindows: []TimeGapWindow{
			{ThresholdSeconds: 60, BonusPoints: 5},
			{ThresholdSeconds: 120, BonusPoints: 4},
			{ThresholdSeconds: 180, BonusPoints: 3},
			{ThresholdSeconds: 300, BonusPoints: 2},
			{ThresholdSeconds: 600, BonusPoints: 1},
		},
		NegativeSplit:            PerformanceBonus{Enabled: true, Points: 2},
		EvenPace:                 PerformanceBonus{Enabled: true, Points: 1, Tolerance: 0.005},
		FastFinishKick:           PerformanceBonus{Enabled: true, Points: 2, Tolerance: 0.03},
		CourseRecord:             RecordBonus{Enabled: true, Points: 5},
		WorldRecord:              RecordBonus{Enabled: true, Points: 10},
		RecordsMutuallyExclusive: true,
		RecordConfirmationPolicy: ConfirmationRequired,
		ProvisionalPointsPolicy:  ProvisionalWithhold,
	}
}
