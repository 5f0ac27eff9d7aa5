package domain

// RecordType identifies which record a finish qualified for.
type RecordType string

const (
	RecordNone   RecordType = "NONE"
	RecordCourse RecordType = "COURSE"
	RecordWorld  RecordType = "WORLD"
)

// IsValid checks if the record type is a valid value.
func (t RecordType) IsValid() bool {
	return t == RecordNone || t == RecordCourse || t == RecordWorld
}

// RecordStatus tracks the record-bonus confirmation state machine.
type RecordStatus string

const (
	RecordStatusNone        RecordStatus = "NONE"
	RecordStatusProvisional RecordStatus = "PROVISIONAL"
	RecordStatusConfirmed   RecordStatus = "CONFIRMED"
	RecordStatusRejected    RecordStatus = "REJECTED"
)

// IsValid checks if the record status is a valid value.
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusNone, RecordStatusProvisional, RecordStatusConfirmed, RecordStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s RecordStatus) Terminal() bool {
	return s == RecordStatusConfirmed || s == RecordStatusRejected
}

// PointBreakdown is the itemized scoring result for one finish under one
// rules version. Corresponds to point_breakdowns table in PostgreSQL.
//
// The JSON shape is a compatibility contract: every point component is
// exposed separately so callers can render a transparent itemization.
// CreatedAt is excluded from JSON so that rescoring unchanged input yields
// byte-for-byte identical output.
//
// Mutations happen only through the confirmation workflow (record fields)
// and always replace the whole row. A rules-version change supersedes the
// row instead of mutating it.
type PointBreakdown struct {
	BreakdownID            string       `json:"breakdownId"` // deterministic hash of race_id|competitor_id|rules_version
	RaceID                 string       `json:"raceId"`
	CompetitorID           string       `json:"competitorId"`
	Gender                 Gender       `json:"gender"`
	Placement              int          `json:"placement"` // standard competition ranking; 0 for non-finishers
	PlacementPoints        int          `json:"placementPoints"`
	TimeGapSeconds         int64        `json:"timeGapSeconds"` // gap to division winner, 0 for the winner
	TimeGapPoints          int          `json:"timeGapPoints"`
	PerformanceBonusPoints int          `json:"performanceBonusPoints"`
	BonusesTriggered       []string     `json:"bonusesTriggered,omitempty"` // names of triggered performance bonuses
	RecordBonusPoints      int          `json:"recordBonusPoints"`
	PendingRecordPoints    int          `json:"pendingRecordPoints,omitempty"` // withheld until confirmation
	RecordType             RecordType   `json:"recordType"`
	RecordStatus           RecordStatus `json:"recordStatus"`
	TotalPoints            int          `json:"totalPoints"`
	RulesVersion           int          `json:"rulesVersion"`
	DataWarning            string       `json:"dataWarning,omitempty"` // set when invalid input was recovered locally
	Superseded             bool         `json:"superseded"`
	CreatedAt              int64        `json:"-"` // persisted, not serialized
}

// ComponentSum returns the sum of the four point components.
func (b *PointBreakdown) ComponentSum() int {
	return b.PlacementPoints + b.TimeGapPoints + b.PerformanceBonusPoints + b.RecordBonusPoints
}

// Consistent reports whether the total matches the component sum.
// This invariant must hold for every finalized breakdown.
func (b *PointBreakdown) Consistent() bool {
	return b.TotalPoints == b.ComponentSum()
}
