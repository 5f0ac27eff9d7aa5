package domain

// AuditAction classifies a score audit event.
type AuditAction string

const (
	AuditScored     AuditAction = "SCORED"
	AuditConfirmed  AuditAction = "CONFIRMED"
	AuditRejected   AuditAction = "REJECTED"
	AuditSuperseded AuditAction = "SUPERSEDED"
)

// IsValid checks if the action is a valid value.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditScored, AuditConfirmed, AuditRejected, AuditSuperseded:
		return true
	}
	return false
}

// ScoreAuditEvent is one append-only entry in the scoring audit trail.
// Corresponds to score_audit_events table in ClickHouse. Every scoring
// pass and every confirmation transition logs its point delta here so a
// breakdown's history stays reconstructable.
type ScoreAuditEvent struct {
	EventID      string      // UUID
	BreakdownID  string      // breakdown this event applies to
	RaceID       string      //
	CompetitorID string      //
	Action       AuditAction // SCORED | CONFIRMED | REJECTED | SUPERSEDED
	RecordType   RecordType  // record type involved, NONE otherwise
	PointsDelta  int         // change in total points caused by this event
	TotalAfter   int         // breakdown total after the event
	RulesVersion int         // rules version of the breakdown
	OccurredAt   int64       // Unix timestamp in milliseconds
}
