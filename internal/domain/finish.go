package domain

// FinishStatus classifies a finish record within its division.
type FinishStatus string

const (
	FinishFinished FinishStatus = "FINISHED"
	FinishDNF      FinishStatus = "DNF"
	FinishDNS      FinishStatus = "DNS"
)

// IsValid checks if the status is a valid value.
func (s FinishStatus) IsValid() bool {
	return s == FinishFinished || s == FinishDNF || s == FinishDNS
}

// FinishRecord is one competitor's raw result for a race.
// Corresponds to finish_records table in PostgreSQL.
// Split fields are optional; bonuses requiring them are simply not
// triggered when absent. A record may be corrected until it is finalized;
// corrections trigger rescoring of the race.
type FinishRecord struct {
	FinishID     string       // PRIMARY KEY, deterministic hash of race_id|competitor_id
	RaceID       string       // FK to races
	CompetitorID string       // athlete identifier
	Gender       Gender       // division
	Status       FinishStatus // FINISHED | DNF | DNS
	FinishTimeMs int64        // total elapsed time in milliseconds
	FirstHalfMs  *int64       // first-half split (nullable)
	SecondHalfMs *int64       // second-half split (nullable)
	Last5kMs     *int64       // final 5 km segment (nullable)
	Finalized    bool         // immutable once true
	CreatedAt    int64        // record creation timestamp (ms)
}
