package domain

// Race is one scored event within a game.
// Corresponds to races table in PostgreSQL.
//
// RulesVersion is the explicit current version for this race's game: it is
// stored on the entity and passed into every scoring call rather than read
// from ambient state, so re-scoring under a new version is an explicit,
// auditable operation.
type Race struct {
	RaceID       string  // PRIMARY KEY
	GameID       string  // league/game this race belongs to
	Name         string  // display name, e.g. "Berlin Marathon 2026"
	DistanceKm   float64 // course distance, 42.195 for a marathon
	StartTime    int64   // Unix timestamp in milliseconds
	RulesVersion int     // rules version in effect for this race
	CreatedAt    int64   // record creation timestamp (ms)
}

// RecordBaseline is the currently known record time for a race+gender.
// Corresponds to record_baselines table in PostgreSQL. World baselines are
// stored per race so the detector reads one consistent source.
type RecordBaseline struct {
	RaceID    string     // FK to races
	Gender    Gender     // division
	Type      RecordType // COURSE | WORLD
	TimeMs    int64      // record time in milliseconds
	CreatedAt int64      // record creation timestamp (ms)
}
