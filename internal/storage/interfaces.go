package storage

import (
	"context"

	"marathon-league/internal/domain"
)

// RulesStore provides access to versioned scoring rules.
// Versions are immutable: a rule change is always a new version.
type RulesStore interface {
	// Insert adds a new rules version. Returns ErrDuplicateKey if the
	// version already exists.
	Insert(ctx context.Context, r *domain.ScoringRules) error

	// GetByVersion retrieves one version. Returns ErrNotFound if it
	// does not exist.
	GetByVersion(ctx context.Context, version int) (*domain.ScoringRules, error)

	// Latest retrieves the highest version. Returns ErrNotFound when
	// no rules exist.
	Latest(ctx context.Context) (*domain.ScoringRules, error)
}

// RaceStore provides access to races.
type RaceStore interface {
	// Insert adds a new race. Returns ErrDuplicateKey if race_id exists.
	Insert(ctx context.Context, r *domain.Race) error

	// GetByID retrieves a race by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, raceID string) (*domain.Race, error)

	// GetByGame retrieves all races for a game, ordered by start_time ASC.
	GetByGame(ctx context.Context, gameID string) ([]*domain.Race, error)

	// SetRulesVersion records the rules version the race is currently
	// scored under. Returns ErrNotFound if the race does not exist.
	SetRulesVersion(ctx context.Context, raceID string, version int) error
}

// TeamStore provides access to teams and their rosters.
type TeamStore interface {
	// Insert adds a new team. Returns ErrDuplicateKey if team_id exists.
	Insert(ctx context.Context, t *domain.Team) error

	// GetByID retrieves a team by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, teamID string) (*domain.Team, error)

	// GetByGame retrieves all teams for a game, ordered by team_id ASC.
	GetByGame(ctx context.Context, gameID string) ([]*domain.Team, error)

	// AddRosterEntry assigns a competitor to a team. Returns
	// ErrDuplicateKey if the competitor is already rostered in the game.
	AddRosterEntry(ctx context.Context, e *domain.RosterEntry) error

	// GetRoster retrieves the competitor IDs on a team, ordered ASC.
	GetRoster(ctx context.Context, teamID string) ([]string, error)

	// GetTeamForCompetitor resolves the team a competitor plays for in a
	// game. Returns ErrNotFound for unrostered competitors.
	GetTeamForCompetitor(ctx context.Context, gameID, competitorID string) (*domain.Team, error)
}

// FinishStore provides access to raw finish records.
type FinishStore interface {
	// Insert adds a new finish record. Returns ErrDuplicateKey if the
	// competitor already has a record for the race.
	Insert(ctx context.Context, f *domain.FinishRecord) error

	// Correct replaces a non-finalized record's result fields. Returns
	// ErrFinalized if the record is finalized, ErrNotFound if missing.
	Correct(ctx context.Context, f *domain.FinishRecord) error

	// Finalize marks every finish record of a race immutable.
	Finalize(ctx context.Context, raceID string) error

	// GetByID retrieves a finish record. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, finishID string) (*domain.FinishRecord, error)

	// GetByRace retrieves all finish records for a race, ordered by
	// finish_time_ms ASC then competitor_id ASC. The returned slice is a
	// consistent snapshot: placements for a division are always computed
	// from a single call.
	GetByRace(ctx context.Context, raceID string) ([]*domain.FinishRecord, error)

	// GetByDivision retrieves the finish records for one race+gender
	// division with the same ordering and snapshot guarantee as GetByRace.
	GetByDivision(ctx context.Context, raceID string, gender domain.Gender) ([]*domain.FinishRecord, error)
}

// BreakdownStore provides access to point breakdowns.
// Put replaces the whole row atomically: partial field writes are never
// possible, which keeps the total-points invariant stable under
// concurrent corrections and confirmations.
type BreakdownStore interface {
	// Put inserts or replaces a breakdown as one atomic write.
	Put(ctx context.Context, b *domain.PointBreakdown) error

	// GetByID retrieves a breakdown. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, breakdownID string) (*domain.PointBreakdown, error)

	// GetByRace retrieves all breakdowns for a race, ordered by
	// placement ASC then competitor_id ASC.
	GetByRace(ctx context.Context, raceID string) ([]*domain.PointBreakdown, error)

	// GetByRaceVersion retrieves the breakdowns for a race computed
	// under one rules version, same ordering as GetByRace.
	GetByRaceVersion(ctx context.Context, raceID string, rulesVersion int) ([]*domain.PointBreakdown, error)
}

// BaselineStore provides access to known record baselines.
type BaselineStore interface {
	// Put inserts or replaces the baseline for (race, gender, type).
	Put(ctx context.Context, b *domain.RecordBaseline) error

	// Get retrieves a baseline. Returns ErrNotFound when no record is
	// known for the combination.
	Get(ctx context.Context, raceID string, gender domain.Gender, t domain.RecordType) (*domain.RecordBaseline, error)
}

// StandingStore caches league standings per game.
type StandingStore interface {
	// PutAll atomically replaces the cached rows for a game and marks
	// the cache valid.
	PutAll(ctx context.Context, gameID string, rows []*domain.LeagueStanding) error

	// GetByGame retrieves the cached rows for a game, ordered by rank
	// ASC then team_id ASC. Returns ErrNotFound when nothing is cached.
	// Rows are returned even when the cache is invalid; callers check
	// IsValid to decide whether to serve or recompute.
	GetByGame(ctx context.Context, gameID string) ([]*domain.LeagueStanding, error)

	// IsValid reports whether the cached rows for a game are current.
	IsValid(ctx context.Context, gameID string) (bool, error)

	// Invalidate marks a game's cache stale without discarding rows,
	// so a degraded read can still serve the last known good data.
	Invalidate(ctx context.Context, gameID string) error
}

// AuditStore provides access to the append-only scoring audit trail.
type AuditStore interface {
	// Insert appends one audit event.
	Insert(ctx context.Context, e *domain.ScoreAuditEvent) error

	// GetByBreakdown retrieves the events for a breakdown, ordered by
	// occurred_at ASC.
	GetByBreakdown(ctx context.Context, breakdownID string) ([]*domain.ScoreAuditEvent, error)
}
