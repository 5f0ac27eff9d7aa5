package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// RaceStore implements storage.RaceStore using PostgreSQL.
type RaceStore struct {
	pool *Pool
}

// NewRaceStore creates a new RaceStore.
func NewRaceStore(pool *Pool) *RaceStore {
	return &RaceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RaceStore = (*RaceStore)(nil)

// Insert adds a new race. Returns ErrDuplicateKey if race_id exists.
func (s *RaceStore) Insert(ctx context.Context, r *domain.Race) error {
	if r == nil || r.RaceID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO races (
			race_id, game_id, name, distance_km, start_time, rules_version
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RaceID,
		r.GameID,
		r.Name,
		r.DistanceKm,
		r.StartTime,
		r.RulesVersion,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert race: %w", err)
	}
	return nil
}

// GetByID retrieves a race by its ID. Returns ErrNotFound if not exists.
func (s *RaceStore) GetByID(ctx context.Context, raceID string) (*domain.Race, error) {
	query := `
		SELECT race_id, game_id, name, distance_km, start_time, rules_version, created_at
		FROM races
		WHERE race_id = $1
	`

	r, err := scanRace(s.pool.QueryRow(ctx, query, raceID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get race by id: %w", err)
	}
	return r, nil
}

// GetByGame retrieves all races for a game, ordered by start_time ASC.
func (s *RaceStore) GetByGame(ctx context.Context, gameID string) ([]*domain.Race, error) {
	query := `
		SELECT race_id, game_id, name, distance_km, start_time, rules_version, created_at
		FROM races
		WHERE game_id = $1
		ORDER BY start_time ASC, race_id ASC
	`

	rows, err := s.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("get races by game: %w", err)
	}
	defer rows.Close()

	var races []*domain.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race row: %w", err)
		}
		races = append(races, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate race rows: %w", err)
	}
	return races, nil
}

// SetRulesVersion records the rules version the race is currently scored
// under. Returns ErrNotFound if the race does not exist.
func (s *RaceStore) SetRulesVersion(ctx context.Context, raceID string, version int) error {
	query := `UPDATE races SET rules_version = $2 WHERE race_id = $1`

	tag, err := s.pool.Exec(ctx, query, raceID, version)
	if err != nil {
		return fmt.Errorf("set race rules version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanRace scans a single row into a Race.
func scanRace(row pgx.Row) (*domain.Race, error) {
	var r domain.Race
	err := row.Scan(
		&r.RaceID,
		&r.GameID,
		&r.Name,
		&r.DistanceKm,
		&r.StartTime,
		&r.RulesVersion,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
