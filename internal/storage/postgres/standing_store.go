package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// StandingStore implements storage.StandingStore using PostgreSQL.
// Rows and the per-game validity flag live in separate tables; PutAll
// swaps a game's rows inside one transaction.
type StandingStore struct {
	pool *Pool
}

// NewStandingStore creates a new StandingStore.
func NewStandingStore(pool *Pool) *StandingStore {
	return &StandingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StandingStore = (*StandingStore)(nil)

// PutAll atomically replaces the cached rows for a game and marks the
// cache valid.
func (s *StandingStore) PutAll(ctx context.Context, gameID string, rows []*domain.LeagueStanding) error {
	if gameID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin standings transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM league_standings WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("clear standings: %w", err)
	}

	insert := `
		INSERT INTO league_standings (
			game_id, team_id, team_name, rank, races_count, wins, podiums,
			world_records, course_records, total_points, average_points, last_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, row := range rows {
		_, err := tx.Exec(ctx, insert,
			row.GameID,
			row.TeamID,
			row.TeamName,
			row.Rank,
			row.RacesCount,
			row.Wins,
			row.Podiums,
			row.WorldRecords,
			row.CourseRecords,
			row.TotalPoints,
			row.AveragePoints,
			row.LastUpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert standing row: %w", err)
		}
	}

	valid := `
		INSERT INTO standings_cache_state (game_id, valid)
		VALUES ($1, TRUE)
		ON CONFLICT (game_id) DO UPDATE SET valid = TRUE
	`
	if _, err := tx.Exec(ctx, valid, gameID); err != nil {
		return fmt.Errorf("mark standings valid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit standings transaction: %w", err)
	}
	return nil
}

// GetByGame retrieves the cached rows for a game, ordered by rank ASC then
// team_id ASC. Returns ErrNotFound when nothing is cached.
func (s *StandingStore) GetByGame(ctx context.Context, gameID string) ([]*domain.LeagueStanding, error) {
	query := `
		SELECT game_id, team_id, team_name, rank, races_count, wins, podiums,
			world_records, course_records, total_points, average_points, last_updated_at
		FROM league_standings
		WHERE game_id = $1
		ORDER BY rank ASC, team_id ASC
	`

	rows, err := s.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("get standings by game: %w", err)
	}
	defer rows.Close()

	standings, err := scanStandings(rows)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, storage.ErrNotFound
	}
	return standings, nil
}

// IsValid reports whether the cached rows for a game are current.
func (s *StandingStore) IsValid(ctx context.Context, gameID string) (bool, error) {
	query := `SELECT valid FROM standings_cache_state WHERE game_id = $1`

	var valid bool
	err := s.pool.QueryRow(ctx, query, gameID).Scan(&valid)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check standings validity: %w", err)
	}
	return valid, nil
}

// Invalidate marks a game's cache stale without discarding rows.
func (s *StandingStore) Invalidate(ctx context.Context, gameID string) error {
	query := `
		INSERT INTO standings_cache_state (game_id, valid)
		VALUES ($1, FALSE)
		ON CONFLICT (game_id) DO UPDATE SET valid = FALSE
	`

	if _, err := s.pool.Exec(ctx, query, gameID); err != nil {
		return fmt.Errorf("invalidate standings: %w", err)
	}
	return nil
}

// scanStandings scans multiple rows into a slice of LeagueStanding.
func scanStandings(rows pgx.Rows) ([]*domain.LeagueStanding, error) {
	var standings []*domain.LeagueStanding

	for rows.Next() {
		var st domain.LeagueStanding
		err := rows.Scan(
			&st.GameID,
			&st.TeamID,
			&st.TeamName,
			&st.Rank,
			&st.RacesCount,
			&st.Wins,
			&st.Podiums,
			&st.WorldRecords,
			&st.CourseRecords,
			&st.TotalPoints,
			&st.AveragePoints,
			&st.LastUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan standing row: %w", err)
		}
		standings = append(standings, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standing rows: %w", err)
	}

	return standings, nil
}
