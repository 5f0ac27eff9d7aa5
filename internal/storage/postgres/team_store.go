package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// TeamStore implements storage.TeamStore using PostgreSQL.
type TeamStore struct {
	pool *Pool
}

// NewTeamStore creates a new TeamStore.
func NewTeamStore(pool *Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TeamStore = (*TeamStore)(nil)

// Insert adds a new team. Returns ErrDuplicateKey if team_id exists.
func (s *TeamStore) Insert(ctx context.Context, t *domain.Team) error {
	if t == nil || t.TeamID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO teams (team_id, game_id, name)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, t.TeamID, t.GameID, t.Name)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// GetByID retrieves a team by its ID. Returns ErrNotFound if not exists.
func (s *TeamStore) GetByID(ctx context.Context, teamID string) (*domain.Team, error) {
	query := `
		SELECT team_id, game_id, name, created_at
		FROM teams
		WHERE team_id = $1
	`

	t, err := scanTeam(s.pool.QueryRow(ctx, query, teamID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get team by id: %w", err)
	}
	return t, nil
}

// GetByGame retrieves all teams for a game, ordered by team_id ASC.
func (s *TeamStore) GetByGame(ctx context.Context, gameID string) ([]*domain.Team, error) {
	query := `
		SELECT team_id, game_id, name, created_at
		FROM teams
		WHERE game_id = $1
		ORDER BY team_id ASC
	`

	rows, err := s.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("get teams by game: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team rows: %w", err)
	}
	return teams, nil
}

// AddRosterEntry assigns a competitor to a team. Returns ErrDuplicateKey
// if the competitor is already rostered in the game.
func (s *TeamStore) AddRosterEntry(ctx context.Context, e *domain.RosterEntry) error {
	if e == nil || e.TeamID == "" || e.GameID == "" || e.CompetitorID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO roster_entries (team_id, game_id, competitor_id)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, e.TeamID, e.GameID, e.CompetitorID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert roster entry: %w", err)
	}
	return nil
}

// GetRoster retrieves the competitor IDs on a team, ordered ASC.
func (s *TeamStore) GetRoster(ctx context.Context, teamID string) ([]string, error) {
	query := `
		SELECT competitor_id
		FROM roster_entries
		WHERE team_id = $1
		ORDER BY competitor_id ASC
	`

	rows, err := s.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	defer rows.Close()

	var competitors []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		competitors = append(competitors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster rows: %w", err)
	}
	return competitors, nil
}

// GetTeamForCompetitor resolves the team a competitor plays for in a game.
// Returns ErrNotFound for unrostered competitors.
func (s *TeamStore) GetTeamForCompetitor(ctx context.Context, gameID, competitorID string) (*domain.Team, error) {
	query := `
		SELECT t.team_id, t.game_id, t.name, t.created_at
		FROM teams t
		JOIN roster_entries r ON r.team_id = t.team_id
		WHERE r.game_id = $1 AND r.competitor_id = $2
	`

	t, err := scanTeam(s.pool.QueryRow(ctx, query, gameID, competitorID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get team for competitor: %w", err)
	}
	return t, nil
}

// scanTeam scans a single row into a Team.
func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.TeamID, &t.GameID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
