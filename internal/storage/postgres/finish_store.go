package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// FinishStore implements storage.FinishStore using PostgreSQL.
type FinishStore struct {
	pool *Pool
}

// NewFinishStore creates a new FinishStore.
func NewFinishStore(pool *Pool) *FinishStore {
	return &FinishStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FinishStore = (*FinishStore)(nil)

// Insert adds a new finish record. Returns ErrDuplicateKey if the
// competitor already has a record for the race.
func (s *FinishStore) Insert(ctx context.Context, f *domain.FinishRecord) error {
	if f == nil || f.FinishID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO finish_records (
			finish_id, race_id, competitor_id, gender, status, finish_time_ms,
			first_half_ms, second_half_ms, last_5k_ms, finalized
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		f.FinishID,
		f.RaceID,
		f.CompetitorID,
		string(f.Gender),
		string(f.Status),
		f.FinishTimeMs,
		f.FirstHalfMs,
		f.SecondHalfMs,
		f.Last5kMs,
		f.Finalized,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert finish record: %w", err)
	}
	return nil
}

// Correct replaces a non-finalized record's result fields. Returns
// ErrFinalized if the record is finalized, ErrNotFound if missing.
func (s *FinishStore) Correct(ctx context.Context, f *domain.FinishRecord) error {
	if f == nil || f.FinishID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE finish_records
		SET gender = $2, status = $3, finish_time_ms = $4,
			first_half_ms = $5, second_half_ms = $6, last_5k_ms = $7
		WHERE finish_id = $1 AND NOT finalized
	`

	tag, err := s.pool.Exec(ctx, query,
		f.FinishID,
		string(f.Gender),
		string(f.Status),
		f.FinishTimeMs,
		f.FirstHalfMs,
		f.SecondHalfMs,
		f.Last5kMs,
	)
	if err != nil {
		return fmt.Errorf("correct finish record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing record from a finalized one.
		if _, err := s.GetByID(ctx, f.FinishID); err != nil {
			return err
		}
		return storage.ErrFinalized
	}
	return nil
}

// Finalize marks every finish record of a race immutable.
func (s *FinishStore) Finalize(ctx context.Context, raceID string) error {
	query := `UPDATE finish_records SET finalized = TRUE WHERE race_id = $1`

	if _, err := s.pool.Exec(ctx, query, raceID); err != nil {
		return fmt.Errorf("finalize finish records: %w", err)
	}
	return nil
}

// GetByID retrieves a finish record. Returns ErrNotFound if not exists.
func (s *FinishStore) GetByID(ctx context.Context, finishID string) (*domain.FinishRecord, error) {
	query := `
		SELECT finish_id, race_id, competitor_id, gender, status, finish_time_ms,
			first_half_ms, second_half_ms, last_5k_ms, finalized, created_at
		FROM finish_records
		WHERE finish_id = $1
	`

	f, err := scanFinish(s.pool.QueryRow(ctx, query, finishID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get finish record by id: %w", err)
	}
	return f, nil
}

// GetByRace retrieves all finish records for a race, ordered by
// finish_time_ms ASC then competitor_id ASC.
func (s *FinishStore) GetByRace(ctx context.Context, raceID string) ([]*domain.FinishRecord, error) {
	query := `
		SELECT finish_id, race_id, competitor_id, gender, status, finish_time_ms,
			first_half_ms, second_half_ms, last_5k_ms, finalized, created_at
		FROM finish_records
		WHERE race_id = $1
		ORDER BY finish_time_ms ASC, competitor_id ASC
	`

	rows, err := s.pool.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("get finish records by race: %w", err)
	}
	defer rows.Close()

	return scanFinishes(rows)
}

// GetByDivision retrieves the finish records for one race+gender division
// with the same ordering as GetByRace.
func (s *FinishStore) GetByDivision(ctx context.Context, raceID string, gender domain.Gender) ([]*domain.FinishRecord, error) {
	query := `
		SELECT finish_id, race_id, competitor_id, gender, status, finish_time_ms,
			first_half_ms, second_half_ms, last_5k_ms, finalized, created_at
		FROM finish_records
		WHERE race_id = $1 AND gender = $2
		ORDER BY finish_time_ms ASC, competitor_id ASC
	`

	rows, err := s.pool.Query(ctx, query, raceID, string(gender))
	if err != nil {
		return nil, fmt.Errorf("get finish records by division: %w", err)
	}
	defer rows.Close()

	return scanFinishes(rows)
}

// scanFinish scans a single row into a FinishRecord.
func scanFinish(row pgx.Row) (*domain.FinishRecord, error) {
	var f domain.FinishRecord
	var genderStr, statusStr string

	err := row.Scan(
		&f.FinishID,
		&f.RaceID,
		&f.CompetitorID,
		&genderStr,
		&statusStr,
		&f.FinishTimeMs,
		&f.FirstHalfMs,
		&f.SecondHalfMs,
		&f.Last5kMs,
		&f.Finalized,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Gender = domain.Gender(genderStr)
	f.Status = domain.FinishStatus(statusStr)
	return &f, nil
}

// scanFinishes scans multiple rows into a slice of FinishRecord.
func scanFinishes(rows pgx.Rows) ([]*domain.FinishRecord, error) {
	var finishes []*domain.FinishRecord

	for rows.Next() {
		f, err := scanFinish(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finish record row: %w", err)
		}
		finishes = append(finishes, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finish record rows: %w", err)
	}

	return finishes, nil
}
