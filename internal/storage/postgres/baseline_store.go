package postgres

import (
	"context"
	"fmt"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// BaselineStore implements storage.BaselineStore using PostgreSQL.
type BaselineStore struct {
	pool *Pool
}

// NewBaselineStore creates a new BaselineStore.
func NewBaselineStore(pool *Pool) *BaselineStore {
	return &BaselineStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BaselineStore = (*BaselineStore)(nil)

// Put inserts or replaces the baseline for (race, gender, type).
func (s *BaselineStore) Put(ctx context.Context, b *domain.RecordBaseline) error {
	if b == nil || b.RaceID == "" || !b.Gender.IsValid() {
		return storage.ErrInvalidInput
	}
	if b.Type != domain.RecordCourse && b.Type != domain.RecordWorld {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO record_baselines (race_id, gender, record_type, time_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (race_id, gender, record_type) DO UPDATE SET
			time_ms = EXCLUDED.time_ms
	`

	_, err := s.pool.Exec(ctx, query,
		b.RaceID,
		string(b.Gender),
		string(b.Type),
		b.TimeMs,
	)
	if err != nil {
		return fmt.Errorf("put record baseline: %w", err)
	}
	return nil
}

// Get retrieves a baseline. Returns ErrNotFound when no record is known
// for the combination.
func (s *BaselineStore) Get(ctx context.Context, raceID string, gender domain.Gender, t domain.RecordType) (*domain.RecordBaseline, error) {
	query := `
		SELECT race_id, gender, record_type, time_ms, created_at
		FROM record_baselines
		WHERE race_id = $1 AND gender = $2 AND record_type = $3
	`

	var b domain.RecordBaseline
	var genderStr, typeStr string
	err := s.pool.QueryRow(ctx, query, raceID, string(gender), string(t)).Scan(
		&b.RaceID,
		&genderStr,
		&typeStr,
		&b.TimeMs,
		&b.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get record baseline: %w", err)
	}

	b.Gender = domain.Gender(genderStr)
	b.Type = domain.RecordType(typeStr)
	return &b, nil
}
