package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// BreakdownStore implements storage.BreakdownStore using PostgreSQL.
// Put is a single-statement upsert: the whole row is replaced atomically,
// so readers never observe a half-written breakdown.
type BreakdownStore struct {
	pool *Pool
}

// NewBreakdownStore creates a new BreakdownStore.
func NewBreakdownStore(pool *Pool) *BreakdownStore {
	return &BreakdownStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BreakdownStore = (*BreakdownStore)(nil)

// Put inserts or replaces a breakdown as one atomic write. The original
// created_at survives replacement.
func (s *BreakdownStore) Put(ctx context.Context, b *domain.PointBreakdown) error {
	if b == nil || b.BreakdownID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO point_breakdowns (
			breakdown_id, race_id, competitor_id, gender, placement,
			placement_points, time_gap_seconds, time_gap_points,
			performance_bonus_points, bonuses_triggered, record_bonus_points,
			pending_record_points, record_type, record_status, total_points,
			rules_version, data_warning, superseded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (breakdown_id) DO UPDATE SET
			race_id = EXCLUDED.race_id,
			competitor_id = EXCLUDED.competitor_id,
			gender = EXCLUDED.gender,
			placement = EXCLUDED.placement,
			placement_points = EXCLUDED.placement_points,
			time_gap_seconds = EXCLUDED.time_gap_seconds,
			time_gap_points = EXCLUDED.time_gap_points,
			performance_bonus_points = EXCLUDED.performance_bonus_points,
			bonuses_triggered = EXCLUDED.bonuses_triggered,
			record_bonus_points = EXCLUDED.record_bonus_points,
			pending_record_points = EXCLUDED.pending_record_points,
			record_type = EXCLUDED.record_type,
			record_status = EXCLUDED.record_status,
			total_points = EXCLUDED.total_points,
			rules_version = EXCLUDED.rules_version,
			data_warning = EXCLUDED.data_warning,
			superseded = EXCLUDED.superseded
	`

	_, err := s.pool.Exec(ctx, query,
		b.BreakdownID,
		b.RaceID,
		b.CompetitorID,
		string(b.Gender),
		b.Placement,
		b.PlacementPoints,
		b.TimeGapSeconds,
		b.TimeGapPoints,
		b.PerformanceBonusPoints,
		b.BonusesTriggered,
		b.RecordBonusPoints,
		b.PendingRecordPoints,
		string(b.RecordType),
		string(b.RecordStatus),
		b.TotalPoints,
		b.RulesVersion,
		b.DataWarning,
		b.Superseded,
	)
	if err != nil {
		return fmt.Errorf("put breakdown: %w", err)
	}
	return nil
}

// GetByID retrieves a breakdown. Returns ErrNotFound if not exists.
func (s *BreakdownStore) GetByID(ctx context.Context, breakdownID string) (*domain.PointBreakdown, error) {
	query := breakdownSelect + ` WHERE breakdown_id = $1`

	b, err := scanBreakdown(s.pool.QueryRow(ctx, query, breakdownID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get breakdown by id: %w", err)
	}
	return b, nil
}

// GetByRace retrieves all breakdowns for a race, ordered by placement ASC
// with unplaced rows last, then competitor_id ASC.
func (s *BreakdownStore) GetByRace(ctx context.Context, raceID string) ([]*domain.PointBreakdown, error) {
	query := breakdownSelect + `
		WHERE race_id = $1
		ORDER BY (placement = 0) ASC, placement ASC, competitor_id ASC
	`

	rows, err := s.pool.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("get breakdowns by race: %w", err)
	}
	defer rows.Close()

	return scanBreakdowns(rows)
}

// GetByRaceVersion retrieves the breakdowns for a race computed under one
// rules version, same ordering as GetByRace.
func (s *BreakdownStore) GetByRaceVersion(ctx context.Context, raceID string, rulesVersion int) ([]*domain.PointBreakdown, error) {
	query := breakdownSelect + `
		WHERE race_id = $1 AND rules_version = $2
		ORDER BY (placement = 0) ASC, placement ASC, competitor_id ASC
	`

	rows, err := s.pool.Query(ctx, query, raceID, rulesVersion)
	if err != nil {
		return nil, fmt.Errorf("get breakdowns by race and version: %w", err)
	}
	defer rows.Close()

	return scanBreakdowns(rows)
}

const breakdownSelect = `
	SELECT breakdown_id, race_id, competitor_id, gender, placement,
		placement_points, time_gap_seconds, time_gap_points,
		performance_bonus_points, bonuses_triggered, record_bonus_points,
		pending_record_points, record_type, record_status, total_points,
		rules_version, data_warning, superseded, created_at
	FROM point_breakdowns
`

// scanBreakdown scans a single row into a PointBreakdown.
func scanBreakdown(row pgx.Row) (*domain.PointBreakdown, error) {
	var b domain.PointBreakdown
	var genderStr, recordTypeStr, recordStatusStr string

	err := row.Scan(
		&b.BreakdownID,
		&b.RaceID,
		&b.CompetitorID,
		&genderStr,
		&b.Placement,
		&b.PlacementPoints,
		&b.TimeGapSeconds,
		&b.TimeGapPoints,
		&b.PerformanceBonusPoints,
		&b.BonusesTriggered,
		&b.RecordBonusPoints,
		&b.PendingRecordPoints,
		&recordTypeStr,
		&recordStatusStr,
		&b.TotalPoints,
		&b.RulesVersion,
		&b.DataWarning,
		&b.Superseded,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Gender = domain.Gender(genderStr)
	b.RecordType = domain.RecordType(recordTypeStr)
	b.RecordStatus = domain.RecordStatus(recordStatusStr)
	return &b, nil
}

// scanBreakdowns scans multiple rows into a slice of PointBreakdown.
func scanBreakdowns(rows pgx.Rows) ([]*domain.PointBreakdown, error) {
	var breakdowns []*domain.PointBreakdown

	for rows.Next() {
		b, err := scanBreakdown(rows)
		if err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		breakdowns = append(breakdowns, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakdown rows: %w", err)
	}

	return breakdowns, nil
}
