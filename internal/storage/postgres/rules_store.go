package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// RulesStore implements storage.RulesStore using PostgreSQL.
// Versions are append-only; there is no update path by design of the
// interface.
type RulesStore struct {
	pool *Pool
}

// NewRulesStore creates a new RulesStore.
func NewRulesStore(pool *Pool) *RulesStore {
	return &RulesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RulesStore = (*RulesStore)(nil)

// ruleConfigs groups the JSONB columns of one rules row.
type ruleConfigs struct {
	TimeGapWindows []domain.TimeGapWindow  `json:"timeGapWindows"`
	NegativeSplit  domain.PerformanceBonus `json:"negativeSplit"`
	EvenPace       domain.PerformanceBonus `json:"evenPace"`
	FastFinishKick domain.PerformanceBonus `json:"fastFinishKick"`
	CourseRecord   domain.RecordBonus      `json:"courseRecord"`
	WorldRecord    domain.RecordBonus      `json:"worldRecord"`
}

// Insert adds a new rules version. Returns ErrDuplicateKey if the version
// already exists, ErrInvalidInput if the rule set fails validation.
func (s *RulesStore) Insert(ctx context.Context, r *domain.ScoringRules) error {
	if r == nil {
		return storage.ErrInvalidInput
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	configs, err := json.Marshal(ruleConfigs{
		TimeGapWindows: r.TimeGapWindows,
		NegativeSplit:  r.NegativeSplit,
		EvenPace:       r.EvenPace,
		FastFinishKick: r.FastFinishKick,
		CourseRecord:   r.CourseRecord,
		WorldRecord:    r.WorldRecord,
	})
	if err != nil {
		return fmt.Errorf("marshal rule configs: %w", err)
	}

	placements := make([]int32, len(r.PlacementPoints))
	for i, p := range r.PlacementPoints {
		placements[i] = int32(p)
	}

	query := `
		INSERT INTO scoring_rules (
			version, placement_points, max_scored_place, configs,
			records_mutually_exclusive, confirmation_policy, provisional_policy
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		r.Version,
		placements,
		r.MaxScoredPlace,
		configs,
		r.RecordsMutuallyExclusive,
		string(r.RecordConfirmationPolicy),
		string(r.ProvisionalPointsPolicy),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rules: %w", err)
	}
	return nil
}

// GetByVersion retrieves one version. Returns ErrNotFound if it does not
// exist.
func (s *RulesStore) GetByVersion(ctx context.Context, version int) (*domain.ScoringRules, error) {
	query := `
		SELECT version, placement_points, max_scored_place, configs,
			records_mutually_exclusive, confirmation_policy, provisional_policy, created_at
		FROM scoring_rules
		WHERE version = $1
	`

	r, err := scanRules(s.pool.QueryRow(ctx, query, version))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rules by version: %w", err)
	}
	return r, nil
}

// Latest retrieves the highest version. Returns ErrNotFound when no rules
// exist.
func (s *RulesStore) Latest(ctx context.Context) (*domain.ScoringRules, error) {
	query := `
		SELECT version, placement_points, max_scored_place, configs,
			records_mutually_exclusive, confirmation_policy, provisional_policy, created_at
		FROM scoring_rules
		ORDER BY version DESC
		LIMIT 1
	`

	r, err := scanRules(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest rules: %w", err)
	}
	return r, nil
}

// scanRules scans a single row into a ScoringRules.
func scanRules(row pgx.Row) (*domain.ScoringRules, error) {
	var r domain.ScoringRules
	var placements []int32
	var configsRaw []byte
	var confirmationStr, provisionalStr string

	err := row.Scan(
		&r.Version,
		&placements,
		&r.MaxScoredPlace,
		&configsRaw,
		&r.RecordsMutuallyExclusive,
		&confirmationStr,
		&provisionalStr,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var configs ruleConfigs
	if err := json.Unmarshal(configsRaw, &configs); err != nil {
		return nil, fmt.Errorf("unmarshal rule configs: %w", err)
	}

	r.PlacementPoints = make([]int, len(placements))
	for i, p := range placements {
		r.PlacementPoints[i] = int(p)
	}
	r.TimeGapWindows = configs.TimeGapWindows
	r.NegativeSplit = configs.NegativeSplit
	r.EvenPace = configs.EvenPace
	r.FastFinishKick = configs.FastFinishKick
	r.CourseRecord = configs.CourseRecord
	r.WorldRecord = configs.WorldRecord
	r.RecordConfirmationPolicy = domain.ConfirmationPolicy(confirmationStr)
	r.ProvisionalPointsPolicy = domain.ProvisionalPolicy(provisionalStr)
	return &r, nil
}
