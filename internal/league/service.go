// Package league wires the scoring engine together: it loads rules and
// finish snapshots, runs the calculator and record detector per division,
// persists breakdowns atomically, appends audit events and keeps the
// standings cache in sync.
package league

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marathon-league/internal/domain"
	"marathon-league/internal/idhash"
	"marathon-league/internal/observability"
	"marathon-league/internal/records"
	"marathon-league/internal/scoring"
	"marathon-league/internal/standings"
	"marathon-league/internal/storage"
)

// ErrUnknownRulesVersion is returned when a scoring call names a rules
// version that was never stored. The call fails before any write: a
// typo'd version must never silently score a race under different rules.
var ErrUnknownRulesVersion = errors.New("unknown rules version")

// StandingsNotifier pushes refreshed standings to connected observers.
type StandingsNotifier interface {
	BroadcastStandings(gameID string, rows []*domain.LeagueStanding)
}

// Service coordinates scoring, record confirmation and aggregation.
type Service struct {
	rules      storage.RulesStore
	races      storage.RaceStore
	teams      storage.TeamStore
	finishes   storage.FinishStore
	breakdowns storage.BreakdownStore
	baselines  storage.BaselineStore
	standings  storage.StandingStore
	audits     storage.AuditStore

	aggregator *standings.Aggregator
	workflow   *records.Workflow

	logger   *slog.Logger
	metrics  *observability.Metrics
	notifier StandingsNotifier
}

// Options for creating a Service.
type Options struct {
	Rules      storage.RulesStore
	Races      storage.RaceStore
	Teams      storage.TeamStore
	Finishes   storage.FinishStore
	Breakdowns storage.BreakdownStore
	Baselines  storage.BaselineStore
	Standings  storage.StandingStore
	Audits     storage.AuditStore

	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Notifier StandingsNotifier
}

// New creates a league service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		rules:      opts.Rules,
		races:      opts.Races,
		teams:      opts.Teams,
		finishes:   opts.Finishes,
		breakdowns: opts.Breakdowns,
		baselines:  opts.Baselines,
		standings:  opts.Standings,
		audits:     opts.Audits,
		aggregator: standings.New(opts.Races, opts.Breakdowns, opts.Teams, opts.Standings, logger, opts.Metrics),
		workflow:   records.NewWorkflow(opts.Breakdowns, logger),
		logger:     logger,
		metrics:    opts.Metrics,
		notifier:   opts.Notifier,
	}
}

// CalculateScores scores every division of a race under the named rules
// version and returns the persisted breakdowns, ordered per division by
// placement ASC with unplaced rows last.
//
// Re-running with unchanged input rewrites identical rows: breakdown ids
// are deterministic and creation timestamps survive replacement, so the
// serialized output is byte-for-byte stable. When the version differs
// from the race's current one, the old rows are marked superseded, the
// race is moved to the new version and standings reflect only the new
// rows.
func (s *Service) CalculateScores(ctx context.Context, raceID string, rulesVersion int) ([]*domain.PointBreakdown, error) {
	start := time.Now()
	result, err := s.calculateScores(ctx, raceID, rulesVersion)
	if s.metrics != nil {
		s.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ScoringRuns.WithLabelValues(outcome).Inc()
	}
	return result, err
}

func (s *Service) calculateScores(ctx context.Context, raceID string, rulesVersion int) ([]*domain.PointBreakdown, error) {
	race, err := s.races.GetByID(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", raceID, err)
	}

	rules, err := s.rules.GetByVersion(ctx, rulesVersion)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRulesVersion, rulesVersion)
		}
		return nil, fmt.Errorf("load rules version %d: %w", rulesVersion, err)
	}

	// Previous effective totals, for incremental standings deltas. When
	// the version changes these rows are also the ones to supersede.
	previous, err := s.breakdowns.GetByRaceVersion(ctx, raceID, race.RulesVersion)
	if err != nil {
		return nil, fmt.Errorf("load previous breakdowns for race %s: %w", raceID, err)
	}
	prevTotals := make(map[string]int, len(previous))
	for _, b := range previous {
		if !b.Superseded {
			prevTotals[b.CompetitorID] = b.TotalPoints
		}
	}

	var computed []*domain.PointBreakdown
	for _, gender := range domain.Genders {
		divisionRows, err := s.scoreDivision(ctx, rules, race, gender)
		if err != nil {
			return nil, err
		}
		computed = append(computed, divisionRows...)
	}

	if rulesVersion != race.RulesVersion {
		if err := s.supersede(ctx, previous); err != nil {
			return nil, err
		}
		if err := s.races.SetRulesVersion(ctx, raceID, rulesVersion); err != nil {
			return nil, fmt.Errorf("move race %s to rules version %d: %w", raceID, rulesVersion, err)
		}
	}

	now := time.Now().UnixMilli()
	deltas := make([]standings.PointsDelta, 0, len(computed))
	for _, b := range computed {
		if err := s.breakdowns.Put(ctx, b); err != nil {
			return nil, fmt.Errorf("store breakdown %s: %w", b.BreakdownID, err)
		}

		delta := b.TotalPoints - prevTotals[b.CompetitorID]
		delete(prevTotals, b.CompetitorID)
		if delta != 0 {
			deltas = append(deltas, standings.PointsDelta{CompetitorID: b.CompetitorID, Delta: delta})
		}

		if err := s.audit(ctx, b, domain.AuditScored, delta, now); err != nil {
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.BreakdownsComputed.Inc()
			if b.DataWarning != "" {
				s.metrics.DataWarnings.Inc()
			}
			if b.RecordType != domain.RecordNone {
				s.metrics.RecordCandidates.WithLabelValues(string(b.RecordType)).Inc()
			}
		}
	}
	// Competitors that vanished from the input retract their old points.
	for competitorID, total := range prevTotals {
		if total != 0 {
			deltas = append(deltas, standings.PointsDelta{CompetitorID: competitorID, Delta: -total})
		}
	}

	if err := s.refreshStandings(ctx, race.GameID, deltas); err != nil {
		return nil, err
	}

	s.logger.Info("race scored",
		"race_id", raceID,
		"rules_version", rulesVersion,
		"breakdowns", len(computed))

	return computed, nil
}

// scoreDivision scores one race+gender division from a single finish
// snapshot and stamps record candidates onto the placed rows.
func (s *Service) scoreDivision(ctx context.Context, rules *domain.ScoringRules, race *domain.Race, gender domain.Gender) ([]*domain.PointBreakdown, error) {
	finishes, err := s.finishes.GetByDivision(ctx, race.RaceID, gender)
	if err != nil {
		return nil, fmt.Errorf("load %s finishes for race %s: %w", gender, race.RaceID, err)
	}
	if len(finishes) == 0 {
		return nil, nil
	}

	rows := scoring.ScoreDivision(rules, race, finishes)

	course, err := s.baseline(ctx, race.RaceID, gender, domain.RecordCourse)
	if err != nil {
		return nil, err
	}
	world, err := s.baseline(ctx, race.RaceID, gender, domain.RecordWorld)
	if err != nil {
		return nil, err
	}

	timeOf := make(map[string]int64, len(finishes))
	for _, f := range finishes {
		timeOf[f.CompetitorID] = f.FinishTimeMs
	}

	for _, b := range rows {
		if b.Placement == 0 {
			continue
		}
		candidate := records.Detect(rules, timeOf[b.CompetitorID], course, world)
		carried, err := s.carryTerminalRecord(ctx, b, candidate)
		if err != nil {
			return nil, err
		}
		if !carried {
			records.Apply(b, rules, candidate)
		}
	}

	return rows, nil
}

// carryTerminalRecord preserves an authority's decision across a rescore
// under the same rules version. CONFIRMED and REJECTED are terminal:
// when the stored row already reached one of them and re-detection still
// flags the same record type, the stored record fields are carried
// forward instead of re-applying the provisional policy, so a rescore
// never resurrects a settled record question.
func (s *Service) carryTerminalRecord(ctx context.Context, b *domain.PointBreakdown, c records.Candidate) (bool, error) {
	existing, err := s.breakdowns.GetByID(ctx, b.BreakdownID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load breakdown %s: %w", b.BreakdownID, err)
	}

	terminal := existing.RecordStatus == domain.RecordStatusConfirmed ||
		existing.RecordStatus == domain.RecordStatusRejected
	if !terminal || existing.RecordType != c.Type {
		return false, nil
	}

	b.RecordType = existing.RecordType
	b.RecordStatus = existing.RecordStatus
	b.RecordBonusPoints = existing.RecordBonusPoints
	b.PendingRecordPoints = existing.PendingRecordPoints
	b.TotalPoints = b.ComponentSum()
	return true, nil
}

func (s *Service) baseline(ctx context.Context, raceID string, gender domain.Gender, t domain.RecordType) (*domain.RecordBaseline, error) {
	b, err := s.baselines.Get(ctx, raceID, gender, t)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s %s baseline for race %s: %w", gender, t, raceID, err)
	}
	return b, nil
}

// supersede marks old-version rows inactive and logs the retraction.
func (s *Service) supersede(ctx context.Context, old []*domain.PointBreakdown) error {
	now := time.Now().UnixMilli()
	for _, b := range old {
		if b.Superseded {
			continue
		}
		b.Superseded = true
		if err := s.breakdowns.Put(ctx, b); err != nil {
			return fmt.Errorf("supersede breakdown %s: %w", b.BreakdownID, err)
		}
		if err := s.audit(ctx, b, domain.AuditSuperseded, -b.TotalPoints, now); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmRecord finalizes a provisional record bonus. Re-confirming an
// already-confirmed breakdown is a no-op; confirming a rejected one
// fails with records.ErrInvalidTransition.
func (s *Service) ConfirmRecord(ctx context.Context, breakdownID string) (*domain.PointBreakdown, error) {
	return s.transition(ctx, breakdownID, s.workflow.Confirm, domain.AuditConfirmed, "confirm")
}

// RejectRecord dismisses a provisional record bonus and retracts any
// provisionally granted points. Re-rejecting is a no-op.
func (s *Service) RejectRecord(ctx context.Context, breakdownID string) (*domain.PointBreakdown, error) {
	return s.transition(ctx, breakdownID, s.workflow.Reject, domain.AuditRejected, "reject")
}

func (s *Service) transition(
	ctx context.Context,
	breakdownID string,
	apply func(context.Context, string) (*domain.PointBreakdown, int, error),
	action domain.AuditAction,
	name string,
) (*domain.PointBreakdown, error) {
	b, delta, err := apply(ctx, breakdownID)
	if err != nil {
		if errors.Is(err, records.ErrInvalidTransition) && s.metrics != nil {
			s.metrics.InvalidTransitions.Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordTransitions.WithLabelValues(name).Inc()
	}

	if delta == 0 {
		return b, nil
	}

	if err := s.audit(ctx, b, action, delta, time.Now().UnixMilli()); err != nil {
		return nil, err
	}

	race, err := s.races.GetByID(ctx, b.RaceID)
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", b.RaceID, err)
	}
	if err := s.refreshStandings(ctx, race.GameID, []standings.PointsDelta{
		{CompetitorID: b.CompetitorID, Delta: delta},
	}); err != nil {
		return nil, err
	}

	return b, nil
}

// GetStandings serves the standings for a game. With cached=true a valid
// cache is served directly and only a stale one triggers recomputation;
// cached=false always runs the full recompute and refreshes the cache.
// A failed recompute degrades to the last known good rows instead of
// failing the read.
func (s *Service) GetStandings(ctx context.Context, gameID string, cached bool) ([]*domain.LeagueStanding, error) {
	if cached {
		valid, err := s.standings.IsValid(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("check standings cache for game %s: %w", gameID, err)
		}
		if valid {
			rows, err := s.standings.GetByGame(ctx, gameID)
			if err == nil {
				if s.metrics != nil {
					s.metrics.StandingsCacheHits.Inc()
				}
				return rows, nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("load standings for game %s: %w", gameID, err)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.StandingsCacheMisses.Inc()
	}
	rows, err := s.aggregator.FullRecompute(ctx, gameID)
	if err == nil {
		return rows, nil
	}

	stale, staleErr := s.standings.GetByGame(ctx, gameID)
	if staleErr != nil {
		return nil, fmt.Errorf("recompute standings for game %s: %w", gameID, err)
	}
	s.logger.Warn("standings recompute failed, serving last known good rows",
		"game_id", gameID,
		"err", err)
	return stale, nil
}

// RecordFinish stores a new finish record with a deterministic id.
func (s *Service) RecordFinish(ctx context.Context, f *domain.FinishRecord) error {
	if f == nil || f.RaceID == "" || f.CompetitorID == "" {
		return storage.ErrInvalidInput
	}
	if !f.Gender.IsValid() || !f.Status.IsValid() {
		return storage.ErrInvalidInput
	}
	if _, err := s.races.GetByID(ctx, f.RaceID); err != nil {
		return fmt.Errorf("load race %s: %w", f.RaceID, err)
	}

	f.FinishID = idhash.ComputeFinishID(f.RaceID, f.CompetitorID)
	if err := s.finishes.Insert(ctx, f); err != nil {
		return fmt.Errorf("store finish %s: %w", f.FinishID, err)
	}
	return nil
}

// CorrectFinish replaces a non-finalized finish record's result fields
// and rescores the race under its current rules version.
func (s *Service) CorrectFinish(ctx context.Context, f *domain.FinishRecord) ([]*domain.PointBreakdown, error) {
	if f == nil || f.RaceID == "" || f.CompetitorID == "" {
		return nil, storage.ErrInvalidInput
	}

	race, err := s.races.GetByID(ctx, f.RaceID)
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", f.RaceID, err)
	}

	f.FinishID = idhash.ComputeFinishID(f.RaceID, f.CompetitorID)
	if err := s.finishes.Correct(ctx, f); err != nil {
		return nil, fmt.Errorf("correct finish %s: %w", f.FinishID, err)
	}

	s.logger.Info("finish corrected, rescoring race",
		"race_id", f.RaceID,
		"competitor_id", f.CompetitorID)

	return s.CalculateScores(ctx, f.RaceID, race.RulesVersion)
}

// FinalizeRace marks every finish record of a race immutable. Further
// corrections fail with storage.ErrFinalized.
func (s *Service) FinalizeRace(ctx context.Context, raceID string) error {
	if _, err := s.races.GetByID(ctx, raceID); err != nil {
		return fmt.Errorf("load race %s: %w", raceID, err)
	}
	if err := s.finishes.Finalize(ctx, raceID); err != nil {
		return fmt.Errorf("finalize race %s: %w", raceID, err)
	}
	s.logger.Info("race finalized", "race_id", raceID)
	return nil
}

func (s *Service) refreshStandings(ctx context.Context, gameID string, deltas []standings.PointsDelta) error {
	rows, err := s.aggregator.IncrementalUpdate(ctx, gameID, deltas)
	if err != nil {
		return fmt.Errorf("update standings for game %s: %w", gameID, err)
	}
	if s.notifier != nil {
		s.notifier.BroadcastStandings(gameID, rows)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, b *domain.PointBreakdown, action domain.AuditAction, delta int, now int64) error {
	event := &domain.ScoreAuditEvent{
		EventID:      uuid.NewString(),
		BreakdownID:  b.BreakdownID,
		RaceID:       b.RaceID,
		CompetitorID: b.CompetitorID,
		Action:       action,
		RecordType:   b.RecordType,
		PointsDelta:  delta,
		TotalAfter:   b.TotalPoints,
		RulesVersion: b.RulesVersion,
		OccurredAt:   now,
	}
	if err := s.audits.Insert(ctx, event); err != nil {
		return fmt.Errorf("append %s audit event for breakdown %s: %w", action, b.BreakdownID, err)
	}
	return nil
}
