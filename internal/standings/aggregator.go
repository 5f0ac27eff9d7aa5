// Package standings folds point breakdowns into cached per-team league
// standings. The cache is an optimization only: every row is recomputable
// from breakdown data, and an incremental update that fails its
// consistency check falls back to a full recompute rather than ever
// serving silently wrong totals.
package standings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"marathon-league/internal/domain"
	"marathon-league/internal/observability"
	"marathon-league/internal/storage"
)

// ErrAggregationInconsistency is returned when a team's re-summed total
// does not reconcile with its previous cached total plus the expected
// delta. The caller never sees it as a failure: the aggregator recovers
// with a full recompute and logs the discrepancy for investigation.
var ErrAggregationInconsistency = errors.New("aggregation inconsistency")

// PointsDelta is the expected total-points change for one competitor,
// used to validate incremental updates.
type PointsDelta struct {
	CompetitorID string
	Delta        int
}

// Aggregator computes league standings from point breakdowns.
type Aggregator struct {
	races      storage.RaceStore
	breakdowns storage.BreakdownStore
	teams      storage.TeamStore
	standings  storage.StandingStore
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a standings aggregator. Metrics may be nil.
func New(
	races storage.RaceStore,
	breakdowns storage.BreakdownStore,
	teams storage.TeamStore,
	standings storage.StandingStore,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		races:      races,
		breakdowns: breakdowns,
		teams:      teams,
		standings:  standings,
		logger:     logger,
		metrics:    metrics,
	}
}

// teamStats accumulates one team's summary while scanning breakdowns.
type teamStats struct {
	races         map[string]struct{}
	wins          int
	podiums       int
	worldRecords  int
	courseRecords int
	totalPoints   int
}

// FullRecompute rebuilds every standing row for a game from breakdown
// data and refreshes the cache.
func (a *Aggregator) FullRecompute(ctx context.Context, gameID string) ([]*domain.LeagueStanding, error) {
	if a.metrics != nil {
		a.metrics.AggregationRuns.WithLabelValues("full").Inc()
	}

	teams, err := a.teams.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load teams for game %s: %w", gameID, err)
	}

	stats, err := a.scanGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.LeagueStanding, 0, len(teams))
	now := time.Now().UnixMilli()
	for _, team := range teams {
		rows = append(rows, buildRow(gameID, team, stats[team.TeamID], now))
	}

	rankRows(rows)

	if err := a.standings.PutAll(ctx, gameID, rows); err != nil {
		return nil, fmt.Errorf("cache standings for game %s: %w", gameID, err)
	}

	return rows, nil
}

// IncrementalUpdate re-sums only the teams affected by the given
// competitor deltas, validates each against the previous cached total,
// and falls back to a full recompute when anything fails to reconcile.
func (a *Aggregator) IncrementalUpdate(ctx context.Context, gameID string, deltas []PointsDelta) ([]*domain.LeagueStanding, error) {
	if len(deltas) == 0 {
		return a.standings.GetByGame(ctx, gameID)
	}
	if a.metrics != nil {
		a.metrics.AggregationRuns.WithLabelValues("incremental").Inc()
	}

	cached, err := a.standings.GetByGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Nothing cached yet: the incremental path has no base to
			// reconcile against.
			return a.FullRecompute(ctx, gameID)
		}
		return nil, fmt.Errorf("load cached standings for game %s: %w", gameID, err)
	}

	// Group expected deltas by team.
	expected := make(map[string]int)
	for _, d := range deltas {
		team, err := a.teams.GetTeamForCompetitor(ctx, gameID, d.CompetitorID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // unrostered competitors do not affect standings
			}
			return nil, fmt.Errorf("resolve team for competitor %s: %w", d.CompetitorID, err)
		}
		expected[team.TeamID] += d.Delta
	}
	if len(expected) == 0 {
		return cached, nil
	}

	stats, err := a.scanGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	byTeam := make(map[string]*domain.LeagueStanding, len(cached))
	for _, row := range cached {
		byTeam[row.TeamID] = row
	}

	now := time.Now().UnixMilli()
	for teamID, delta := range expected {
		team, err := a.teams.GetByID(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("load team %s: %w", teamID, err)
		}

		fresh := buildRow(gameID, team, stats[teamID], now)
		prev := byTeam[teamID]
		if prev != nil && prev.TotalPoints+delta != fresh.TotalPoints {
			a.logger.Warn("incremental standings update failed to reconcile, falling back to full recompute",
				"game_id", gameID,
				"team_id", teamID,
				"cached_total", prev.TotalPoints,
				"expected_delta", delta,
				"recomputed_total", fresh.TotalPoints,
				"err", ErrAggregationInconsistency)
			if a.metrics != nil {
				a.metrics.AggregationInconsistencies.Inc()
			}
			return a.FullRecompute(ctx, gameID)
		}
		byTeam[teamID] = fresh
	}

	rows := make([]*domain.LeagueStanding, 0, len(byTeam))
	for _, row := range byTeam {
		rows = append(rows, row)
	}
	rankRows(rows)

	if err := a.standings.PutAll(ctx, gameID, rows); err != nil {
		return nil, fmt.Errorf("cache standings for game %s: %w", gameID, err)
	}

	return rows, nil
}

// scanGame accumulates per-team stats from the current-version
// breakdowns of every race in the game. Superseded rows never count.
func (a *Aggregator) scanGame(ctx context.Context, gameID string) (map[string]*teamStats, error) {
	races, err := a.races.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load races for game %s: %w", gameID, err)
	}

	stats := make(map[string]*teamStats)
	for _, race := range races {
		breakdowns, err := a.breakdowns.GetByRaceVersion(ctx, race.RaceID, race.RulesVersion)
		if err != nil {
			return nil, fmt.Errorf("load breakdowns for race %s: %w", race.RaceID, err)
		}

		for _, b := range breakdowns {
			if b.Superseded {
				continue
			}
			team, err := a.teams.GetTeamForCompetitor(ctx, gameID, b.CompetitorID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue // competitor not rostered in this game
				}
				return nil, fmt.Errorf("resolve team for competitor %s: %w", b.CompetitorID, err)
			}

			s := stats[team.TeamID]
			if s == nil {
				s = &teamStats{races: make(map[string]struct{})}
				stats[team.TeamID] = s
			}

			s.races[race.RaceID] = struct{}{}
			s.totalPoints += b.TotalPoints
			if b.Placement == 1 {
				s.wins++
			}
			if b.Placement >= 1 && b.Placement <= 3 {
				s.podiums++
			}
			if b.RecordStatus == domain.RecordStatusConfirmed {
				switch b.RecordType {
				case domain.RecordWorld:
					s.worldRecords++
				case domain.RecordCourse:
					s.courseRecords++
				}
			}
		}
	}

	return stats, nil
}

// buildRow materializes one standing row from accumulated stats. A team
// with no scored breakdowns gets a zero row, never a division by zero.
func buildRow(gameID string, team *domain.Team, s *teamStats, now int64) *domain.LeagueStanding {
	row := &domain.LeagueStanding{
		GameID:        gameID,
		TeamID:        team.TeamID,
		TeamName:      team.Name,
		LastUpdatedAt: now,
	}
	if s == nil {
		return row
	}

	row.RacesCount = len(s.races)
	row.Wins = s.wins
	row.Podiums = s.podiums
	row.WorldRecords = s.worldRecords
	row.CourseRecords = s.courseRecords
	row.TotalPoints = s.totalPoints
	if row.RacesCount > 0 {
		row.AveragePoints = float64(row.TotalPoints) / float64(row.RacesCount)
	}
	return row
}

// rankRows orders rows by total points descending and assigns standard
// competition ranks: tied totals share a rank, the next distinct total
// skips the tied positions.
func rankRows(rows []*domain.LeagueStanding) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].TeamID < rows[j].TeamID
	})

	for i, row := range rows {
		if i > 0 && row.TotalPoints == rows[i-1].TotalPoints {
			row.Rank = rows[i-1].Rank
			continue
		}
		row.Rank = i + 1
	}
}
