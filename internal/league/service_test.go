package league

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"marathon-league/internal/domain"
	"marathon-league/internal/records"
	"marathon-league/internal/storage"
	"marathon-league/internal/storage/memory"
)

type fixture struct {
	svc       *Service
	rules     *memory.RulesStore
	races     *memory.RaceStore
	teams     *memory.TeamStore
	finishes  *memory.FinishStore
	bds       *memory.BreakdownStore
	baselines *memory.BaselineStore
	standings *memory.StandingStore
	audits    *memory.AuditStore
}

// newFixture seeds one game with a race, two one-athlete teams and the
// default rules at version 1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		rules:     memory.NewRulesStore(),
		races:     memory.NewRaceStore(),
		teams:     memory.NewTeamStore(),
		finishes:  memory.NewFinishStore(),
		bds:       memory.NewBreakdownStore(),
		baselines: memory.NewBaselineStore(),
		standings: memory.NewStandingStore(),
		audits:    memory.NewAuditStore(),
	}
	f.svc = New(Options{
		Rules:      f.rules,
		Races:      f.races,
		Teams:      f.teams,
		Finishes:   f.finishes,
		Breakdowns: f.bds,
		Baselines:  f.baselines,
		Standings:  f.standings,
		Audits:     f.audits,
	})

	if err := f.rules.Insert(ctx, domain.DefaultRules()); err != nil {
		t.Fatalf("seed rules: %v", err)
	}
	if err := f.races.Insert(ctx, &domain.Race{
		RaceID:       "race-1",
		GameID:       "game-1",
		Name:         "Berlin Marathon",
		DistanceKm:   42.195,
		RulesVersion: 1,
	}); err != nil {
		t.Fatalf("seed race: %v", err)
	}

	for _, tm := range []struct{ teamID, name, competitorID string }{
		{"team-a", "Alpha", "athlete-1"},
		{"team-b", "Bravo", "athlete-2"},
	} {
		if err := f.teams.Insert(ctx, &domain.Team{TeamID: tm.teamID, GameID: "game-1", Name: tm.name}); err != nil {
			t.Fatalf("seed team: %v", err)
		}
		if err := f.teams.AddRosterEntry(ctx, &domain.RosterEntry{
			TeamID:       tm.teamID,
			GameID:       "game-1",
			CompetitorID: tm.competitorID,
		}); err != nil {
			t.Fatalf("seed roster: %v", err)
		}
	}

	return f
}

func (f *fixture) recordFinish(t *testing.T, competitorID string, timeMs int64) {
	t.Helper()
	err := f.svc.RecordFinish(context.Background(), &domain.FinishRecord{
		RaceID:       "race-1",
		CompetitorID: competitorID,
		Gender:       domain.GenderMen,
		Status:       domain.FinishFinished,
		FinishTimeMs: timeMs,
	})
	if err != nil {
		t.Fatalf("RecordFinish(%s): %v", competitorID, err)
	}
}

func TestCalculateScores_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000) // 2:00:00
	f.recordFinish(t, "athlete-2", 7_245_000) // 45s back

	rows, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("CalculateScores failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 breakdowns, got %d", len(rows))
	}

	winner := rows[0]
	if winner.CompetitorID != "athlete-1" || winner.Placement != 1 {
		t.Fatalf("unexpected winner row: %+v", winner)
	}
	// Placement 10 + gap window (0s ≤ 60s) 5.
	if winner.PlacementPoints != 10 || winner.TimeGapPoints != 5 || winner.TotalPoints != 15 {
		t.Errorf("unexpected winner points: %+v", winner)
	}

	second := rows[1]
	if second.TimeGapSeconds != 45 || second.TotalPoints != 14 {
		t.Errorf("unexpected runner-up points: %+v", second)
	}

	// Rows are persisted and auditable.
	stored, err := f.bds.GetByID(ctx, winner.BreakdownID)
	if err != nil {
		t.Fatalf("load stored breakdown: %v", err)
	}
	if !stored.Consistent() {
		t.Errorf("stored total %d != component sum %d", stored.TotalPoints, stored.ComponentSum())
	}
	events, err := f.audits.GetByBreakdown(ctx, winner.BreakdownID)
	if err != nil || len(events) != 1 || events[0].Action != domain.AuditScored {
		t.Errorf("expected one SCORED audit event, got %v (%v)", events, err)
	}

	// Standings follow immediately.
	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if st[0].TeamID != "team-a" || st[0].TotalPoints != 15 || st[0].Rank != 1 {
		t.Errorf("unexpected leader standing: %+v", st[0])
	}
}

func TestCalculateScores_RepeatRunsAreByteIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)
	f.recordFinish(t, "athlete-2", 7_245_000)

	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first, err := f.bds.GetByRaceVersion(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("load first rows: %v", err)
	}
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first rows: %v", err)
	}

	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second, err := f.bds.GetByRaceVersion(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("load second rows: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second rows: %v", err)
	}

	if !bytes.Equal(firstJSON, secondJSON) {
		t.Errorf("rescoring unchanged input must be byte-identical:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestCalculateScores_UnknownRulesVersionWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)

	_, err := f.svc.CalculateScores(ctx, "race-1", 99)
	if !errors.Is(err, ErrUnknownRulesVersion) {
		t.Fatalf("expected ErrUnknownRulesVersion, got %v", err)
	}

	rows, err := f.bds.GetByRace(ctx, "race-1")
	if err != nil {
		t.Fatalf("load breakdowns: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("failed run must not persist breakdowns, found %d", len(rows))
	}
}

func TestConfirmRecord_AwardsWithheldPointsAndUpdatesStandings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.baselines.Put(ctx, &domain.RecordBaseline{
		RaceID: "race-1",
		Gender: domain.GenderMen,
		Type:   domain.RecordCourse,
		TimeMs: 7_300_000,
	}); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}
	f.recordFinish(t, "athlete-1", 7_200_000)

	rows, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("CalculateScores failed: %v", err)
	}
	winner := rows[0]
	if winner.RecordStatus != domain.RecordStatusProvisional || winner.PendingRecordPoints != 5 {
		t.Fatalf("expected withheld provisional course record, got %+v", winner)
	}
	if winner.TotalPoints != 15 {
		t.Fatalf("withheld points must not count yet, got %d", winner.TotalPoints)
	}

	confirmed, err := f.svc.ConfirmRecord(ctx, winner.BreakdownID)
	if err != nil {
		t.Fatalf("ConfirmRecord failed: %v", err)
	}
	if confirmed.TotalPoints != 20 || confirmed.RecordBonusPoints != 5 {
		t.Errorf("expected awarded record bonus, got %+v", confirmed)
	}

	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if st[0].TotalPoints != 20 || st[0].CourseRecords != 1 {
		t.Errorf("standings must reflect the confirmed record, got %+v", st[0])
	}

	// Re-confirming is a no-op, confirming after a reject would fail.
	if _, err := f.svc.ConfirmRecord(ctx, winner.BreakdownID); err != nil {
		t.Errorf("re-confirm must be a no-op, got %v", err)
	}
	if _, err := f.svc.RejectRecord(ctx, winner.BreakdownID); !errors.Is(err, records.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition rejecting a confirmed record, got %v", err)
	}
}

func TestCalculateScores_NewVersionSupersedesOldRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v2 := domain.DefaultRules()
	v2.Version = 2
	v2.PlacementPoints = []int{20, 18, 16}
	v2.MaxScoredPlace = 3
	if err := f.rules.Insert(ctx, v2); err != nil {
		t.Fatalf("seed rules v2: %v", err)
	}

	f.recordFinish(t, "athlete-1", 7_200_000)
	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("score under v1 failed: %v", err)
	}

	rows, err := f.svc.CalculateScores(ctx, "race-1", 2)
	if err != nil {
		t.Fatalf("score under v2 failed: %v", err)
	}
	if rows[0].RulesVersion != 2 || rows[0].PlacementPoints != 20 {
		t.Errorf("expected v2 scoring, got %+v", rows[0])
	}

	race, err := f.races.GetByID(ctx, "race-1")
	if err != nil {
		t.Fatalf("load race: %v", err)
	}
	if race.RulesVersion != 2 {
		t.Errorf("race must move to version 2, got %d", race.RulesVersion)
	}

	old, err := f.bds.GetByRaceVersion(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("load v1 rows: %v", err)
	}
	for _, b := range old {
		if !b.Superseded {
			t.Errorf("v1 row must be superseded: %+v", b)
		}
		events, err := f.audits.GetByBreakdown(ctx, b.BreakdownID)
		if err != nil {
			t.Fatalf("load audit events: %v", err)
		}
		var superseded bool
		for _, e := range events {
			if e.Action == domain.AuditSuperseded {
				superseded = true
			}
		}
		if !superseded {
			t.Errorf("missing SUPERSEDED audit event for %s", b.BreakdownID)
		}
	}

	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if st[0].TotalPoints != 25 { // 20 placement + 5 gap window
		t.Errorf("standings must count v2 rows only, got %+v", st[0])
	}
}

func TestCorrectFinish_RescoresRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)
	f.recordFinish(t, "athlete-2", 7_245_000)
	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("initial scoring failed: %v", err)
	}

	// athlete-2 actually won after the timing correction.
	rows, err := f.svc.CorrectFinish(ctx, &domain.FinishRecord{
		RaceID:       "race-1",
		CompetitorID: "athlete-2",
		Gender:       domain.GenderMen,
		Status:       domain.FinishFinished,
		FinishTimeMs: 7_150_000,
	})
	if err != nil {
		t.Fatalf("CorrectFinish failed: %v", err)
	}
	if rows[0].CompetitorID != "athlete-2" || rows[0].Placement != 1 {
		t.Errorf("expected athlete-2 to win after correction, got %+v", rows[0])
	}

	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if st[0].TeamID != "team-b" {
		t.Errorf("standings must follow the correction, got leader %+v", st[0])
	}
}

func TestCorrectFinish_AfterFinalizeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)
	if err := f.svc.FinalizeRace(ctx, "race-1"); err != nil {
		t.Fatalf("FinalizeRace failed: %v", err)
	}

	_, err := f.svc.CorrectFinish(ctx, &domain.FinishRecord{
		RaceID:       "race-1",
		CompetitorID: "athlete-1",
		Gender:       domain.GenderMen,
		Status:       domain.FinishFinished,
		FinishTimeMs: 7_100_000,
	})
	if !errors.Is(err, storage.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
}

func TestRecordFinish_DuplicateCompetitorFails(t *testing.T) {
	f := newFixture(t)

	f.recordFinish(t, "athlete-1", 7_200_000)
	err := f.svc.RecordFinish(context.Background(), &domain.FinishRecord{
		RaceID:       "race-1",
		CompetitorID: "athlete-1",
		Gender:       domain.GenderMen,
		Status:       domain.FinishFinished,
		FinishTimeMs: 7_300_000,
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestGetStandings_RecomputesWhenCacheInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)
	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	if err := f.standings.Invalidate(ctx, "game-1"); err != nil {
		t.Fatalf("invalidate cache: %v", err)
	}

	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if len(st) != 2 || st[0].TotalPoints != 15 {
		t.Errorf("expected recomputed standings, got %+v", st)
	}

	valid, err := f.standings.IsValid(ctx, "game-1")
	if err != nil || !valid {
		t.Errorf("recompute must revalidate the cache, valid=%t err=%v", valid, err)
	}
}

func TestGetStandings_ForcedRecomputeBypassesValidCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.recordFinish(t, "athlete-1", 7_200_000)
	if _, err := f.svc.CalculateScores(ctx, "race-1", 1); err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	// Overwrite the cache with wrong rows; PutAll marks it valid again.
	if err := f.standings.PutAll(ctx, "game-1", []*domain.LeagueStanding{
		{GameID: "game-1", TeamID: "team-a", TeamName: "Alpha", Rank: 1, TotalPoints: 999},
	}); err != nil {
		t.Fatalf("overwrite cache: %v", err)
	}

	cachedRows, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("cached GetStandings failed: %v", err)
	}
	if cachedRows[0].TotalPoints != 999 {
		t.Fatalf("cached read must serve the stored rows, got %+v", cachedRows[0])
	}

	fresh, err := f.svc.GetStandings(ctx, "game-1", false)
	if err != nil {
		t.Fatalf("forced GetStandings failed: %v", err)
	}
	if len(fresh) != 2 || fresh[0].TotalPoints != 15 {
		t.Errorf("forced read must recompute from breakdowns, got %+v", fresh)
	}

	// The recompute refreshes the cache, so a later cached read agrees.
	after, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings after recompute failed: %v", err)
	}
	if after[0].TotalPoints != 15 {
		t.Errorf("cache must hold the recomputed rows, got %+v", after[0])
	}
}

func TestCalculateScores_RescoreKeepsConfirmedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.baselines.Put(ctx, &domain.RecordBaseline{
		RaceID: "race-1",
		Gender: domain.GenderMen,
		Type:   domain.RecordCourse,
		TimeMs: 7_300_000,
	}); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}
	f.recordFinish(t, "athlete-1", 7_200_000)

	rows, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("CalculateScores failed: %v", err)
	}
	if _, err := f.svc.ConfirmRecord(ctx, rows[0].BreakdownID); err != nil {
		t.Fatalf("ConfirmRecord failed: %v", err)
	}

	// A rescore under the same rules version must not reopen the
	// confirmed record or retract its points.
	rescored, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("rescore failed: %v", err)
	}
	winner := rescored[0]
	if winner.RecordStatus != domain.RecordStatusConfirmed {
		t.Errorf("confirmed status must survive a rescore, got %s", winner.RecordStatus)
	}
	if winner.RecordBonusPoints != 5 || winner.PendingRecordPoints != 0 {
		t.Errorf("awarded bonus must survive a rescore, got %+v", winner)
	}
	if winner.TotalPoints != 20 {
		t.Errorf("total must stay 20 across the rescore, got %d", winner.TotalPoints)
	}

	stored, err := f.bds.GetByID(ctx, winner.BreakdownID)
	if err != nil {
		t.Fatalf("load stored breakdown: %v", err)
	}
	if stored.RecordStatus != domain.RecordStatusConfirmed || stored.TotalPoints != 20 {
		t.Errorf("stored row must keep the confirmed state, got %+v", stored)
	}

	st, err := f.svc.GetStandings(ctx, "game-1", true)
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if st[0].TotalPoints != 20 || st[0].CourseRecords != 1 {
		t.Errorf("standings must keep the confirmed record, got %+v", st[0])
	}
}

func TestCalculateScores_RescoreKeepsRejectedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.baselines.Put(ctx, &domain.RecordBaseline{
		RaceID: "race-1",
		Gender: domain.GenderMen,
		Type:   domain.RecordCourse,
		TimeMs: 7_300_000,
	}); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}
	f.recordFinish(t, "athlete-1", 7_200_000)

	rows, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("CalculateScores failed: %v", err)
	}
	if _, err := f.svc.RejectRecord(ctx, rows[0].BreakdownID); err != nil {
		t.Fatalf("RejectRecord failed: %v", err)
	}

	rescored, err := f.svc.CalculateScores(ctx, "race-1", 1)
	if err != nil {
		t.Fatalf("rescore failed: %v", err)
	}
	winner := rescored[0]
	if winner.RecordStatus != domain.RecordStatusRejected {
		t.Errorf("rejected status must survive a rescore, got %s", winner.RecordStatus)
	}
	if winner.RecordBonusPoints != 0 || winner.PendingRecordPoints != 0 {
		t.Errorf("rejected record must stay pointless, got %+v", winner)
	}
	if winner.TotalPoints != 15 {
		t.Errorf("total must stay 15 across the rescore, got %d", winner.TotalPoints)
	}
}
