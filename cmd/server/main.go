// Package main runs the scoring engine as an HTTP service:
// - REST API for rules, races, teams, finishes, scoring and standings
// - WebSocket push of standings updates per game
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"marathon-league/internal/config"
	"marathon-league/internal/domain"
	"marathon-league/internal/league"
	"marathon-league/internal/notify"
	"marathon-league/internal/observability"
	"marathon-league/internal/records"
	"marathon-league/internal/storage"
	chstore "marathon-league/internal/storage/clickhouse"
	"marathon-league/internal/storage/memory"
	"marathon-league/internal/storage/migrations"
	pgstore "marathon-league/internal/storage/postgres"
)

// Server bundles the service, stores needed by read endpoints and the
// notification hub.
type Server struct {
	svc    *league.Service
	hub    *notify.Hub
	logger *slog.Logger

	rules      storage.RulesStore
	races      storage.RaceStore
	teams      storage.TeamStore
	baselines  storage.BaselineStore
	breakdowns storage.BreakdownStore
	audits     storage.AuditStore

	started time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	rules      storage.RulesStore
	races      storage.RaceStore
	teams      storage.TeamStore
	finishes   storage.FinishStore
	breakdowns storage.BreakdownStore
	baselines  storage.BaselineStore
	standings  storage.StandingStore
	audits     storage.AuditStore
}

func main() {
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Error("create stores", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	if cfg.RulesFile != "" {
		if err := seedRules(ctx, cfg.RulesFile, stores.rules, logger); err != nil {
			logger.Error("seed rules", "file", cfg.RulesFile, "err", err)
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	hub := notify.NewHub(logger)
	defer hub.Close()

	svc := league.New(league.Options{
		Rules:      stores.rules,
		Races:      stores.races,
		Teams:      stores.teams,
		Finishes:   stores.finishes,
		Breakdowns: stores.breakdowns,
		Baselines:  stores.baselines,
		Standings:  stores.standings,
		Audits:     stores.audits,
		Logger:     logger,
		Metrics:    metrics,
		Notifier:   hub,
	})

	server := &Server{
		svc:        svc,
		hub:        hub,
		logger:     logger,
		rules:      stores.rules,
		races:      stores.races,
		teams:      stores.teams,
		baselines:  stores.baselines,
		breakdowns: stores.breakdowns,
		audits:     stores.audits,
		started:    time.Now(),
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// createStores creates all required stores.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		return &allStores{
			rules:      memory.NewRulesStore(),
			races:      memory.NewRaceStore(),
			teams:      memory.NewTeamStore(),
			finishes:   memory.NewFinishStore(),
			breakdowns: memory.NewBreakdownStore(),
			baselines:  memory.NewBaselineStore(),
			standings:  memory.NewStandingStore(),
			audits:     memory.NewAuditStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		rules:      pgstore.NewRulesStore(pool),
		races:      pgstore.NewRaceStore(pool),
		teams:      pgstore.NewTeamStore(pool),
		finishes:   pgstore.NewFinishStore(pool),
		breakdowns: pgstore.NewBreakdownStore(pool),
		baselines:  pgstore.NewBaselineStore(pool),
		standings:  pgstore.NewStandingStore(pool),
	}

	cleanup := func() { pool.Close() }

	// The audit trail is optional: without a ClickHouse DSN events are
	// kept in memory and lost on restart.
	if cfg.ClickhouseDSN == "" {
		stores.audits = memory.NewAuditStore()
		return stores, cleanup, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	stores.audits = chstore.NewAuditStore(chConn)

	return stores, func() {
		chConn.Close()
		pool.Close()
	}, nil
}

// seedRules inserts the configured rules file as a new version. An
// already stored version is left untouched.
func seedRules(ctx context.Context, path string, store storage.RulesStore, logger *slog.Logger) error {
	rules, err := config.LoadRules(path)
	if err != nil {
		return err
	}
	if err := store.Insert(ctx, rules); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Info("rules version already stored", "version", rules.Version)
			return nil
		}
		return err
	}
	logger.Info("rules version seeded", "version", rules.Version, "file", path)
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws/standings", s.hub.ServeWS)

	mux.HandleFunc("POST /api/rules", s.handleCreateRules)
	mux.HandleFunc("GET /api/rules/latest", s.handleLatestRules)
	mux.HandleFunc("POST /api/races", s.handleCreateRace)
	mux.HandleFunc("POST /api/teams", s.handleCreateTeam)
	mux.HandleFunc("POST /api/teams/{teamID}/roster", s.handleAddRosterEntry)
	mux.HandleFunc("POST /api/baselines", s.handleSetBaseline)

	mux.HandleFunc("POST /api/finishes", s.handleRecordFinish)
	mux.HandleFunc("PUT /api/finishes", s.handleCorrectFinish)
	mux.HandleFunc("POST /api/races/{raceID}/finalize", s.handleFinalizeRace)
	mux.HandleFunc("POST /api/races/{raceID}/scores", s.handleCalculateScores)
	mux.HandleFunc("GET /api/races/{raceID}/breakdowns", s.handleGetBreakdowns)

	mux.HandleFunc("POST /api/breakdowns/{breakdownID}/confirm", s.handleConfirmRecord)
	mux.HandleFunc("POST /api/breakdowns/{breakdownID}/reject", s.handleRejectRecord)
	mux.HandleFunc("GET /api/breakdowns/{breakdownID}/audit", s.handleGetAudit)

	mux.HandleFunc("GET /api/games/{gameID}/standings", s.handleGetStandings)

	return mux
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).String(),
	})
}

type rulesRequest struct {
	Version                  int                  `json:"version"`
	PlacementPoints          []int                `json:"placementPoints"`
	MaxScoredPlace           int                  `json:"maxScoredPlace"`
	TimeGapWindows           []timeGapWindow      `json:"timeGapWindows"`
	NegativeSplit            performanceBonusBody `json:"negativeSplit"`
	EvenPace                 performanceBonusBody `json:"evenPace"`
	FastFinishKick           performanceBonusBody `json:"fastFinishKick"`
	CourseRecord             recordBonusBody      `json:"courseRecord"`
	WorldRecord              recordBonusBody      `json:"worldRecord"`
	RecordsMutuallyExclusive bool                 `json:"recordsMutuallyExclusive"`
	ConfirmationPolicy       string               `json:"confirmationPolicy"`
	ProvisionalPolicy        string               `json:"provisionalPolicy"`
}

type timeGapWindow struct {
	ThresholdSeconds int64 `json:"thresholdSeconds"`
	BonusPoints      int   `json:"bonusPoints"`
}

type performanceBonusBody struct {
	Enabled   bool    `json:"enabled"`
	Points    int     `json:"points"`
	Tolerance float64 `json:"tolerance"`
}

type recordBonusBody struct {
	Enabled bool `json:"enabled"`
	Points  int  `json:"points"`
}

func (req *rulesRequest) toDomain() *domain.ScoringRules {
	rules := &domain.ScoringRules{
		Version:                  req.Version,
		PlacementPoints:          req.PlacementPoints,
		MaxScoredPlace:           req.MaxScoredPlace,
		NegativeSplit:            domain.PerformanceBonus(req.NegativeSplit),
		EvenPace:                 domain.PerformanceBonus(req.EvenPace),
		FastFinishKick:           domain.PerformanceBonus(req.FastFinishKick),
		CourseRecord:             domain.RecordBonus(req.CourseRecord),
		WorldRecord:              domain.RecordBonus(req.WorldRecord),
		RecordsMutuallyExclusive: req.RecordsMutuallyExclusive,
		RecordConfirmationPolicy: domain.ConfirmationPolicy(req.ConfirmationPolicy),
		ProvisionalPointsPolicy:  domain.ProvisionalPolicy(req.ProvisionalPolicy),
	}
	for _, wnd := range req.TimeGapWindows {
		rules.TimeGapWindows = append(rules.TimeGapWindows, domain.TimeGapWindow(wnd))
	}
	return rules
}

func (s *Server) handleCreateRules(w http.ResponseWriter, r *http.Request) {
	var req rulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	rules := req.toDomain()
	if err := s.rules.Insert(r.Context(), rules); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"version": rules.Version})
}

func (s *Server) handleLatestRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.rules.Latest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"version": rules.Version})
}

type raceRequest struct {
	RaceID       string  `json:"raceId"`
	GameID       string  `json:"gameId"`
	Name         string  `json:"name"`
	DistanceKm   float64 `json:"distanceKm"`
	StartTime    int64   `json:"startTime"`
	RulesVersion int     `json:"rulesVersion"`
}

func (s *Server) handleCreateRace(w http.ResponseWriter, r *http.Request) {
	var req raceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	race := &domain.Race{
		RaceID:       req.RaceID,
		GameID:       req.GameID,
		Name:         req.Name,
		DistanceKm:   req.DistanceKm,
		StartTime:    req.StartTime,
		RulesVersion: req.RulesVersion,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.races.Insert(r.Context(), race); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"raceId": race.RaceID})
}

type teamRequest struct {
	TeamID string `json:"teamId"`
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	team := &domain.Team{
		TeamID:    req.TeamID,
		GameID:    req.GameID,
		Name:      req.Name,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.teams.Insert(r.Context(), team); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"teamId": team.TeamID})
}

type rosterRequest struct {
	GameID       string `json:"gameId"`
	CompetitorID string `json:"competitorId"`
}

func (s *Server) handleAddRosterEntry(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	entry := &domain.RosterEntry{
		TeamID:       r.PathValue("teamID"),
		GameID:       req.GameID,
		CompetitorID: req.CompetitorID,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.teams.AddRosterEntry(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type baselineRequest struct {
	RaceID string `json:"raceId"`
	Gender string `json:"gender"`
	Type   string `json:"type"`
	TimeMs int64  `json:"timeMs"`
}

func (s *Server) handleSetBaseline(w http.ResponseWriter, r *http.Request) {
	var req baselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	baseline := &domain.RecordBaseline{
		RaceID:    req.RaceID,
		Gender:    domain.Gender(req.Gender),
		Type:      domain.RecordType(req.Type),
		TimeMs:    req.TimeMs,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.baselines.Put(r.Context(), baseline); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type finishRequest struct {
	RaceID       string `json:"raceId"`
	CompetitorID string `json:"competitorId"`
	Gender       string `json:"gender"`
	Status       string `json:"status"`
	FinishTimeMs int64  `json:"finishTimeMs"`
	FirstHalfMs  *int64 `json:"firstHalfMs,omitempty"`
	SecondHalfMs *int64 `json:"secondHalfMs,omitempty"`
	Last5kMs     *int64 `json:"last5kMs,omitempty"`
}

func (req *finishRequest) toDomain() *domain.FinishRecord {
	return &domain.FinishRecord{
		RaceID:       req.RaceID,
		CompetitorID: req.CompetitorID,
		Gender:       domain.Gender(req.Gender),
		Status:       domain.FinishStatus(req.Status),
		FinishTimeMs: req.FinishTimeMs,
		FirstHalfMs:  req.FirstHalfMs,
		SecondHalfMs: req.SecondHalfMs,
		Last5kMs:     req.Last5kMs,
	}
}

func (s *Server) handleRecordFinish(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	if err := s.svc.RecordFinish(r.Context(), req.toDomain()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleCorrectFinish(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	breakdowns, err := s.svc.CorrectFinish(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdowns)
}

func (s *Server) handleFinalizeRace(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.FinalizeRace(r.Context(), r.PathValue("raceID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalculateScores(w http.ResponseWriter, r *http.Request) {
	raceID := r.PathValue("raceID")

	version := 0
	if v := r.URL.Query().Get("rulesVersion"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: rulesVersion must be an integer", storage.ErrInvalidInput))
			return
		}
		version = parsed
	} else {
		race, err := s.races.GetByID(r.Context(), raceID)
		if err != nil {
			writeError(w, err)
			return
		}
		version = race.RulesVersion
	}

	breakdowns, err := s.svc.CalculateScores(r.Context(), raceID, version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdowns)
}

func (s *Server) handleGetBreakdowns(w http.ResponseWriter, r *http.Request) {
	raceID := r.PathValue("raceID")
	race, err := s.races.GetByID(r.Context(), raceID)
	if err != nil {
		writeError(w, err)
		return
	}
	breakdowns, err := s.breakdowns.GetByRaceVersion(r.Context(), raceID, race.RulesVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdowns)
}

func (s *Server) handleConfirmRecord(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.ConfirmRecord(r.Context(), r.PathValue("breakdownID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRejectRecord(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.RejectRecord(r.Context(), r.PathValue("breakdownID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// auditEventResponse is the JSON shape of one audit trail entry.
type auditEventResponse struct {
	EventID      string `json:"eventId"`
	BreakdownID  string `json:"breakdownId"`
	RaceID       string `json:"raceId"`
	CompetitorID string `json:"competitorId"`
	Action       string `json:"action"`
	RecordType   string `json:"recordType"`
	PointsDelta  int    `json:"pointsDelta"`
	TotalAfter   int    `json:"totalAfter"`
	RulesVersion int    `json:"rulesVersion"`
	OccurredAt   int64  `json:"occurredAt"`
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	events, err := s.audits.GetByBreakdown(r.Context(), r.PathValue("breakdownID"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, auditEventResponse{
			EventID:      e.EventID,
			BreakdownID:  e.BreakdownID,
			RaceID:       e.RaceID,
			CompetitorID: e.CompetitorID,
			Action:       string(e.Action),
			RecordType:   string(e.RecordType),
			PointsDelta:  e.PointsDelta,
			TotalAfter:   e.TotalAfter,
			RulesVersion: e.RulesVersion,
			OccurredAt:   e.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	// ?cached=false forces a full recompute regardless of cache validity.
	cached := true
	if v := r.URL.Query().Get("cached"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: cached must be a boolean", storage.ErrInvalidInput))
			return
		}
		cached = parsed
	}

	rows, err := s.svc.GetStandings(r.Context(), r.PathValue("gameID"), cached)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, league.ErrUnknownRulesVersion):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrFinalized),
		errors.Is(err, records.ErrInvalidTransition):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
