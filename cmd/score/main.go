// Package main scores a single race from the command line and prints the
// resulting point breakdowns as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"marathon-league/internal/league"
	"marathon-league/internal/storage/memory"
	"marathon-league/internal/storage/migrations"
	pgstore "marathon-league/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("MARATHON_POSTGRES_DSN"), "PostgreSQL connection string")
	raceID := flag.String("race", "", "Race ID to score")
	version := flag.Int("rules-version", 0, "Rules version to score under (0 = race's current version)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *postgresDSN == "" {
		logger.Error("-postgres-dsn is required")
		os.Exit(1)
	}
	if *raceID == "" {
		logger.Error("-race is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Error("connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Error("run migrations", "err", err)
		os.Exit(1)
	}

	races := pgstore.NewRaceStore(pool)
	svc := league.New(league.Options{
		Rules:      pgstore.NewRulesStore(pool),
		Races:      races,
		Teams:      pgstore.NewTeamStore(pool),
		Finishes:   pgstore.NewFinishStore(pool),
		Breakdowns: pgstore.NewBreakdownStore(pool),
		Baselines:  pgstore.NewBaselineStore(pool),
		Standings:  pgstore.NewStandingStore(pool),
		Audits:     memory.NewAuditStore(),
		Logger:     logger,
	})

	rulesVersion := *version
	if rulesVersion == 0 {
		race, err := races.GetByID(ctx, *raceID)
		if err != nil {
			logger.Error("load race", "race_id", *raceID, "err", err)
			os.Exit(1)
		}
		rulesVersion = race.RulesVersion
	}

	breakdowns, err := svc.CalculateScores(ctx, *raceID, rulesVersion)
	if err != nil {
		logger.Error("calculate scores", "race_id", *raceID, "rules_version", rulesVersion, "err", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(breakdowns); err != nil {
		logger.Error("encode breakdowns", "err", err)
		os.Exit(1)
	}
}
