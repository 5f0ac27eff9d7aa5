// Package main prints the league standings for a game as a table or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"marathon-league/internal/league"
	"marathon-league/internal/storage/memory"
	"marathon-league/internal/storage/migrations"
	pgstore "marathon-league/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("MARATHON_POSTGRES_DSN"), "PostgreSQL connection string")
	gameID := flag.String("game", "", "Game ID to print standings for")
	asJSON := flag.Bool("json", false, "Print standings as JSON instead of a table")
	cached := flag.Bool("cached", true, "Serve the cached standings when valid; false forces a full recompute")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *postgresDSN == "" {
		logger.Error("-postgres-dsn is required")
		os.Exit(1)
	}
	if *gameID == "" {
		logger.Error("-game is required")
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

	svc := league.New(league.Options{
		Rules:      pgstore.NewRulesStore(pool),
		Races:      pgstore.NewRaceStore(pool),
		Teams:      pgstore.NewTeamStore(pool),
		Finishes:   pgstore.NewFinishStore(pool),
		Breakdowns: pgstore.NewBreakdownStore(pool),
		Baselines:  pgstore.NewBaselineStore(pool),
		Standings:  pgstore.NewStandingStore(pool),
		Audits:     memory.NewAuditStore(),
		Logger:     logger,
	})

	rows, err := svc.GetStandings(ctx, *gameID, *cached)
	if err != nil {
		logger.Error("get standings", "game_id", *gameID, "err", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			logger.Error("encode standings", "err", err)
			os.Exit(1)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTEAM\tPOINTS\tRACES\tWINS\tPODIUMS\tWR\tCR\tAVG")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n",
			row.Rank, row.TeamName, row.TotalPoints, row.RacesCount,
			row.Wins, row.Podiums, row.WorldRecords, row.CourseRecords,
			row.AveragePoints)
	}
	w.Flush()
}
