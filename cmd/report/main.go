// Package main regenerates report files for a stored session, with an
// optional recompute of the session statistics from raw fills.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/metrics"
	"hybrid-mm-engine/internal/reporting"
	"hybrid-mm-engine/internal/storage/migrations"

	pgstore "hybrid-mm-engine/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	sessionID := flag.String("session-id", "", "Session identifier (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "output", "Directory for report files")
	recompute := flag.Bool("recompute", false, "Recompute session statistics from stored fills before rendering")
	flag.Parse()

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "Error: -session-id is required")
		os.Exit(1)
	}
	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to Postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
		os.Exit(1)
	}

	sessions := pgstore.NewSessionStore(pool)
	fills := pgstore.NewFillStore(pool)
	events := pgstore.NewOrderEventStore(pool)

	var recomputed *domain.SessionSummary
	if *recompute {
		agg := metrics.NewAggregator(sessions, fills, events)
		summary, err := agg.Recompute(ctx, *sessionID)
		switch {
		case errors.Is(err, metrics.ErrNoFills):
			fmt.Println("No fills stored; keeping the persisted summary.")
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error recomputing session: %v\n", err)
			os.Exit(1)
		default:
			recomputed = summary
			fmt.Printf("Recomputed: %d trades, return %.4f%%\n", summary.Trades, summary.TotalReturn)
		}
	}

	report, err := reporting.NewGenerator(sessions, fills, events).Generate(ctx, *sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}
	if recomputed != nil {
		report.Summary = recomputed
	}

	dir := filepath.Join(*outputDir, *sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"REPORT.md":   reporting.RenderMarkdown(report),
		"orders.csv":  reporting.RenderOrdersCSV(report.Events),
		"fills.csv":   reporting.RenderFillsCSV(report.Fills),
		"summary.csv": reporting.RenderSummaryCSV(report.Summary),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Report for session %s written to %s\n", *sessionID, dir)
	fmt.Printf("  %d order events, %d fills\n", len(report.Events), len(report.Fills))
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
