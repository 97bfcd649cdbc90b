// Package main runs the full backtest pipeline for one session:
// backfill → load bars → simulate → report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"hybrid-mm-engine/internal/exchange"
	"hybrid-mm-engine/internal/marketdata"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/orchestrator"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/reporting"
	"hybrid-mm-engine/internal/storage"
	chstore "hybrid-mm-engine/internal/storage/clickhouse"
	"hybrid-mm-engine/internal/storage/memory"
	"hybrid-mm-engine/internal/storage/migrations"
	pgstore "hybrid-mm-engine/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	// Parse flags
	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "1m", "Kline interval")
	from := flag.String("from", "", "Range start, RFC3339 (required)")
	to := flag.String("to", "", "Range end, RFC3339 (defaults to now)")
	sessionID := flag.String("session-id", "bt-"+uuid.NewString(), "Session identifier")
	policyFile := flag.String("policy", os.Getenv("POLICY_FILE"), "Policy YAML file (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores instead of databases")
	skipBackfill := flag.Bool("skip-backfill", false, "Skip backfill, use already stored bars")
	initialCash := flag.Float64("initial-cash", 10_000, "Initial quote-asset balance")
	outputDir := flag.String("output-dir", "output", "Directory for report files")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "Error: -from is required (RFC3339, e.g. 2024-01-01T00:00:00Z)")
		os.Exit(1)
	}
	startTime, err := time.Parse(time.RFC3339, *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -from: %v\n", err)
		os.Exit(1)
	}
	endTime := time.Now().UTC()
	if *to != "" {
		endTime, err = time.Parse(time.RFC3339, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -to: %v\n", err)
			os.Exit(1)
		}
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling backtest...\n", sig)
		cancel()
	}()

	pol, err := loadPolicy(*policyFile, *symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading policy: %v\n", err)
		os.Exit(1)
	}

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	var backfiller *marketdata.Backfiller
	if !*skipBackfill {
		backfiller = marketdata.NewBackfiller(marketdata.BackfillOptions{
			Source:   exchange.NewClient("", "", false),
			BarStore: stores.bars,
		})
	}

	o := orchestrator.New(orchestrator.Options{
		BarStore:     stores.bars,
		EventStore:   stores.events,
		FillStore:    stores.fills,
		SessionStore: stores.sessions,
		Backfiller:   backfiller,
		Policy:       pol,
		OMSConfig:    oms.DefaultConfig(),
		InitialCash:  *initialCash,
		SkipBackfill: *skipBackfill,
		Verbose:      *verbose,
	})

	fmt.Println("=== Backtest ===")
	fmt.Printf("Session:  %s\n", *sessionID)
	fmt.Printf("Symbol:   %s %s\n", *symbol, *interval)
	fmt.Printf("Range:    %s → %s\n", startTime.Format(time.RFC3339), endTime.Format(time.RFC3339))

	result, err := o.RunBacktest(ctx, *sessionID, *symbol, *interval,
		startTime.UnixMilli(), endTime.UnixMilli())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running backtest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBars ingested: %d\n", result.BarsIngested)
	fmt.Printf("Bars loaded:   %d\n", result.BarsLoaded)
	if result.Summary == nil {
		fmt.Println("No bars in range; nothing to simulate.")
		return
	}

	s := result.Summary
	fmt.Printf("\n=== Session %s ===\n", s.SessionID)
	fmt.Printf("Bars:          %d (run %d, degraded %d, paused %d)\n",
		s.Bars, s.BarsRun, s.BarsDegraded, s.BarsPaused)
	fmt.Printf("Orders:        %d placed, %d filled, %d canceled\n",
		s.OrdersPlaced, s.OrdersFilled, s.OrdersCanceled)
	fmt.Printf("Trades:        %d (wins %d, losses %d, win rate %.2f%%)\n",
		s.Trades, s.Wins, s.Losses, s.WinRate)
	fmt.Printf("Equity:        %.2f → %.2f (%.4f%%)\n",
		s.InitialEquity, s.FinalEquity, s.TotalReturn)
	fmt.Printf("Max drawdown:  %.4f%%\n", s.MaxDrawdown)
	fmt.Printf("Hard stops:    %d (resumes %d)\n", s.HardStops, s.Resumes)

	if err := writeReportFiles(*outputDir, *sessionID, result.Report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nReport written to %s\n", filepath.Join(*outputDir, *sessionID))
}

// loadPolicy reads the symbol's policy from a YAML file, falling back
// to defaults when no file is given.
func loadPolicy(path, symbol string) (policy.Policy, error) {
	if path == "" {
		return policy.Default(), nil
	}
	set, err := policy.Load(path)
	if err != nil {
		return policy.Policy{}, err
	}
	return set.For(symbol), nil
}

// sessionStores bundles the four stores a session needs.
type sessionStores struct {
	bars     storage.BarStore
	events   storage.OrderEventStore
	fills    storage.FillStore
	sessions storage.SessionStore
}

// createStores wires either in-memory stores or the Postgres and
// ClickHouse backends, running migrations first. The returned cleanup
// closes both connections.
func createStores(ctx context.Context, pgDSN, chDSN string, useMemory bool) (*sessionStores, func(), error) {
	if useMemory {
		return &sessionStores{
			bars:     memory.NewBarStore(),
			events:   memory.NewOrderEventStore(),
			fills:    memory.NewFillStore(),
			sessions: memory.NewSessionStore(),
		}, func() {}, nil
	}

	if pgDSN == "" || chDSN == "" {
		return nil, nil, fmt.Errorf("POSTGRES_DSN and CLICKHOUSE_DSN are required unless -use-memory is set")
	}

	pool, err := pgstore.NewPool(ctx, pgDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, chDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		_ = chConn.Close()
		pool.Close()
	}
	return &sessionStores{
		bars:     chstore.NewBarStore(chConn),
		events:   pgstore.NewOrderEventStore(pool),
		fills:    pgstore.NewFillStore(pool),
		sessions: pgstore.NewSessionStore(pool),
	}, cleanup, nil
}

// writeReportFiles renders the report into <outputDir>/<sessionID>/.
func writeReportFiles(outputDir, sessionID string, report *reporting.Report) error {
	dir := filepath.Join(outputDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := map[string]string{
		"REPORT.md":   reporting.RenderMarkdown(report),
		"orders.csv":  reporting.RenderOrdersCSV(report.Events),
		"fills.csv":   reporting.RenderFillsCSV(report.Fills),
		"summary.csv": reporting.RenderSummaryCSV(report.Summary),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
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
