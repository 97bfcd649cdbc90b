// Package main runs a paper-trading session against the live kline
// stream: websocket bars → engine → simulated order lifecycle, with
// Prometheus metrics on /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"hybrid-mm-engine/internal/exchange"
	"hybrid-mm-engine/internal/observability"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/orchestrator"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/storage"
	"hybrid-mm-engine/internal/storage/memory"
	"hybrid-mm-engine/internal/storage/migrations"

	pgstore "hybrid-mm-engine/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "1m", "Kline interval")
	sessionID := flag.String("session-id", "paper-"+uuid.NewString(), "Session identifier")
	policyFile := flag.String("policy", os.Getenv("POLICY_FILE"), "Policy YAML file (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores instead of Postgres")
	initialCash := flag.Float64("initial-cash", 10_000, "Initial quote-asset balance")
	wsBase := flag.String("ws-base", "wss://stream.binance.com:9443", "Exchange websocket base URL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	pol := policy.Default()
	if *policyFile != "" {
		set, err := policy.Load(*policyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading policy: %v\n", err)
			os.Exit(1)
		}
		pol = set.For(*symbol)
	}

	events, fills, sessions, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	metrics := observability.NewMetrics("hybrid_mm_engine")

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Metrics server error: %v\n", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	streamCfg := exchange.DefaultStreamConfig()
	stream, err := exchange.NewKlineStream(ctx,
		exchange.StreamEndpoint(*wsBase, *symbol, *interval), &streamCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to stream: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	trader := orchestrator.NewTrader(orchestrator.TraderOptions{
		SessionID:    *sessionID,
		Symbol:       *symbol,
		Policy:       pol,
		OMSConfig:    oms.DefaultConfig(),
		InitialCash:  *initialCash,
		Source:       stream,
		EventStore:   events,
		FillStore:    fills,
		SessionStore: sessions,
		Metrics:      metrics,
		Verbose:      *verbose,
	})

	fmt.Println("=== Paper Trading ===")
	fmt.Printf("Session: %s\n", *sessionID)
	fmt.Printf("Symbol:  %s %s\n", *symbol, *interval)
	fmt.Printf("Metrics: http://localhost%s/metrics\n", *metricsAddr)

	summary, err := trader.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running trader: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Session %s ===\n", summary.SessionID)
	fmt.Printf("Bars:    %d (run %d, degraded %d, paused %d)\n",
		summary.Bars, summary.BarsRun, summary.BarsDegraded, summary.BarsPaused)
	fmt.Printf("Orders:  %d placed, %d filled, %d canceled\n",
		summary.OrdersPlaced, summary.OrdersFilled, summary.OrdersCanceled)
	fmt.Printf("Equity:  %.2f → %.2f (%.4f%%)\n",
		summary.InitialEquity, summary.FinalEquity, summary.TotalReturn)
}

// createStores wires the three session stores, either in memory or on
// Postgres with migrations applied.
func createStores(ctx context.Context, pgDSN string, useMemory bool) (storage.OrderEventStore, storage.FillStore, storage.SessionStore, func(), error) {
	if useMemory {
		return memory.NewOrderEventStore(), memory.NewFillStore(), memory.NewSessionStore(), func() {}, nil
	}

	if pgDSN == "" {
		return nil, nil, nil, nil, fmt.Errorf("POSTGRES_DSN is required unless -use-memory is set")
	}
	pool, err := pgstore.NewPool(ctx, pgDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	return pgstore.NewOrderEventStore(pool), pgstore.NewFillStore(pool),
		pgstore.NewSessionStore(pool), pool.Close, nil
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
