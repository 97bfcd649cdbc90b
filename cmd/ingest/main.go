// Package main backfills historical klines from the exchange REST API
// into the ClickHouse bar store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hybrid-mm-engine/internal/exchange"
	"hybrid-mm-engine/internal/marketdata"
	"hybrid-mm-engine/internal/storage/migrations"

	chstore "hybrid-mm-engine/internal/storage/clickhouse"
)

func main() {
	loadEnvFile()

	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "1m", "Kline interval")
	from := flag.String("from", "", "Range start, RFC3339 (required)")
	to := flag.String("to", "", "Range end, RFC3339 (defaults to now)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	testnet := flag.Bool("testnet", false, "Use the exchange testnet REST endpoint")
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
	if *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: CLICKHOUSE_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling ingestion...\n", sig)
		cancel()
	}()

	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer chConn.Close()

	backfiller := marketdata.NewBackfiller(marketdata.BackfillOptions{
		Source:   exchange.NewClient("", "", *testnet),
		BarStore: chstore.NewBarStore(chConn),
	})

	fmt.Println("=== Ingest ===")
	fmt.Printf("Symbol: %s %s\n", *symbol, *interval)
	fmt.Printf("Range:  %s → %s\n", startTime.Format(time.RFC3339), endTime.Format(time.RFC3339))

	result, err := backfiller.BackfillRange(ctx, *symbol, *interval, startTime, endTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error backfilling: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nIngested:   %d bars\n", result.BarsIngested)
	fmt.Printf("Duplicates: %d already stored\n", result.DuplicatesSkipped)
	fmt.Printf("Pages:      %d\n", result.Pages)
	fmt.Printf("Duration:   %s\n", result.Duration.Round(time.Millisecond))
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
