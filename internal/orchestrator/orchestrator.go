// Package orchestrator coordinates the end-to-end pipelines.
// Backtest flow: backfill → load bars → simulate → report.
// Paper flow: stream → engine → order lifecycle, bar by bar.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"hybrid-mm-engine/internal/backtest"
	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/marketdata"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/reporting"
	"hybrid-mm-engine/internal/storage"
)

// Orchestrator coordinates the backtest pipeline execution.
type Orchestrator struct {
	// Stores
	barStore     storage.BarStore
	eventStore   storage.OrderEventStore
	fillStore    storage.FillStore
	sessionStore storage.SessionStore

	// Optional historical ingestion
	backfiller *marketdata.Backfiller

	// Session configs
	policy      policy.Policy
	omsConfig   oms.Config
	initialCash float64

	// Options
	skipBackfill bool
	verbose      bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	BarStore     storage.BarStore
	EventStore   storage.OrderEventStore
	FillStore    storage.FillStore
	SessionStore storage.SessionStore

	// Backfiller pulls missing history before a run. Nil disables
	// ingestion; the run then uses whatever the bar store holds.
	Backfiller *marketdata.Backfiller

	// Session configs
	Policy      policy.Policy
	OMSConfig   oms.Config
	InitialCash float64

	// Options
	SkipBackfill bool // Skip if history already ingested
	Verbose      bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		barStore:     opts.BarStore,
		eventStore:   opts.EventStore,
		fillStore:    opts.FillStore,
		sessionStore: opts.SessionStore,
		backfiller:   opts.Backfiller,
		policy:       opts.Policy,
		omsConfig:    opts.OMSConfig,
		initialCash:  opts.InitialCash,
		skipBackfill: opts.SkipBackfill,
		verbose:      opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	BarsIngested int
	BarsLoaded   int
	Summary      *domain.SessionSummary
	Report       *reporting.Report
}

// RunBacktest executes the full backtest pipeline for one session.
// Phases:
//  1. Backfill missing history (optional)
//  2. Load and order bars
//  3. Simulate
//  4. Generate the session report
func (o *Orchestrator) RunBacktest(ctx context.Context, sessionID, symbol, interval string, startMs, endMs int64) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Backfill
	if o.backfiller != nil && !o.skipBackfill {
		o.log("Phase 1: Backfilling %s %s...", symbol, interval)
		bf, err := o.backfiller.BackfillRange(ctx, symbol, interval,
			time.UnixMilli(startMs), time.UnixMilli(endMs))
		if err != nil {
			return nil, fmt.Errorf("phase 1 (backfill) failed: %w", err)
		}
		result.BarsIngested = bf.BarsIngested
		o.log("  Ingested %d bars (%d already stored)", bf.BarsIngested, bf.DuplicatesSkipped)
	} else {
		o.log("Phase 1: Skipping backfill")
	}

	// Phase 2: Load bars
	o.log("Phase 2: Loading bars...")
	bars, err := o.loadBars(ctx, symbol, interval, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (load bars) failed: %w", err)
	}
	result.BarsLoaded = len(bars)
	o.log("  Loaded %d bars", len(bars))

	if len(bars) == 0 {
		return result, nil
	}

	// Phase 3: Simulation
	o.log("Phase 3: Running simulation...")
	runner := backtest.NewRunner(backtest.Config{
		SessionID:   sessionID,
		Symbol:      symbol,
		Policy:      o.policy,
		OMS:         o.omsConfig,
		InitialCash: o.initialCash,
		Verbose:     o.verbose,
	}, backtest.Stores{
		Events:   o.eventStore,
		Fills:    o.fillStore,
		Sessions: o.sessionStore,
	})

	summary, err := runner.Run(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (simulation) failed: %w", err)
	}
	result.Summary = summary
	o.log("  %d bars simulated, %d orders placed, %d filled",
		summary.Bars, summary.OrdersPlaced, summary.OrdersFilled)

	// Phase 4: Report
	o.log("Phase 4: Generating report...")
	report, err := reporting.NewGenerator(o.sessionStore, o.fillStore, o.eventStore).
		Generate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (report) failed: %w", err)
	}
	result.Report = report

	o.log("Pipeline completed: session %s, return %.4f%%", sessionID, summary.TotalReturn)
	return result, nil
}

// loadBars pulls the range from the store and normalizes its order.
func (o *Orchestrator) loadBars(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]domain.Bar, error) {
	stored, err := o.barStore.GetByTimeRange(ctx, symbol, interval, startMs, endMs)
	if err != nil {
		return nil, err
	}

	marketdata.SortBars(stored)
	stored = marketdata.DedupBars(stored)
	if err := marketdata.ValidateBarOrdering(stored); err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(stored))
	for _, b := range stored {
		bars = append(bars, *b)
	}
	return bars, nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
