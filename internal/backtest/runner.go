package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/engine"
	"hybrid-mm-engine/internal/metrics"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/storage"
)

// Config holds the inputs of one backtest session.
type Config struct {
	SessionID   string
	Symbol      string
	Policy      policy.Policy
	OMS         oms.Config
	InitialCash float64
	Verbose     bool
}

// Stores is the optional persistence sink of a run. Any nil store is
// skipped.
type Stores struct {
	Events   storage.OrderEventStore
	Fills    storage.FillStore
	Sessions storage.SessionStore
}

// Runner drives the engine and the order lifecycle manager over a bar
// series and accumulates session statistics. One runner per session;
// not reusable.
type Runner struct {
	cfg     Config
	engine  *engine.Engine
	manager *oms.Manager
	tracker *metrics.Tracker
	stores  Stores

	stopActive bool

	logger *log.Logger
}

// NewRunner wires an engine and manager for one session.
func NewRunner(cfg Config, stores Stores) *Runner {
	eng := engine.New(cfg.Symbol, cfg.Policy)
	mgr := oms.New(cfg.Symbol, cfg.SessionID, cfg.Policy, cfg.OMS, cfg.InitialCash)
	mgr.SetDCAFillCallback(eng.OnDCAFill)
	mgr.SetVerbose(cfg.Verbose)

	return &Runner{
		cfg:     cfg,
		engine:  eng,
		manager: mgr,
		tracker: metrics.NewTracker(cfg.SessionID, cfg.Symbol, domain.ModeBacktest, cfg.InitialCash),
		stores:  stores,
		logger:  log.New(os.Stderr, "[backtest] ", log.LstdFlags),
	}
}

// Manager exposes the lifecycle manager for inspection after a run.
func (r *Runner) Manager() *oms.Manager {
	return r.manager
}

// Run processes the bar series in order and returns the session
// summary. Stale and invalid bars are logged and skipped; invariant
// breaches abort the run.
func (r *Runner) Run(ctx context.Context, bars []domain.Bar) (*domain.SessionSummary, error) {
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := r.processBar(ctx, bar); err != nil {
			return nil, err
		}
	}

	summary := r.tracker.Summary()
	if r.stores.Sessions != nil {
		if err := r.stores.Sessions.Insert(ctx, summary); err != nil {
			return nil, fmt.Errorf("persist session %s: %w", r.cfg.SessionID, err)
		}
	}
	return summary, nil
}

// RunFromStore loads bars for the time range from the bar store and
// runs over them.
func (r *Runner) RunFromStore(ctx context.Context, barStore storage.BarStore, interval string, startMs, endMs int64) (*domain.SessionSummary, error) {
	stored, err := barStore.GetByTimeRange(ctx, r.cfg.Symbol, interval, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("load bars %s %s: %w", r.cfg.Symbol, interval, err)
	}

	bars := make([]domain.Bar, 0, len(stored))
	for _, b := range stored {
		bars = append(bars, *b)
	}
	return r.Run(ctx, bars)
}

func (r *Runner) processBar(ctx context.Context, bar domain.Bar) error {
	equity := r.manager.Equity(bar.Open)

	plan, err := r.engine.OnBar(bar, equity)
	if err != nil {
		if errors.Is(err, domain.ErrStaleBar) || errors.Is(err, domain.ErrInvalidBar) {
			r.logger.Printf("skip bar %d: %v", bar.TimestampMs, err)
			return nil
		}
		return fmt.Errorf("engine on bar %d: %w", bar.TimestampMs, err)
	}

	res, err := r.manager.ProcessBar(bar, r.engine.Snapshot(), plan)
	if err != nil {
		return fmt.Errorf("oms on bar %d: %w", bar.TimestampMs, err)
	}

	// A hard stop flattens the book: the cancel sweep already ran,
	// the remaining position is sold at the bar close.
	if plan.SL.Stop {
		if fill := r.manager.LiquidateAll(bar); fill != nil {
			res.Fills = append(res.Fills, *fill)
		}
	}

	stopNow := r.engine.StopActive()
	if stopNow && !r.stopActive {
		r.tracker.OnHardStop()
	}
	if !stopNow && r.stopActive {
		r.tracker.OnResume()
	}
	r.stopActive = stopNow

	r.tracker.OnBar(bar.TimestampMs, plan.Gate, r.manager.Equity(bar.Close))
	r.tracker.OnFills(res.Fills)
	r.tracker.OnPlaced(len(res.Placed))
	r.tracker.OnCanceled(len(res.Cancels))

	return r.persistBar(ctx, bar, res)
}

func (r *Runner) persistBar(ctx context.Context, bar domain.Bar, res *oms.BarResult) error {
	if r.stores.Events != nil {
		events := BuildOrderEvents(r.cfg.SessionID, domain.ModeBacktest, bar, res)
		if len(events) > 0 {
			if err := r.stores.Events.InsertBulk(ctx, events); err != nil {
				return fmt.Errorf("persist order events at %d: %w", bar.TimestampMs, err)
			}
		}
	}

	if r.stores.Fills != nil && len(res.Fills) > 0 {
		fills := make([]*domain.Fill, 0, len(res.Fills))
		for i := range res.Fills {
			f := res.Fills[i]
			fills = append(fills, &f)
		}
		if err := r.stores.Fills.InsertBulk(ctx, fills); err != nil {
			return fmt.Errorf("persist fills at %d: %w", bar.TimestampMs, err)
		}
	}

	return nil
}
