package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"hybrid-mm-engine/internal/backtest"
	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/engine"
	"hybrid-mm-engine/internal/metrics"
	"hybrid-mm-engine/internal/observability"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/storage"
)

// BarSource delivers closed bars as they arrive. *exchange.KlineStream
// satisfies it.
type BarSource interface {
	Bars() <-chan domain.Bar
}

// TraderOptions configures one paper-trading session.
type TraderOptions struct {
	SessionID string
	Symbol    string

	Policy      policy.Policy
	OMSConfig   oms.Config
	InitialCash float64

	Source BarSource

	// Optional persistence; any nil store is skipped.
	EventStore   storage.OrderEventStore
	FillStore    storage.FillStore
	SessionStore storage.SessionStore

	// Optional Prometheus metrics.
	Metrics *observability.Metrics

	Verbose bool
}

// Trader runs the engine against a live bar stream with simulated
// execution. One trader per session; not reusable.
type Trader struct {
	opts    TraderOptions
	engine  *engine.Engine
	manager *oms.Manager
	tracker *metrics.Tracker

	lastBarMs  int64
	stopActive bool

	logger *log.Logger
}

// NewTrader wires an engine and manager for one paper session.
func NewTrader(opts TraderOptions) *Trader {
	eng := engine.New(opts.Symbol, opts.Policy)
	mgr := oms.New(opts.Symbol, opts.SessionID, opts.Policy, opts.OMSConfig, opts.InitialCash)
	mgr.SetDCAFillCallback(eng.OnDCAFill)
	mgr.SetVerbose(opts.Verbose)

	return &Trader{
		opts:    opts,
		engine:  eng,
		manager: mgr,
		tracker: metrics.NewTracker(opts.SessionID, opts.Symbol, domain.ModePaper, opts.InitialCash),
		logger:  log.New(os.Stderr, "[trader] ", log.LstdFlags),
	}
}

// Manager exposes the lifecycle manager for inspection.
func (t *Trader) Manager() *oms.Manager {
	return t.manager
}

// Run consumes the bar stream until the context is canceled or the
// stream closes, then persists and returns the session summary.
// Per-bar persistence failures are logged, not fatal: a database
// hiccup must not stop quoting.
func (t *Trader) Run(ctx context.Context) (*domain.SessionSummary, error) {
	t.logger.Printf("session %s started on %s", t.opts.SessionID, t.opts.Symbol)

	for {
		select {
		case <-ctx.Done():
			return t.finish(ctx.Err())
		case bar, ok := <-t.opts.Source.Bars():
			if !ok {
				return t.finish(nil)
			}
			if err := t.processBar(ctx, bar); err != nil {
				return t.finish(err)
			}
		}
	}
}

func (t *Trader) processBar(ctx context.Context, bar domain.Bar) error {
	// The stream re-sends a closed bar after a reconnect replay.
	if bar.TimestampMs <= t.lastBarMs {
		t.recordRejected("out_of_order")
		t.logger.Printf("drop bar %d: not newer than %d", bar.TimestampMs, t.lastBarMs)
		return nil
	}

	equity := t.manager.Equity(bar.Open)

	plan, err := t.engine.OnBar(bar, equity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleBar):
			t.recordRejected("stale")
		case errors.Is(err, domain.ErrInvalidBar):
			t.recordRejected("invalid")
		default:
			return fmt.Errorf("engine on bar %d: %w", bar.TimestampMs, err)
		}
		t.logger.Printf("skip bar %d: %v", bar.TimestampMs, err)
		return nil
	}
	t.lastBarMs = bar.TimestampMs

	res, err := t.manager.ProcessBar(bar, t.engine.Snapshot(), plan)
	if err != nil {
		return fmt.Errorf("oms on bar %d: %w", bar.TimestampMs, err)
	}

	if plan.SL.Stop {
		if fill := t.manager.LiquidateAll(bar); fill != nil {
			res.Fills = append(res.Fills, *fill)
		}
	}

	stopNow := t.engine.StopActive()
	if stopNow && !t.stopActive {
		t.tracker.OnHardStop()
		t.logger.Printf("hard stop at bar %d: %s", bar.TimestampMs, plan.SL.Reason)
	}
	if !stopNow && t.stopActive {
		t.tracker.OnResume()
		t.logger.Printf("resumed at bar %d", bar.TimestampMs)
	}
	t.stopActive = stopNow

	t.tracker.OnBar(bar.TimestampMs, plan.Gate, t.manager.Equity(bar.Close))
	t.tracker.OnFills(res.Fills)
	t.tracker.OnPlaced(len(res.Placed))
	t.tracker.OnCanceled(len(res.Cancels))

	t.recordMetrics(bar, plan, res)
	t.persistBar(ctx, bar, res)
	return nil
}

func (t *Trader) recordRejected(reason string) {
	if t.opts.Metrics != nil {
		t.opts.Metrics.RecordBarRejected(t.opts.Symbol, reason)
	}
}

func (t *Trader) recordMetrics(bar domain.Bar, plan *domain.Plan, res *oms.BarResult) {
	m := t.opts.Metrics
	if m == nil {
		return
	}

	m.RecordBar(t.opts.Symbol, plan.Gate, bar.TimestampMs)
	m.SpreadPct.WithLabelValues(t.opts.Symbol).Set(plan.SpreadPct)

	for _, o := range res.Placed {
		m.RecordPlacement(t.opts.Symbol, o.Kind)
	}
	for _, f := range res.Fills {
		m.RecordFill(t.opts.Symbol, f.Kind)
	}
	for _, c := range res.Cancels {
		m.RecordCancel(t.opts.Symbol, c.Reason)
	}
	for _, s := range res.Skipped {
		m.RecordSkip(t.opts.Symbol, s.Note)
	}

	p := t.manager.Portfolio()
	m.RecordPortfolio(t.opts.Symbol, t.manager.Equity(bar.Close),
		p.PositionQty, p.CumulativePnL, p.FeesPaid)
	m.LiveOrders.WithLabelValues(t.opts.Symbol).Set(float64(len(t.manager.LiveOrders())))
}

func (t *Trader) persistBar(ctx context.Context, bar domain.Bar, res *oms.BarResult) {
	if t.opts.EventStore != nil {
		events := backtest.BuildOrderEvents(t.opts.SessionID, domain.ModePaper, bar, res)
		if len(events) > 0 {
			if err := t.opts.EventStore.InsertBulk(ctx, events); err != nil {
				t.logger.Printf("persist order events at %d: %v", bar.TimestampMs, err)
			}
		}
	}

	if t.opts.FillStore != nil && len(res.Fills) > 0 {
		fills := make([]*domain.Fill, 0, len(res.Fills))
		for i := range res.Fills {
			f := res.Fills[i]
			fills = append(fills, &f)
		}
		if err := t.opts.FillStore.InsertBulk(ctx, fills); err != nil {
			t.logger.Printf("persist fills at %d: %v", bar.TimestampMs, err)
		}
	}
}

// finish persists the summary and reports how the session ended.
// context.Canceled is a normal shutdown, not an error.
func (t *Trader) finish(cause error) (*domain.SessionSummary, error) {
	summary := t.tracker.Summary()

	if t.opts.SessionStore != nil {
		if err := t.opts.SessionStore.Insert(context.Background(), summary); err != nil {
			t.logger.Printf("persist session %s: %v", t.opts.SessionID, err)
		}
	}

	t.logger.Printf("session %s ended: %d bars, %d fills, equity %.2f",
		t.opts.SessionID, summary.Bars, summary.OrdersFilled, summary.FinalEquity)

	if cause != nil && !errors.Is(cause, context.Canceled) {
		return summary, cause
	}
	return summary, nil
}
