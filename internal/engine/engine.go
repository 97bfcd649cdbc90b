package engine

import (
	"fmt"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/indicator"
	"hybrid-mm-engine/internal/policy"
)

// Engine is the per-symbol decision core. It processes one bar
// atomically: indicator update, day frame, hard stop, gate, spread,
// planning. Single-threaded; one instance per symbol, no shared
// state across instances.
type Engine struct {
	symbol   string
	pol      policy.Policy
	pipeline *indicator.Pipeline
	planner  *planner
	day      dayFrame
	stop     stopState

	lastTsMs int64
	started  bool
}

// New creates an engine for one symbol with its resolved policy.
func New(symbol string, pol policy.Policy) *Engine {
	return &Engine{
		symbol:   symbol,
		pol:      pol,
		pipeline: indicator.New(symbol, indicator.DefaultConfig()),
		planner:  newPlanner(pol),
		day:      newDayFrame(),
	}
}

// Snapshot returns the latest indicator snapshot, nil before the
// first accepted bar.
func (e *Engine) Snapshot() *domain.Snapshot {
	return e.pipeline.Last()
}

// PrevSnapshot returns the snapshot before the latest one.
func (e *Engine) PrevSnapshot() *domain.Snapshot {
	return e.pipeline.Prev()
}

// StopActive reports whether the hard stop is currently engaged.
func (e *Engine) StopActive() bool {
	return e.stop.Active
}

// OnDCAFill informs the planner that a DCA order filled, resetting
// the bar-counted cooldown.
func (e *Engine) OnDCAFill(price float64) {
	e.planner.onDCAFill(price)
}

// OnBar processes one closed bar with the portfolio equity measured
// before the bar and returns the plan. A stale or duplicate bar
// returns ErrStaleBar with state untouched; an invalid bar returns
// ErrInvalidBar with state untouched. Drivers log both and continue.
func (e *Engine) OnBar(bar domain.Bar, equity float64) (*domain.Plan, error) {
	if e.started && bar.TimestampMs <= e.lastTsMs {
		return nil, fmt.Errorf("engine %s: bar at %d: %w", e.symbol, bar.TimestampMs, domain.ErrStaleBar)
	}

	snap, err := e.pipeline.OnBar(bar)
	if err != nil {
		return nil, err
	}
	e.started = true
	e.lastTsMs = bar.TimestampMs

	e.day.roll(bar, equity)
	if e.day.openPrice <= 0 || e.day.openEquity <= 0 {
		return nil, fmt.Errorf("engine %s: day frame anchors (%v, %v): %w",
			e.symbol, e.day.openPrice, e.day.openEquity, ErrInvariant)
	}

	e.planner.onBarAdvance()

	gapPct := e.day.gapPct(bar.Close)
	dailyPnLPct := e.day.dailyPnLPct(equity)

	plan := &domain.Plan{
		Symbol:      e.symbol,
		TimestampMs: bar.TimestampMs,
		RefPrice:    bar.Close,
	}

	// Hard stop dominates everything else for the bar it is active.
	if e.stop.Active {
		if !e.stop.tryResume(e.pol, bar.Close, snap.RSI) {
			plan.SL = domain.SLAction{Stop: true, Reason: e.stop.Reason}
			plan.Gate = domain.GatePaused
			return plan, nil
		}
	} else if e.stop.check(e.pol, bar.Close, bar.TimestampMs, gapPct, dailyPnLPct) {
		plan.SL = domain.SLAction{Stop: true, Reason: e.stop.Reason}
		plan.Gate = domain.GatePaused
		return plan, nil
	}

	plan.Gate = ClassifyGate(e.pol, gapPct, dailyPnLPct)

	// Indicators still warming up: no quoting decisions yet.
	if !snap.Ready() {
		return plan, nil
	}

	band := ResolveBand(e.pol, *snap.ATRPct)
	spread := ResolveSpread(e.pol, band, *snap.RSI)
	plan.Band = band
	plan.SpreadPct = spread

	if plan.Gate == domain.GatePaused {
		return plan, nil
	}

	if plan.Gate == domain.GateRun {
		if grid, emitted := e.planner.planGrid(snap, spread, bar.TimestampMs); emitted {
			plan.GridOrders = grid
			plan.KillReplace = true
		}
	}
	plan.DCAOrders = e.planner.planDCA(snap, bar.TimestampMs)
	plan.TPOrders = e.planner.planTP(snap, band)

	return plan, nil
}
