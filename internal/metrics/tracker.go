package metrics

import (
	"hybrid-mm-engine/internal/domain"
)

// Tracker accumulates per-bar session statistics while a driver runs.
// Single-threaded; one instance per session.
type Tracker struct {
	sessionID     string
	symbol        string
	mode          string
	initialEquity float64

	startMs int64
	endMs   int64
	bars    int

	barsRun      int
	barsDegraded int
	barsPaused   int

	hardStops int
	resumes   int

	ordersPlaced   int
	ordersFilled   int
	ordersCanceled int

	realizedPnLs []float64
	equityCurve  []float64
}

// NewTracker starts a tracker for one session.
func NewTracker(sessionID, symbol, mode string, initialEquity float64) *Tracker {
	return &Tracker{
		sessionID:     sessionID,
		symbol:        symbol,
		mode:          mode,
		initialEquity: initialEquity,
	}
}

// OnBar records one processed bar with the gate state resolved for it
// and the equity after settlement.
func (t *Tracker) OnBar(timestampMs int64, gate domain.GateState, equity float64) {
	if t.bars == 0 {
		t.startMs = timestampMs
	}
	t.endMs = timestampMs
	t.bars++

	switch gate {
	case domain.GateRun:
		t.barsRun++
	case domain.GateDegraded:
		t.barsDegraded++
	case domain.GatePaused:
		t.barsPaused++
	}

	t.equityCurve = append(t.equityCurve, equity)
}

// OnFills records settled fills, collecting realized PnL from SELL
// fills.
func (t *Tracker) OnFills(fills []domain.Fill) {
	for _, f := range fills {
		t.ordersFilled++
		if f.PnL != nil {
			t.realizedPnLs = append(t.realizedPnLs, *f.PnL)
		}
	}
}

// OnPlaced records n placed orders.
func (t *Tracker) OnPlaced(n int) {
	t.ordersPlaced += n
}

// OnCanceled records n canceled orders.
func (t *Tracker) OnCanceled(n int) {
	t.ordersCanceled += n
}

// OnHardStop records a hard-stop trigger.
func (t *Tracker) OnHardStop() {
	t.hardStops++
}

// OnResume records an auto-resume.
func (t *Tracker) OnResume() {
	t.resumes++
}

// Summary builds the session summary from everything recorded so far.
func (t *Tracker) Summary() *domain.SessionSummary {
	finalEquity := t.initialEquity
	if len(t.equityCurve) > 0 {
		finalEquity = t.equityCurve[len(t.equityCurve)-1]
	}

	stats := computeTradeStats(t.realizedPnLs)

	return &domain.SessionSummary{
		SessionID: t.sessionID,
		Symbol:    t.symbol,
		Mode:      t.mode,

		StartMs: t.startMs,
		EndMs:   t.endMs,
		Bars:    t.bars,

		InitialEquity: t.initialEquity,
		FinalEquity:   finalEquity,
		TotalReturn:   computeTotalReturnPct(t.initialEquity, finalEquity),

		Trades:  stats.Trades,
		Wins:    stats.Wins,
		Losses:  stats.Losses,
		WinRate: stats.WinRate,
		AvgWin:  stats.AvgWin,
		AvgLoss: stats.AvgLoss,

		CumulativePnL: stats.Total,
		MaxDrawdown:   computeMaxDrawdownPct(t.equityCurve),

		OrdersPlaced:   t.ordersPlaced,
		OrdersFilled:   t.ordersFilled,
		OrdersCanceled: t.ordersCanceled,

		BarsRun:      t.barsRun,
		BarsDegraded: t.barsDegraded,
		BarsPaused:   t.barsPaused,

		HardStops: t.hardStops,
		Resumes:   t.resumes,
	}
}
