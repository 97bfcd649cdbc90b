package domain

// SessionSummary aggregates one backtest or live session.
type SessionSummary struct {
	SessionID string // uuid
	Symbol    string // trading pair symbol
	Mode      string // "backtest" | "paper" | "live"

	StartMs int64 // first bar timestamp
	EndMs   int64 // last bar timestamp
	Bars    int   // bars processed

	InitialEquity float64
	FinalEquity   float64
	TotalReturn   float64 // (final - initial) / initial * 100

	// Trade statistics over SELL fills with realized PnL.
	Trades  int
	Wins    int
	Losses  int
	WinRate float64 // wins / trades * 100
	AvgWin  float64 // mean positive realized PnL
	AvgLoss float64 // mean non-positive realized PnL (zero PnL counts as a loss)

	CumulativePnL float64
	MaxDrawdown   float64 // worst peak-to-trough equity decline, percent

	OrdersPlaced   int
	OrdersFilled   int
	OrdersCanceled int

	// Bars spent in each gate state.
	BarsRun      int
	BarsDegraded int
	BarsPaused   int

	HardStops int // hard-stop triggers during the session
	Resumes   int // auto-resumes during the session
}

// Session execution modes.
const (
	ModeBacktest = "backtest"
	ModePaper    = "paper"
	ModeLive     = "live"
)
