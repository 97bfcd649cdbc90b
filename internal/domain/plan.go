package domain

// GateState is the capital-protection state resolved each bar.
type GateState string

const (
	GateRun      GateState = "RUN"      // full quoting
	GateDegraded GateState = "DEGRADED" // grid suspended, DCA/TP allowed
	GatePaused   GateState = "PAUSED"   // no new orders
)

// Band classifies current volatility from ATR%.
type Band string

const (
	BandNear Band = "near" // atr_pct below the near threshold
	BandMid  Band = "mid"
	BandFar  Band = "far"
)

// SLAction is the hard-stop directive attached to a plan.
type SLAction struct {
	Stop   bool   // hard stop active this bar
	Reason string // set when the stop triggered, e.g. "daily pnl -5.10% <= -5.00%"
}

// OrderKind enumerates the planner's order roles.
type OrderKind string

const (
	KindGridBuy  OrderKind = "grid_buy"
	KindGridSell OrderKind = "grid_sell"
	KindDCA      OrderKind = "dca"
	KindTP       OrderKind = "tp"
	KindClose    OrderKind = "close_all" // hard-stop position liquidation
)

// OrderIntent is one desired limit order inside a plan. Prices are
// unrounded; rounding to tick happens at the execution boundary.
type OrderIntent struct {
	Kind  OrderKind // role of the order
	Side  Side      // BUY or SELL
	Price float64   // limit price, unrounded
	Tag   string    // e.g. "grid_buy_1", "dca_rsi_30.0"
}

// Plan is the engine's complete output for one bar. Consumers must
// treat it as immutable.
type Plan struct {
	Symbol      string
	TimestampMs int64 // bar that produced the plan

	Gate      GateState
	Band      Band
	SpreadPct float64 // resolved spread, percent
	RefPrice  float64 // bar close used as the quote anchor

	SL          SLAction
	KillReplace bool // sweep existing grid orders before placing the new grid

	GridOrders []OrderIntent
	DCAOrders  []OrderIntent
	TPOrders   []OrderIntent
}

// Empty reports whether the plan carries no order intents.
func (p *Plan) Empty() bool {
	return len(p.GridOrders) == 0 && len(p.DCAOrders) == 0 && len(p.TPOrders) == 0
}

// Intents returns all order intents in placement order: grid first,
// then DCA, then TP.
func (p *Plan) Intents() []OrderIntent {
	out := make([]OrderIntent, 0, len(p.GridOrders)+len(p.DCAOrders)+len(p.TPOrders))
	out = append(out, p.GridOrders...)
	out = append(out, p.DCAOrders...)
	out = append(out, p.TPOrders...)
	return out
}
