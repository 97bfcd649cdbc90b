package domain

// Fill records an executed order. For paper execution the fill price
// equals the resting limit price and the quantity is the full order
// quantity.
type Fill struct {
	FillID      string    // deterministic id
	OrderID     string    // the order that filled
	SessionID   string    // owning run
	Symbol      string    // trading pair symbol
	Kind        OrderKind // planner role of the filled order
	Side        Side
	Price       float64 // execution price
	Quantity    float64 // base asset quantity
	Fee         float64 // fee in quote (or BNB-equivalent quote value)
	FeeAsset    string  // asset the fee was charged in
	TimestampMs int64   // bar timestamp of the fill
	Tag         string  // planner tag carried from the order

	// Realized PnL, set only on SELL fills matched against the
	// position's average entry price.
	PnL    *float64
	PnLPct *float64
}
