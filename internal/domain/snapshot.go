package domain

// Snapshot carries the indicator values computed from one closed bar.
// All fields are nil until enough bars have accumulated for the
// corresponding lookback window.
type Snapshot struct {
	Symbol      string // trading pair symbol
	TimestampMs int64  // bar open time, Unix ms
	Close       float64

	RSI     *float64 // Wilder RSI, 14 periods
	ATR     *float64 // Wilder ATR, 14 periods, absolute
	ATRPct  *float64 // ATR / close * 100
	EMAFast *float64 // EMA 9
	EMASlow *float64 // EMA 21
	EMALong *float64 // EMA 50

	BBUpper  *float64 // Bollinger upper band, 20 periods, 2 stddev
	BBMiddle *float64 // Bollinger middle band (SMA 20)
	BBLower  *float64 // Bollinger lower band

	PrevATRPct *float64 // ATR% from the previous snapshot, for spike detection
	PrevRSI    *float64 // RSI from the previous snapshot
}

// Ready reports whether the warmup-gated indicators used by the
// planner are all available.
func (s *Snapshot) Ready() bool {
	return s != nil && s.RSI != nil && s.ATRPct != nil && s.EMAFast != nil
}
