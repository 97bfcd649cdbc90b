package indicator

import (
	"fmt"
	"math"

	"hybrid-mm-engine/internal/domain"
)

// Config holds the indicator lookback periods.
type Config struct {
	Capacity  int // ring buffer size
	RSIPeriod int
	ATRPeriod int
	EMAFast   int
	EMASlow   int
	EMALong   int
	BBPeriod  int
	BBStdDev  float64
}

// DefaultConfig returns the standard lookbacks.
func DefaultConfig() Config {
	return Config{
		Capacity:  500,
		RSIPeriod: 14,
		ATRPeriod: 14,
		EMAFast:   9,
		EMASlow:   21,
		EMALong:   50,
		BBPeriod:  20,
		BBStdDev:  2,
	}
}

// Pipeline computes indicator snapshots incrementally from a bar
// stream. Not safe for concurrent use; each symbol owns one pipeline.
type Pipeline struct {
	symbol string
	cfg    Config

	window  *window
	rsi     *rsiState
	atr     *atrState
	emaFast *emaState
	emaSlow *emaState
	emaLong *emaState

	prev *domain.Snapshot
	last *domain.Snapshot
}

// New creates a pipeline for one symbol.
func New(symbol string, cfg Config) *Pipeline {
	if cfg.Capacity <= 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		symbol:  symbol,
		cfg:     cfg,
		window:  newWindow(cfg.Capacity),
		rsi:     newRSIState(cfg.RSIPeriod),
		atr:     newATRState(cfg.ATRPeriod),
		emaFast: newEMAState(cfg.EMAFast),
		emaSlow: newEMAState(cfg.EMASlow),
		emaLong: newEMAState(cfg.EMALong),
	}
}

// OnBar appends one closed bar and returns the new snapshot. An
// invalid bar is rejected and the previous snapshot is retained.
func (p *Pipeline) OnBar(bar domain.Bar) (*domain.Snapshot, error) {
	if err := bar.Validate(); err != nil {
		return nil, fmt.Errorf("indicator pipeline %s: %w", p.symbol, err)
	}

	p.window.append(bar)

	snap := &domain.Snapshot{
		Symbol:      p.symbol,
		TimestampMs: bar.TimestampMs,
		Close:       bar.Close,
	}

	snap.RSI = p.rsi.update(bar.Close)
	snap.EMAFast = p.emaFast.update(bar.Close)
	snap.EMASlow = p.emaSlow.update(bar.Close)
	snap.EMALong = p.emaLong.update(bar.Close)

	if atr := p.atr.update(bar.High, bar.Low, bar.Close); atr != nil {
		snap.ATR = atr
		pct := *atr / bar.Close * 100
		snap.ATRPct = &pct
	}

	if closes, ok := p.window.lastCloses(p.cfg.BBPeriod); ok {
		mid, upper, lower := bollinger(closes, p.cfg.BBStdDev)
		snap.BBMiddle = &mid
		snap.BBUpper = &upper
		snap.BBLower = &lower
	}

	if p.last != nil {
		snap.PrevATRPct = p.last.ATRPct
		snap.PrevRSI = p.last.RSI
	}

	p.prev = p.last
	p.last = snap
	return snap, nil
}

// Last returns the most recent snapshot, nil before the first bar.
func (p *Pipeline) Last() *domain.Snapshot {
	return p.last
}

// Prev returns the snapshot before the most recent one.
func (p *Pipeline) Prev() *domain.Snapshot {
	return p.prev
}

// BarCount reports how many bars the window currently holds.
func (p *Pipeline) BarCount() int {
	return p.window.len()
}

func bollinger(closes []float64, stddevs float64) (mid, upper, lower float64) {
	n := float64(len(closes))
	var sum float64
	for _, c := range closes {
		sum += c
	}
	mid = sum / n

	var variance float64
	for _, c := range closes {
		d := c - mid
		variance += d * d
	}
	sd := math.Sqrt(variance / n)

	upper = mid + stddevs*sd
	lower = mid - stddevs*sd
	return mid, upper, lower
}
