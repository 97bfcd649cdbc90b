package engine

import "hybrid-mm-engine/internal/domain"

// dayFrame tracks the UTC-day anchors for gate and stop inputs.
type dayFrame struct {
	day        int64 // days since epoch, -1 before the first bar
	openPrice  float64
	openEquity float64
}

func newDayFrame() dayFrame {
	return dayFrame{day: -1}
}

// roll resets the anchors on a calendar-date change. Returns true when
// a rollover happened.
func (d *dayFrame) roll(bar domain.Bar, equity float64) bool {
	if bar.Day() == d.day {
		return false
	}
	d.day = bar.Day()
	d.openPrice = bar.Open
	d.openEquity = equity
	return true
}

// gapPct is the intraday price move relative to the day open.
func (d *dayFrame) gapPct(close float64) float64 {
	return (close - d.openPrice) / d.openPrice * 100
}

// dailyPnLPct is the equity move relative to the day-open equity.
func (d *dayFrame) dailyPnLPct(equity float64) float64 {
	return (equity - d.openEquity) / d.openEquity * 100
}
