package metrics

// TradeStats summarizes realized PnL over closed (SELL) fills.
type TradeStats struct {
	Trades  int
	Wins    int
	Losses  int
	WinRate float64 // percent
	AvgWin  float64 // mean positive realized PnL
	AvgLoss float64 // mean non-positive realized PnL (negative value)
	Total   float64 // sum of realized PnL
}

// computeTradeStats calculates win/loss statistics from realized PnL
// values in chronological order.
func computeTradeStats(pnls []float64) TradeStats {
	stats := TradeStats{Trades: len(pnls)}
	if len(pnls) == 0 {
		return stats
	}

	winSum := 0.0
	lossSum := 0.0
	for _, p := range pnls {
		stats.Total += p
		if p > 0 {
			stats.Wins++
			winSum += p
		} else {
			stats.Losses++
			lossSum += p
		}
	}

	stats.WinRate = computeWinRate(stats.Wins, stats.Trades)
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}
	return stats
}

// computeWinRate calculates win rate as wins / total, in percent.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// computeMaxDrawdownPct calculates the worst peak-to-trough decline of
// the equity curve, in percent of the peak. Equity values must be in
// chronological order.
func computeMaxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0]
	maxDrawdown := 0.0
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - eq) / peak * 100; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeTotalReturnPct calculates (final - initial) / initial in
// percent. Zero initial equity yields zero.
func computeTotalReturnPct(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}
	return (final - initial) / initial * 100
}
