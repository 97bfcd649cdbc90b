package metrics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeTradeStatsEmpty(t *testing.T) {
	stats := computeTradeStats(nil)

	if stats.Trades != 0 || stats.Wins != 0 || stats.Losses != 0 {
		t.Errorf("empty stats have counts: %+v", stats)
	}
	if stats.WinRate != 0 || stats.AvgWin != 0 || stats.AvgLoss != 0 {
		t.Errorf("empty stats have rates: %+v", stats)
	}
}

func TestComputeTradeStatsMixed(t *testing.T) {
	stats := computeTradeStats([]float64{10, -5, 20, -15})

	if stats.Trades != 4 {
		t.Errorf("Trades = %d, want 4", stats.Trades)
	}
	if stats.Wins != 2 || stats.Losses != 2 {
		t.Errorf("Wins/Losses = %d/%d, want 2/2", stats.Wins, stats.Losses)
	}
	if !almostEqual(stats.WinRate, 50) {
		t.Errorf("WinRate = %v, want 50", stats.WinRate)
	}
	if !almostEqual(stats.AvgWin, 15) {
		t.Errorf("AvgWin = %v, want 15", stats.AvgWin)
	}
	if !almostEqual(stats.AvgLoss, -10) {
		t.Errorf("AvgLoss = %v, want -10", stats.AvgLoss)
	}
	if !almostEqual(stats.Total, 10) {
		t.Errorf("Total = %v, want 10", stats.Total)
	}
}

func TestComputeTradeStatsZeroPnLCountsAsLoss(t *testing.T) {
	stats := computeTradeStats([]float64{0})

	if stats.Losses != 1 || stats.Wins != 0 {
		t.Errorf("zero PnL should count as loss, got %+v", stats)
	}
}

func TestComputeMaxDrawdownPct(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, 20},
		{"drawdown from later peak", []float64{100, 150, 120, 90}, 40},
		{"recovery does not erase", []float64{100, 50, 200}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeMaxDrawdownPct(tt.equity)
			if !almostEqual(got, tt.want) {
				t.Errorf("computeMaxDrawdownPct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeTotalReturnPct(t *testing.T) {
	if got := computeTotalReturnPct(1000, 1100); !almostEqual(got, 10) {
		t.Errorf("computeTotalReturnPct(1000, 1100) = %v, want 10", got)
	}
	if got := computeTotalReturnPct(1000, 900); !almostEqual(got, -10) {
		t.Errorf("computeTotalReturnPct(1000, 900) = %v, want -10", got)
	}
	if got := computeTotalReturnPct(0, 100); got != 0 {
		t.Errorf("zero initial equity should yield 0, got %v", got)
	}
}
