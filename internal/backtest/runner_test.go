package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/oms"
	"hybrid-mm-engine/internal/policy"
	"hybrid-mm-engine/internal/storage/memory"
)

func testBar(tsMs int64, open, high, low, close float64) domain.Bar {
	return domain.Bar{
		Symbol:      "BTCUSDT",
		TimestampMs: tsMs,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      10,
	}
}

// oscillatingBars produces n one-minute bars gently oscillating around
// base, enough to warm up the indicators and keep the gate in RUN.
func oscillatingBars(n int, startMs int64, base float64) []domain.Bar {
	bars := make([]domain.Bar, 0, n)
	for i := 0; i < n; i++ {
		ts := startMs + int64(i)*60_000
		offset := base * 0.004
		if i%2 == 1 {
			offset = -offset
		}
		close := base + offset
		open := base - offset
		high := base + base*0.006
		low := base - base*0.006
		bars = append(bars, testBar(ts, open, high, low, close))
	}
	return bars
}

func testConfig(sessionID string) Config {
	return Config{
		SessionID:   sessionID,
		Symbol:      "BTCUSDT",
		Policy:      policy.Default(),
		OMS:         oms.DefaultConfig(),
		InitialCash: 10_000,
	}
}

func TestRunnerProducesSummaryAndPersists(t *testing.T) {
	events := memory.NewOrderEventStore()
	fills := memory.NewFillStore()
	sessions := memory.NewSessionStore()

	r := NewRunner(testConfig("sess-run"), Stores{Events: events, Fills: fills, Sessions: sessions})
	bars := oscillatingBars(120, 1_700_000_000_000, 100)

	summary, err := r.Run(context.Background(), bars)
	require.NoError(t, err)

	assert.Equal(t, "sess-run", summary.SessionID)
	assert.Equal(t, domain.ModeBacktest, summary.Mode)
	assert.Equal(t, 120, summary.Bars)
	assert.Equal(t, bars[0].TimestampMs, summary.StartMs)
	assert.Equal(t, bars[len(bars)-1].TimestampMs, summary.EndMs)
	assert.Equal(t, summary.Bars, summary.BarsRun+summary.BarsDegraded+summary.BarsPaused)

	assert.Equal(t, 10_000.0, summary.InitialEquity)
	assert.Greater(t, summary.FinalEquity, 0.0)

	// A stable oscillating market quotes the grid after warmup.
	assert.Greater(t, summary.OrdersPlaced, 0)

	stored, err := sessions.GetByID(context.Background(), "sess-run")
	require.NoError(t, err)
	assert.Equal(t, summary.FinalEquity, stored.FinalEquity)

	storedFills, err := fills.GetBySessionID(context.Background(), "sess-run")
	require.NoError(t, err)
	assert.Len(t, storedFills, summary.OrdersFilled)

	storedEvents, err := events.GetBySessionID(context.Background(), "sess-run")
	require.NoError(t, err)
	placed, canceled := 0, 0
	for _, ev := range storedEvents {
		switch ev.Action {
		case domain.ActionPlace:
			placed++
		case domain.ActionCancel:
			canceled++
		}
	}
	assert.Equal(t, summary.OrdersPlaced, placed)
	assert.Equal(t, summary.OrdersCanceled, canceled)
}

func TestRunnerSkipsStaleAndInvalidBars(t *testing.T) {
	r := NewRunner(testConfig("sess-stale"), Stores{})

	bars := []domain.Bar{
		testBar(2_000, 100, 101, 99, 100),
		testBar(1_000, 100, 101, 99, 100),  // stale, skipped
		testBar(3_000, 100, 98, 99, 100),   // high < low, skipped
		testBar(4_000, 100, 101, 99, 100),
	}

	summary, err := r.Run(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Bars)
}

func TestRunnerHardStopFlattens(t *testing.T) {
	fills := memory.NewFillStore()
	r := NewRunner(testConfig("sess-stop"), Stores{Fills: fills})

	bars := oscillatingBars(60, 1_700_000_000_000, 100)
	// Crash far past the hard-stop gap threshold within the same day.
	crashTs := bars[len(bars)-1].TimestampMs + 60_000
	bars = append(bars, testBar(crashTs, 99, 99, 84, 85))
	bars = append(bars, testBar(crashTs+60_000, 85, 86, 84, 85))

	summary, err := r.Run(context.Background(), bars)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.HardStops)
	assert.Greater(t, summary.BarsPaused, 0)

	// The book is flat after the stop: no position survives.
	assert.Zero(t, r.Manager().Portfolio().PositionQty)
	assert.Empty(t, r.Manager().LiveOrders())
}

func TestRunnerContextCancellation(t *testing.T) {
	r := NewRunner(testConfig("sess-ctx"), Stores{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, oscillatingBars(10, 1_700_000_000_000, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildOrderEventsCoversAllActions(t *testing.T) {
	rsi := 50.0
	bar := testBar(5_000, 100, 101, 99, 100)
	pnl := 3.0

	res := &oms.BarResult{
		Fills: []domain.Fill{{
			FillID: "f1", OrderID: "o1", Symbol: "BTCUSDT",
			Kind: domain.KindGridBuy, Side: domain.SideBuy,
			Price: 99, Quantity: 1, Tag: "grid_buy_1", TimestampMs: 5_000, PnL: &pnl,
		}},
		Cancels: []oms.CancelEvent{{
			Order: domain.PendingOrder{
				OrderID: "o2", Symbol: "BTCUSDT", Kind: domain.KindGridSell,
				Side: domain.SideSell, Price: 101, Quantity: 1, Tag: "grid_sell_1",
				PlacedAtMs: 4_000, InitialRSI: &rsi,
			},
			Reason: domain.CancelDrift,
		}},
		Placed: []domain.PendingOrder{{
			OrderID: "o3", Symbol: "BTCUSDT", Kind: domain.KindDCA,
			Side: domain.SideBuy, Price: 98, Quantity: 1, Tag: "dca_rsi_30.0", PlacedAtMs: 5_000,
		}},
		Skipped: []oms.SkippedIntent{{
			Intent: domain.OrderIntent{Kind: domain.KindTP, Side: domain.SideSell, Price: 102, Tag: "tp_rsi_70.0_mid"},
			Note:   "too small",
		}},
	}

	events := BuildOrderEvents("sess-1", domain.ModeBacktest, bar, res)
	require.Len(t, events, 4)

	assert.Equal(t, domain.ActionFill, events[0].Action)
	assert.Equal(t, domain.StatusFilled, events[0].Status)
	assert.Equal(t, 99.0, events[0].Value)

	assert.Equal(t, domain.ActionCancel, events[1].Action)
	assert.Equal(t, string(domain.CancelDrift), events[1].Reason)

	assert.Equal(t, domain.ActionPlace, events[2].Action)
	assert.Equal(t, domain.StatusPending, events[2].Status)

	assert.Equal(t, domain.ActionSkip, events[3].Action)
	assert.Equal(t, "too small", events[3].Reason)
	assert.Empty(t, events[3].OrderID)

	// Every event id is unique and session-stamped.
	seen := map[string]bool{}
	for _, ev := range events {
		assert.Equal(t, "sess-1", ev.SessionID)
		assert.False(t, seen[ev.EventID], "duplicate event id")
		seen[ev.EventID] = true
	}
}
