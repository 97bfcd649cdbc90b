package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
	"hybrid-mm-engine/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.SessionStore, *memory.FillStore, *memory.OrderEventStore) {
	ctx := context.Background()

	sessionStore := memory.NewSessionStore()
	fillStore := memory.NewFillStore()
	eventStore := memory.NewOrderEventStore()

	summary := &domain.SessionSummary{
		SessionID:      "sess-1",
		Symbol:         "BTCUSDT",
		Mode:           domain.ModeBacktest,
		StartMs:        1_000_000,
		EndMs:          1_600_000,
		Bars:           10,
		InitialEquity:  10_000,
		FinalEquity:    10_050,
		TotalReturn:    0.5,
		Trades:         2,
		Wins:           1,
		Losses:         1,
		WinRate:        50,
		AvgWin:         8,
		AvgLoss:        3,
		CumulativePnL:  5,
		MaxDrawdown:    0.8,
		OrdersPlaced:   4,
		OrdersFilled:   3,
		OrdersCanceled: 1,
		BarsRun:        8,
		BarsDegraded:   1,
		BarsPaused:     1,
		HardStops:      1,
		Resumes:        0,
	}
	if err := sessionStore.Insert(ctx, summary); err != nil {
		t.Fatalf("Insert session failed: %v", err)
	}

	winPnL := 8.0
	lossPnL := -3.0
	fills := []*domain.Fill{
		{FillID: "f2", OrderID: "o2", SessionID: "sess-1", Symbol: "BTCUSDT",
			Kind: domain.KindGridSell, Side: domain.SideSell, Price: 101, Quantity: 1,
			Fee: 0.1, FeeAsset: "USDT", TimestampMs: 1_200_000, Tag: "grid_sell_1", PnL: &winPnL},
		{FillID: "f1", OrderID: "o1", SessionID: "sess-1", Symbol: "BTCUSDT",
			Kind: domain.KindGridBuy, Side: domain.SideBuy, Price: 100, Quantity: 1,
			Fee: 0.1, FeeAsset: "USDT", TimestampMs: 1_100_000, Tag: "grid_buy_1"},
		{FillID: "f3", OrderID: "o3", SessionID: "sess-1", Symbol: "BTCUSDT",
			Kind: domain.KindClose, Side: domain.SideSell, Price: 99, Quantity: 1,
			Fee: 0.1, FeeAsset: "USDT", TimestampMs: 1_500_000, Tag: "close_all", PnL: &lossPnL},
	}
	for _, f := range fills {
		if err := fillStore.Insert(ctx, f); err != nil {
			t.Fatalf("Insert fill failed: %v", err)
		}
	}

	events := []*domain.OrderEvent{
		{EventID: "e1", SessionID: "sess-1", Symbol: "BTCUSDT", OrderID: "o1",
			Kind: domain.KindGridBuy, Side: domain.SideBuy, Action: domain.ActionPlace,
			Price: 100, Quantity: 1, Value: 100, Status: domain.StatusPending,
			Tag: "grid_buy_1", Mode: domain.ModeBacktest, TimestampMs: 1_050_000},
		{EventID: "e2", SessionID: "sess-1", Symbol: "BTCUSDT", OrderID: "o4",
			Kind: domain.KindGridSell, Side: domain.SideSell, Action: domain.ActionCancel,
			Price: 103, Quantity: 1, Value: 103, Status: domain.StatusCanceled,
			Tag: "grid_sell_2", Reason: string(domain.CancelDrift),
			Mode: domain.ModeBacktest, TimestampMs: 1_300_000},
		{EventID: "e3", SessionID: "sess-1", Symbol: "BTCUSDT", OrderID: "o1",
			Kind: domain.KindGridBuy, Side: domain.SideBuy, Action: domain.ActionFill,
			Price: 100, Quantity: 1, Value: 100, Status: domain.StatusFilled,
			Tag: "grid_buy_1", Mode: domain.ModeBacktest, TimestampMs: 1_100_000},
	}
	for _, ev := range events {
		if err := eventStore.Insert(ctx, ev); err != nil {
			t.Fatalf("Insert order event failed: %v", err)
		}
	}

	return sessionStore, fillStore, eventStore
}

func TestGenerate_LoadsSessionData(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)
	generator := NewGenerator(sessions, fills, events)

	report, err := generator.Generate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Summary.SessionID != "sess-1" {
		t.Errorf("Expected session sess-1, got %s", report.Summary.SessionID)
	}
	if len(report.Fills) != 3 {
		t.Fatalf("Expected 3 fills, got %d", len(report.Fills))
	}
	if len(report.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(report.Events))
	}

	// Fills and events come back in chronological order.
	for i := 1; i < len(report.Fills); i++ {
		if report.Fills[i-1].TimestampMs > report.Fills[i].TimestampMs {
			t.Errorf("Fills out of order at index %d", i)
		}
	}
	for i := 1; i < len(report.Events); i++ {
		if report.Events[i-1].TimestampMs > report.Events[i].TimestampMs {
			t.Errorf("Events out of order at index %d", i)
		}
	}
}

func TestGenerate_UnknownSession(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)
	generator := NewGenerator(sessions, fills, events)

	_, err := generator.Generate(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestGenerate_WithClock(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)

	fixedTime := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	generator := NewGenerator(sessions, fills, events).WithClock(func() time.Time {
		return fixedTime
	})

	report, err := generator.Generate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	fixedTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	var first string
	for run := 0; run < 5; run++ {
		sessions, fills, events := setupTestData(t)
		generator := NewGenerator(sessions, fills, events).WithClock(fixedClock)

		report, err := generator.Generate(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}

		md := RenderMarkdown(report)
		if first == "" {
			first = md
			continue
		}
		if md != first {
			t.Errorf("Run %d: rendered markdown differs from first run", run)
		}
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)
	generator := NewGenerator(sessions, fills, events)

	report, err := generator.Generate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	requiredSections := []string{
		"# Session Report: sess-1",
		"## Session",
		"## Performance",
		"## Gate Distribution",
		"## Orders",
		"## Fills",
		"## Cancellations",
	}
	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing section: %s", section)
		}
	}

	if !strings.Contains(md, "| Win Rate | 50.0000% |") {
		t.Error("Markdown missing win rate row")
	}
	if !strings.Contains(md, "| RUN | 8 |") {
		t.Error("Markdown missing gate distribution row")
	}
	if !strings.Contains(md, "grid_sell_1") {
		t.Error("Markdown missing fill tag")
	}
	if !strings.Contains(md, string(domain.CancelDrift)) {
		t.Error("Markdown missing cancellation reason")
	}
}

func TestRenderMarkdown_NoTrades(t *testing.T) {
	report := &Report{
		GeneratedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Summary: &domain.SessionSummary{
			SessionID: "sess-empty", Symbol: "BTCUSDT", Mode: domain.ModeBacktest,
			Bars: 5, InitialEquity: 10_000, FinalEquity: 10_000, BarsRun: 5,
		},
	}

	md := RenderMarkdown(report)

	if !strings.Contains(md, "No closed trades in this session.") {
		t.Error("Expected no-trades note")
	}
	if !strings.Contains(md, "No fills recorded.") {
		t.Error("Expected no-fills note")
	}
	if !strings.Contains(md, "No cancellations recorded.") {
		t.Error("Expected no-cancellations note")
	}
}

func TestRenderOrdersCSV(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)
	generator := NewGenerator(sessions, fills, events)

	report, err := generator.Generate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderOrdersCSV(report.Events)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp_ms,session_id,symbol,order_id") {
		t.Errorf("CSV header is incorrect: %s", lines[0])
	}
	if !strings.Contains(lines[2], "FILL") {
		t.Errorf("Expected FILL row second, got: %s", lines[2])
	}
}

func TestRenderFillsCSV_NullablePnL(t *testing.T) {
	pnl := 8.0
	pct := 8.0
	fills := []*domain.Fill{
		{FillID: "f1", OrderID: "o1", SessionID: "s", Symbol: "BTCUSDT",
			Kind: domain.KindGridBuy, Side: domain.SideBuy, Price: 100, Quantity: 1,
			Fee: 0.1, FeeAsset: "USDT", TimestampMs: 1, Tag: "grid_buy_1"},
		{FillID: "f2", OrderID: "o2", SessionID: "s", Symbol: "BTCUSDT",
			Kind: domain.KindGridSell, Side: domain.SideSell, Price: 108, Quantity: 1,
			Fee: 0.1, FeeAsset: "USDT", TimestampMs: 2, Tag: "grid_sell_1",
			PnL: &pnl, PnLPct: &pct},
	}

	csv := RenderFillsCSV(fills)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}

	// BUY fill carries empty pnl columns.
	if !strings.Contains(lines[1], ",,,grid_buy_1") {
		t.Errorf("Expected empty pnl columns on BUY row, got: %s", lines[1])
	}
	if !strings.Contains(lines[2], "8.00000000,8.0000,grid_sell_1") {
		t.Errorf("Expected pnl columns on SELL row, got: %s", lines[2])
	}
}

func TestRenderSummaryCSV(t *testing.T) {
	ctx := context.Background()
	sessions, fills, events := setupTestData(t)
	generator := NewGenerator(sessions, fills, events)

	report, err := generator.Generate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderSummaryCSV(report.Summary)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 row, got %d lines", len(lines))
	}

	header := strings.Split(lines[0], ",")
	row := strings.Split(lines[1], ",")
	if len(header) != len(row) {
		t.Fatalf("Header has %d columns, row has %d", len(header), len(row))
	}
	if !strings.HasPrefix(lines[1], "sess-1,BTCUSDT,backtest") {
		t.Errorf("Summary row is incorrect: %s", lines[1])
	}
}
