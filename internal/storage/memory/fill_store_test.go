package memory

import (
	"context"
	"errors"
	"testing"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

func TestFillStore_InsertAndGet(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	pnl := 1.25
	fill := &domain.Fill{
		FillID:      "f1",
		OrderID:     "ord1",
		SessionID:   "sess1",
		Symbol:      "BTCUSDT",
		Kind:        domain.KindTP,
		Side:        domain.SideSell,
		Price:       101.5,
		Quantity:    0.1,
		Fee:         0.01,
		FeeAsset:    "USDT",
		TimestampMs: 1000,
		Tag:         "tp_rsi_70.0_mid",
		PnL:         &pnl,
	}

	if err := store.Insert(ctx, fill); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Price != 101.5 {
		t.Errorf("Price mismatch: got %f", got.Price)
	}
	if got.PnL == nil || *got.PnL != 1.25 {
		t.Errorf("PnL mismatch: got %v", got.PnL)
	}
}

func TestFillStore_CopySemantics(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	pnl := 1.0
	fill := &domain.Fill{FillID: "f1", SessionID: "sess1", TimestampMs: 1000, PnL: &pnl}
	if err := store.Insert(ctx, fill); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's pointer must not affect the stored copy.
	pnl = 99.0

	got, _ := store.GetByID(ctx, "f1")
	if *got.PnL != 1.0 {
		t.Errorf("Stored PnL shares caller pointer: got %f", *got.PnL)
	}
}

func TestFillStore_DuplicateKey(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	fill := &domain.Fill{FillID: "f1", SessionID: "sess1", TimestampMs: 1000}

	if err := store.Insert(ctx, fill); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, fill)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestFillStore_NotFound(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFillStore_GetBySessionOrdered(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	fills := []*domain.Fill{
		{FillID: "f2", SessionID: "sess1", TimestampMs: 2000},
		{FillID: "f1", SessionID: "sess1", TimestampMs: 1000},
		{FillID: "f3", SessionID: "sess2", TimestampMs: 500},
	}

	if err := store.InsertBulk(ctx, fills); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetBySessionID(ctx, "sess1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 fills, got %d", len(result))
	}
	if result[0].FillID != "f1" {
		t.Error("Results not ordered by timestamp")
	}
}

func TestFillStore_GetByTimeRange(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	fills := []*domain.Fill{
		{FillID: "f1", SessionID: "sess1", TimestampMs: 1000},
		{FillID: "f2", SessionID: "sess1", TimestampMs: 2000},
		{FillID: "f3", SessionID: "sess1", TimestampMs: 3000},
	}
	if err := store.InsertBulk(ctx, fills); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "sess1", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 fills in range, got %d", len(result))
	}
}

func TestFillStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Fill{FillID: "f1", SessionID: "sess1", TimestampMs: 1000}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	fills := []*domain.Fill{
		{FillID: "f2", SessionID: "sess1", TimestampMs: 2000},
		{FillID: "f1", SessionID: "sess1", TimestampMs: 1000}, // duplicate
	}

	err := store.InsertBulk(ctx, fills)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetBySessionID(ctx, "sess1")
	if len(all) != 1 {
		t.Errorf("Expected 1 fill (no partial insert), got %d", len(all))
	}
}

func TestFillStore_InvalidInput(t *testing.T) {
	store := NewFillStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.Fill{FillID: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
