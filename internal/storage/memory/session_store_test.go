package memory

import (
	"context"
	"errors"
	"testing"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

func TestSessionStore_InsertAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sum := &domain.SessionSummary{
		SessionID:     "sess1",
		Symbol:        "BTCUSDT",
		Mode:          domain.ModeBacktest,
		StartMs:       1000,
		EndMs:         100000,
		Bars:          500,
		InitialEquity: 10000,
		FinalEquity:   10250,
		TotalReturn:   2.5,
		Trades:        12,
		Wins:          8,
		Losses:        4,
		WinRate:       66.67,
	}

	if err := store.Insert(ctx, sum); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sess1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.FinalEquity != 10250 {
		t.Errorf("FinalEquity mismatch: got %f", got.FinalEquity)
	}
}

func TestSessionStore_DuplicateKey(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sum := &domain.SessionSummary{SessionID: "sess1", Symbol: "BTCUSDT"}

	if err := store.Insert(ctx, sum); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, sum)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_GetBySymbolOrdered(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sums := []*domain.SessionSummary{
		{SessionID: "s2", Symbol: "BTCUSDT", StartMs: 2000},
		{SessionID: "s1", Symbol: "BTCUSDT", StartMs: 1000},
		{SessionID: "s3", Symbol: "ETHUSDT", StartMs: 500},
	}
	for _, sum := range sums {
		if err := store.Insert(ctx, sum); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetBySymbol(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(result))
	}
	if result[0].SessionID != "s1" {
		t.Error("Results not ordered by start time")
	}
}

func TestSessionStore_InvalidInput(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.SessionSummary{SessionID: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
