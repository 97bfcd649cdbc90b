package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

func testSession(sessionID string, startMs int64) *domain.SessionSummary {
	return &domain.SessionSummary{
		SessionID:      sessionID,
		Symbol:         "BTCUSDT",
		Mode:           domain.ModeBacktest,
		StartMs:        startMs,
		EndMs:          startMs + 100000,
		Bars:           500,
		InitialEquity:  10000,
		FinalEquity:    10250,
		TotalReturn:    2.5,
		Trades:         12,
		Wins:           8,
		Losses:         4,
		WinRate:        66.67,
		AvgWin:         3.1,
		AvgLoss:        -1.4,
		CumulativePnL:  19.2,
		MaxDrawdown:    -1.8,
		OrdersPlaced:   60,
		OrdersFilled:   12,
		OrdersCanceled: 40,
		BarsRun:        420,
		BarsDegraded:   60,
		BarsPaused:     20,
		HardStops:      1,
		Resumes:        1,
	}
}

func TestSessionStore_Postgres_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSessionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSession("sess1", 1000)))

	got, err := store.GetByID(ctx, "sess1")
	require.NoError(t, err)

	assert.Equal(t, "sess1", got.SessionID)
	assert.Equal(t, domain.ModeBacktest, got.Mode)
	assert.Equal(t, 10250.0, got.FinalEquity)
	assert.Equal(t, 12, got.Trades)
	assert.Equal(t, 1, got.HardStops)
}

func TestSessionStore_Postgres_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSessionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSession("sess1", 1000)))

	err := store.Insert(ctx, testSession("sess1", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSessionStore_Postgres_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSessionStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionStore_Postgres_GetBySymbolOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSessionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSession("s2", 2000)))
	require.NoError(t, store.Insert(ctx, testSession("s1", 1000)))

	other := testSession("s3", 500)
	other.Symbol = "ETHUSDT"
	require.NoError(t, store.Insert(ctx, other))

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, "s2", got[1].SessionID)
}
