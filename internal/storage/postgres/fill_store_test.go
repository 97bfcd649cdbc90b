package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

func testFill(fillID string, tsMs int64) *domain.Fill {
	return &domain.Fill{
		FillID:      fillID,
		OrderID:     "ord1",
		SessionID:   "sess1",
		Symbol:      "BTCUSDT",
		Kind:        domain.KindGridBuy,
		Side:        domain.SideBuy,
		Price:       99.5,
		Quantity:    0.1,
		Fee:         0.00995,
		FeeAsset:    "USDT",
		TimestampMs: tsMs,
		Tag:         "grid_buy_1",
	}
}

func TestFillStore_Postgres_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(pool)
	ctx := context.Background()

	fill := testFill("f1", 1000)
	fill.Side = domain.SideSell
	fill.Kind = domain.KindTP
	fill.PnL = ptr(1.25)
	fill.PnLPct = ptr(0.42)
	require.NoError(t, store.Insert(ctx, fill))

	got, err := store.GetByID(ctx, "f1")
	require.NoError(t, err)

	assert.Equal(t, "f1", got.FillID)
	assert.Equal(t, domain.SideSell, got.Side)
	require.NotNil(t, got.PnL)
	assert.Equal(t, 1.25, *got.PnL)
	require.NotNil(t, got.PnLPct)
	assert.Equal(t, 0.42, *got.PnLPct)
}

func TestFillStore_Postgres_NullablePnL(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testFill("f1", 1000)))

	got, err := store.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, got.PnL)
	assert.Nil(t, got.PnLPct)
}

func TestFillStore_Postgres_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFillStore_Postgres_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(pool)
	ctx := context.Background()

	fill := testFill("f1", 1000)
	require.NoError(t, store.Insert(ctx, fill))

	err := store.Insert(ctx, fill)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestFillStore_Postgres_SessionAndTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(pool)
	ctx := context.Background()

	fills := []*domain.Fill{
		testFill("f3", 3000),
		testFill("f1", 1000),
		testFill("f2", 2000),
	}
	require.NoError(t, store.InsertBulk(ctx, fills))

	bySession, err := store.GetBySessionID(ctx, "sess1")
	require.NoError(t, err)
	require.Len(t, bySession, 3)
	assert.Equal(t, "f1", bySession[0].FillID)
	assert.Equal(t, "f3", bySession[2].FillID)

	ranged, err := store.GetByTimeRange(ctx, "sess1", 1000, 2000)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}
