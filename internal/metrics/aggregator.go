package metrics

import (
	"context"
	"errors"
	"fmt"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// ErrNoFills is returned when a session has no fills to aggregate.
var ErrNoFills = errors.New("no fills available for aggregation")

// Aggregator recomputes trade statistics for a stored session from its
// persisted fills and order events. The bar-level fields (gate
// distribution, equity, drawdown) come from the stored summary; the
// trade-level fields are rebuilt from the fill log so reports stay
// consistent with the raw data.
type Aggregator struct {
	sessionStore storage.SessionStore
	fillStore    storage.FillStore
	eventStore   storage.OrderEventStore
}

// NewAggregator creates a metrics aggregator over the given stores.
func NewAggregator(sessions storage.SessionStore, fills storage.FillStore, events storage.OrderEventStore) *Aggregator {
	return &Aggregator{
		sessionStore: sessions,
		fillStore:    fills,
		eventStore:   events,
	}
}

// Recompute loads a stored session and rebuilds its trade statistics
// and order counts from the fill and order-event logs. Returns
// storage.ErrNotFound if the session does not exist and ErrNoFills if
// the session recorded no fills.
func (a *Aggregator) Recompute(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	summary, err := a.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	fills, err := a.fillStore.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load fills for %s: %w", sessionID, err)
	}
	if len(fills) == 0 {
		return nil, ErrNoFills
	}

	pnls := make([]float64, 0, len(fills))
	for _, f := range fills {
		if f.PnL != nil {
			pnls = append(pnls, *f.PnL)
		}
	}
	stats := computeTradeStats(pnls)

	summary.Trades = stats.Trades
	summary.Wins = stats.Wins
	summary.Losses = stats.Losses
	summary.WinRate = stats.WinRate
	summary.AvgWin = stats.AvgWin
	summary.AvgLoss = stats.AvgLoss
	summary.CumulativePnL = stats.Total
	summary.OrdersFilled = len(fills)

	events, err := a.eventStore.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load order events for %s: %w", sessionID, err)
	}

	placed, canceled := 0, 0
	for _, ev := range events {
		switch ev.Action {
		case domain.ActionPlace:
			placed++
		case domain.ActionCancel:
			canceled++
		}
	}
	summary.OrdersPlaced = placed
	summary.OrdersCanceled = canceled

	return summary, nil
}
