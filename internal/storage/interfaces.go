package storage

import (
	"context"

	"hybrid-mm-engine/internal/domain"
)

// BarStore provides access to OHLCV bar history.
type BarStore interface {
	// InsertBulk adds multiple bars for one interval. Fails entire batch
	// on duplicate (symbol, interval, timestamp_ms).
	InsertBulk(ctx context.Context, interval string, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol/interval, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol, interval string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol/interval within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol, interval string, start, end int64) ([]*domain.Bar, error)
}

// OrderEventStore provides access to the order audit trail.
type OrderEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.OrderEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.OrderEvent) error

	// GetBySessionID retrieves all events for a session, ordered by timestamp ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.OrderEvent, error)

	// GetByOrderID retrieves the lifecycle of one order, ordered by timestamp ASC.
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.OrderEvent, error)
}

// FillStore provides access to executed fills.
type FillStore interface {
	// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
	Insert(ctx context.Context, f *domain.Fill) error

	// InsertBulk adds multiple fills atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, fills []*domain.Fill) error

	// GetByID retrieves a fill by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, fillID string) (*domain.Fill, error)

	// GetBySessionID retrieves all fills for a session, ordered by timestamp ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Fill, error)

	// GetByTimeRange retrieves fills for a session within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, sessionID string, start, end int64) ([]*domain.Fill, error)
}

// SessionStore provides access to session summaries.
type SessionStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if session_id exists.
	Insert(ctx context.Context, s *domain.SessionSummary) error

	// GetByID retrieves a summary by session ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, sessionID string) (*domain.SessionSummary, error)

	// GetBySymbol retrieves all summaries for a symbol, ordered by start ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.SessionSummary, error)
}
