package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// OrderEventStore implements storage.OrderEventStore using PostgreSQL.
type OrderEventStore struct {
	pool *Pool
}

// NewOrderEventStore creates a new OrderEventStore.
func NewOrderEventStore(pool *Pool) *OrderEventStore {
	return &OrderEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderEventStore = (*OrderEventStore)(nil)

const orderEventColumns = `
	event_id, session_id, symbol, order_id,
	kind, side, action, price, quantity, value,
	status, tag, reason, mode, timestamp_ms
`

const orderEventInsert = `
	INSERT INTO order_events (
		event_id, session_id, symbol, order_id,
		kind, side, action, price, quantity, value,
		status, tag, reason, mode, timestamp_ms
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15
	)
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *OrderEventStore) Insert(ctx context.Context, e *domain.OrderEvent) error {
	_, err := s.pool.Exec(ctx, orderEventInsert,
		e.EventID, e.SessionID, e.Symbol, e.OrderID,
		e.Kind, e.Side, e.Action, e.Price, e.Quantity, e.Value,
		e.Status, e.Tag, e.Reason, e.Mode, e.TimestampMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *OrderEventStore) InsertBulk(ctx context.Context, events []*domain.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, orderEventInsert,
			e.EventID, e.SessionID, e.Symbol, e.OrderID,
			e.Kind, e.Side, e.Action, e.Price, e.Quantity, e.Value,
			e.Status, e.Tag, e.Reason, e.Mode, e.TimestampMs,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert order event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySessionID retrieves all events for a session, ordered by timestamp ASC.
func (s *OrderEventStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.OrderEvent, error) {
	query := `
		SELECT ` + orderEventColumns + `
		FROM order_events
		WHERE session_id = $1
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get order events by session id: %w", err)
	}
	defer rows.Close()

	return scanOrderEvents(rows)
}

// GetByOrderID retrieves the lifecycle of one order, ordered by timestamp ASC.
func (s *OrderEventStore) GetByOrderID(ctx context.Context, orderID string) ([]*domain.OrderEvent, error) {
	query := `
		SELECT ` + orderEventColumns + `
		FROM order_events
		WHERE order_id = $1
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order events by order id: %w", err)
	}
	defer rows.Close()

	return scanOrderEvents(rows)
}

// scanOrderEvents scans multiple rows into a slice of OrderEvent.
func scanOrderEvents(rows pgx.Rows) ([]*domain.OrderEvent, error) {
	var events []*domain.OrderEvent

	for rows.Next() {
		var e domain.OrderEvent

		err := rows.Scan(
			&e.EventID, &e.SessionID, &e.Symbol, &e.OrderID,
			&e.Kind, &e.Side, &e.Action, &e.Price, &e.Quantity, &e.Value,
			&e.Status, &e.Tag, &e.Reason, &e.Mode, &e.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order event rows: %w", err)
	}

	return events, nil
}
