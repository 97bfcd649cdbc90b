package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// FillStore implements storage.FillStore using PostgreSQL.
type FillStore struct {
	pool *Pool
}

// NewFillStore creates a new FillStore.
func NewFillStore(pool *Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

const fillColumns = `
	fill_id, order_id, session_id, symbol,
	kind, side, price, quantity, fee, fee_asset,
	timestamp_ms, tag, pnl, pnl_pct
`

const fillInsert = `
	INSERT INTO fills (
		fill_id, order_id, session_id, symbol,
		kind, side, price, quantity, fee, fee_asset,
		timestamp_ms, tag, pnl, pnl_pct
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14
	)
`

// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
func (s *FillStore) Insert(ctx context.Context, f *domain.Fill) error {
	_, err := s.pool.Exec(ctx, fillInsert,
		f.FillID, f.OrderID, f.SessionID, f.Symbol,
		f.Kind, f.Side, f.Price, f.Quantity, f.Fee, f.FeeAsset,
		f.TimestampMs, f.Tag, f.PnL, f.PnLPct,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert fill: %w", err)
	}
	return nil
}

// InsertBulk adds multiple fills atomically. Fails entire batch on any duplicate.
func (s *FillStore) InsertBulk(ctx context.Context, fills []*domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range fills {
		_, err := tx.Exec(ctx, fillInsert,
			f.FillID, f.OrderID, f.SessionID, f.Symbol,
			f.Kind, f.Side, f.Price, f.Quantity, f.Fee, f.FeeAsset,
			f.TimestampMs, f.Tag, f.PnL, f.PnLPct,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert fill in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a fill by its ID. Returns ErrNotFound if not exists.
func (s *FillStore) GetByID(ctx context.Context, fillID string) (*domain.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE fill_id = $1
	`

	row := s.pool.QueryRow(ctx, query, fillID)
	f, err := scanFill(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get fill by id: %w", err)
	}
	return f, nil
}

// GetBySessionID retrieves all fills for a session, ordered by timestamp ASC.
func (s *FillStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE session_id = $1
		ORDER BY timestamp_ms ASC, fill_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get fills by session id: %w", err)
	}
	defer rows.Close()

	return scanFills(rows)
}

// GetByTimeRange retrieves fills for a session within [start, end] (inclusive).
func (s *FillStore) GetByTimeRange(ctx context.Context, sessionID string, start, end int64) ([]*domain.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE session_id = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC, fill_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get fills by time range: %w", err)
	}
	defer rows.Close()

	return scanFills(rows)
}

// scanFill scans a single row into a Fill.
func scanFill(row pgx.Row) (*domain.Fill, error) {
	var f domain.Fill

	err := row.Scan(
		&f.FillID, &f.OrderID, &f.SessionID, &f.Symbol,
		&f.Kind, &f.Side, &f.Price, &f.Quantity, &f.Fee, &f.FeeAsset,
		&f.TimestampMs, &f.Tag, &f.PnL, &f.PnLPct,
	)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// scanFills scans multiple rows into a slice of Fill.
func scanFills(rows pgx.Rows) ([]*domain.Fill, error) {
	var fills []*domain.Fill

	for rows.Next() {
		var f domain.Fill

		err := rows.Scan(
			&f.FillID, &f.OrderID, &f.SessionID, &f.Symbol,
			&f.Kind, &f.Side, &f.Price, &f.Quantity, &f.Fee, &f.FeeAsset,
			&f.TimestampMs, &f.Tag, &f.PnL, &f.PnLPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}

		fills = append(fills, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
