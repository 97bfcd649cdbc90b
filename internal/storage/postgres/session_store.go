package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

const sessionColumns = `
	session_id, symbol, mode, start_ms, end_ms, bars,
	initial_equity, final_equity, total_return,
	trades, wins, losses, win_rate, avg_win, avg_loss,
	cumulative_pnl, max_drawdown,
	orders_placed, orders_filled, orders_canceled,
	bars_run, bars_degraded, bars_paused, hard_stops, resumes
`

// Insert adds a new summary. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(ctx context.Context, sum *domain.SessionSummary) error {
	query := `
		INSERT INTO sessions (
			session_id, symbol, mode, start_ms, end_ms, bars,
			initial_equity, final_equity, total_return,
			trades, wins, losses, win_rate, avg_win, avg_loss,
			cumulative_pnl, max_drawdown,
			orders_placed, orders_filled, orders_canceled,
			bars_run, bars_degraded, bars_paused, hard_stops, resumes
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17,
			$18, $19, $20,
			$21, $22, $23, $24, $25
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sum.SessionID, sum.Symbol, sum.Mode, sum.StartMs, sum.EndMs, sum.Bars,
		sum.InitialEquity, sum.FinalEquity, sum.TotalReturn,
		sum.Trades, sum.Wins, sum.Losses, sum.WinRate, sum.AvgWin, sum.AvgLoss,
		sum.CumulativePnL, sum.MaxDrawdown,
		sum.OrdersPlaced, sum.OrdersFilled, sum.OrdersCanceled,
		sum.BarsRun, sum.BarsDegraded, sum.BarsPaused, sum.HardStops, sum.Resumes,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a summary by session ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_id = $1
	`

	row := s.pool.QueryRow(ctx, query, sessionID)
	sum, err := scanSession(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return sum, nil
}

// GetBySymbol retrieves all summaries for a symbol, ordered by start ASC.
func (s *SessionStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.SessionSummary, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE symbol = $1
		ORDER BY start_ms ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get sessions by symbol: %w", err)
	}
	defer rows.Close()

	var result []*domain.SessionSummary
	for rows.Next() {
		sum, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		result = append(result, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	return result, nil
}

// scanSession scans a single row into a SessionSummary.
func scanSession(row pgx.Row) (*domain.SessionSummary, error) {
	var sum domain.SessionSummary

	err := row.Scan(
		&sum.SessionID, &sum.Symbol, &sum.Mode, &sum.StartMs, &sum.EndMs, &sum.Bars,
		&sum.InitialEquity, &sum.FinalEquity, &sum.TotalReturn,
		&sum.Trades, &sum.Wins, &sum.Losses, &sum.WinRate, &sum.AvgWin, &sum.AvgLoss,
		&sum.CumulativePnL, &sum.MaxDrawdown,
		&sum.OrdersPlaced, &sum.OrdersFilled, &sum.OrdersCanceled,
		&sum.BarsRun, &sum.BarsDegraded, &sum.BarsPaused, &sum.HardStops, &sum.Resumes,
	)
	if err != nil {
		return nil, err
	}

	return &sum, nil
}
