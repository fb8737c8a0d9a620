package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// OpenTradeStore implements storage.OpenTradeStore using PostgreSQL.
type OpenTradeStore struct {
	pool *Pool
}

// NewOpenTradeStore creates a new OpenTradeStore.
func NewOpenTradeStore(pool *Pool) *OpenTradeStore {
	return &OpenTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OpenTradeStore = (*OpenTradeStore)(nil)

const openTradeColumns = `
	id, decision_id, symbol, strike, expiration, premium, contracts,
	underlying_price_entry, original_dte, entry_date,
	closed, closed_date, close_price, close_profit, outcome
`

// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
func (s *OpenTradeStore) Insert(ctx context.Context, t *domain.OpenTrade) error {
	if t == nil || t.ID == "" || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO open_trades (` + openTradeColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15
		)
	`

	var outcome *string
	if t.Outcome != nil {
		o := string(*t.Outcome)
		outcome = &o
	}

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.DecisionID, t.Symbol, t.Strike, t.Expiration, t.Premium, t.Contracts,
		t.UnderlyingPriceEntry, t.OriginalDTE, t.EntryDate,
		t.Closed, t.ClosedDate, t.ClosePrice, t.CloseProfit, outcome,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert open trade: %w", err)
	}
	return nil
}

// Close records the close-out once.
func (s *OpenTradeStore) Close(ctx context.Context, id string, closePrice, profit float64, outcome domain.Outcome, closedDate time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE open_trades
		SET closed = TRUE, closed_date = $2, close_price = $3, close_profit = $4, outcome = $5
		WHERE id = $1 AND NOT closed
	`, id, closedDate, closePrice, profit, string(outcome))
	if err != nil {
		return fmt.Errorf("close open trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already closed; disambiguate for the caller.
		var closed bool
		err := s.pool.QueryRow(ctx, `SELECT closed FROM open_trades WHERE id = $1`, id).Scan(&closed)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check open trade: %w", err)
		}
		return storage.ErrOutcomeRecorded
	}
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if not exists.
func (s *OpenTradeStore) GetByID(ctx context.Context, id string) (*domain.OpenTrade, error) {
	query := `SELECT ` + openTradeColumns + ` FROM open_trades WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanOpenTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open trade by id: %w", err)
	}
	return t, nil
}

// GetActive retrieves all open trades ordered by expiration ASC.
func (s *OpenTradeStore) GetActive(ctx context.Context) ([]*domain.OpenTrade, error) {
	query := `
		SELECT ` + openTradeColumns + `
		FROM open_trades
		WHERE NOT closed
		ORDER BY expiration ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active open trades: %w", err)
	}
	defer rows.Close()

	return scanOpenTrades(rows)
}

// GetAll retrieves all trades ordered by entry date ASC.
func (s *OpenTradeStore) GetAll(ctx context.Context) ([]*domain.OpenTrade, error) {
	query := `
		SELECT ` + openTradeColumns + `
		FROM open_trades
		ORDER BY entry_date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all open trades: %w", err)
	}
	defer rows.Close()

	return scanOpenTrades(rows)
}

// scanOpenTrade scans a single row into an OpenTrade.
func scanOpenTrade(row pgx.Row) (*domain.OpenTrade, error) {
	var t domain.OpenTrade
	var outcome *string

	err := row.Scan(
		&t.ID, &t.DecisionID, &t.Symbol, &t.Strike, &t.Expiration, &t.Premium, &t.Contracts,
		&t.UnderlyingPriceEntry, &t.OriginalDTE, &t.EntryDate,
		&t.Closed, &t.ClosedDate, &t.ClosePrice, &t.CloseProfit, &outcome,
	)
	if err != nil {
		return nil, err
	}

	if outcome != nil {
		o := domain.Outcome(*outcome)
		t.Outcome = &o
	}
	return &t, nil
}

// scanOpenTrades scans multiple rows into a slice of OpenTrade.
func scanOpenTrades(rows pgx.Rows) ([]*domain.OpenTrade, error) {
	var trades []*domain.OpenTrade

	for rows.Next() {
		t, err := scanOpenTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open trade rows: %w", err)
	}

	return trades, nil
}
