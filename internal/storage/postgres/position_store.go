package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `symbol, account_type, shares, cost_basis, notes, created_at`

// Insert adds a new position. Returns ErrDuplicateKey if the key exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Symbol == "" || p.AccountType == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (symbol, account_type, shares, cost_basis, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Symbol, string(p.AccountType), p.Shares, p.CostBasis, p.Notes, p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces the position stored under key. An account move deletes
// the old row and inserts the new one in a single transaction.
func (s *PositionStore) Update(ctx context.Context, key domain.PositionKey, p *domain.Position) error {
	if p == nil || p.Symbol == "" || p.AccountType == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if p.Key() == key {
		tag, err := tx.Exec(ctx, `
			UPDATE positions
			SET shares = $3, cost_basis = $4, notes = $5, created_at = $6
			WHERE symbol = $1 AND account_type = $2
		`, key.Symbol, string(key.AccountType), p.Shares, p.CostBasis, p.Notes, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return tx.Commit(ctx)
	}

	// Key change: remove the old row, insert under the new key.
	tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE symbol = $1 AND account_type = $2`,
		key.Symbol, string(key.AccountType))
	if err != nil {
		return fmt.Errorf("delete old position key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO positions (symbol, account_type, shares, cost_basis, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.Symbol, string(p.AccountType), p.Shares, p.CostBasis, p.Notes, p.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert moved position: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes a position. Returns ErrNotFound if the key does not exist.
func (s *PositionStore) Delete(ctx context.Context, key domain.PositionKey) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE symbol = $1 AND account_type = $2`,
		key.Symbol, string(key.AccountType))
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByKey retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE symbol = $1 AND account_type = $2
	`

	row := s.pool.QueryRow(ctx, query, key.Symbol, string(key.AccountType))
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by key: %w", err)
	}
	return p, nil
}

// GetAll retrieves all positions, ordered by symbol then account.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		ORDER BY symbol ASC, account_type ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByAccount retrieves all positions in one account type.
func (s *PositionStore) GetByAccount(ctx context.Context, account domain.AccountType) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE account_type = $1
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, string(account))
	if err != nil {
		return nil, fmt.Errorf("get positions by account: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var account string

	err := row.Scan(&p.Symbol, &account, &p.Shares, &p.CostBasis, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.AccountType = domain.AccountType(account)
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}
