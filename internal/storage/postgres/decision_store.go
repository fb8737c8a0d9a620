package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

const decisionColumns = `
	id, ts, symbol, current_price, strike, expiration, days_to_exp,
	premium, delta, implied_volatility, iv_rank, volume, open_interest,
	static_return_monthly, win_probability, confidence_score, growth_score,
	earnings_before_exp, decision, contracts, notes,
	outcome, actual_return, closed_date
`

// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.Decision) error {
	if d == nil || d.ID == "" || d.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO decisions (` + decisionColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24
		)
	`

	var outcome *string
	if d.Outcome != nil {
		o := string(*d.Outcome)
		outcome = &o
	}

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.Timestamp, d.Symbol, d.CurrentPrice, d.Strike, d.Expiration, d.DaysToExp,
		d.Premium, d.Delta, d.ImpliedVolatility, d.IVRank, d.Volume, d.OpenInterest,
		d.StaticReturnMonthly, d.WinProbability, d.ConfidenceScore, d.GrowthScore,
		d.EarningsBeforeExp, string(d.Decision), d.Contracts, d.Notes,
		outcome, d.ActualReturn, d.ClosedDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// SetAction updates the decision field of a PENDING decision.
func (s *DecisionStore) SetAction(ctx context.Context, id string, action domain.DecisionAction, contracts int, notes string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT decision FROM decisions WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock decision: %w", err)
	}
	if domain.DecisionAction(current) != domain.DecisionPending {
		return storage.ErrInvalidInput
	}

	query := `UPDATE decisions SET decision = $2, contracts = $3 WHERE id = $1`
	args := []any{id, string(action), contracts}
	if notes != "" {
		query = `UPDATE decisions SET decision = $2, contracts = $3, notes = $4 WHERE id = $1`
		args = append(args, notes)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set decision action: %w", err)
	}

	return tx.Commit(ctx)
}

// CompleteOutcome records the outcome once, TAKE decisions only.
func (s *DecisionStore) CompleteOutcome(ctx context.Context, id string, outcome domain.Outcome, actualReturn float64, closedDate time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var decision string
	var existing *string
	err = tx.QueryRow(ctx, `SELECT decision, outcome FROM decisions WHERE id = $1 FOR UPDATE`, id).
		Scan(&decision, &existing)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock decision: %w", err)
	}
	if domain.DecisionAction(decision) != domain.DecisionTake {
		return storage.ErrInvalidInput
	}
	if existing != nil {
		return storage.ErrOutcomeRecorded
	}

	_, err = tx.Exec(ctx, `
		UPDATE decisions
		SET outcome = $2, actual_return = $3, closed_date = $4
		WHERE id = $1
	`, id, string(outcome), actualReturn, closedDate)
	if err != nil {
		return fmt.Errorf("complete decision outcome: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a decision. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(ctx context.Context, id string) (*domain.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	d, err := scanDecision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by id: %w", err)
	}
	return d, nil
}

// GetByTimeRange retrieves decisions with timestamp within [start, end].
func (s *DecisionStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get decisions by time range: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetBySymbol retrieves all decisions for a symbol, newest first.
func (s *DecisionStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE symbol = $1
		ORDER BY ts DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get decisions by symbol: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetAll retrieves all decisions ordered by timestamp ASC.
func (s *DecisionStore) GetAll(ctx context.Context) ([]*domain.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// scanDecision scans a single row into a Decision.
func scanDecision(row pgx.Row) (*domain.Decision, error) {
	var d domain.Decision
	var decision string
	var outcome *string

	err := row.Scan(
		&d.ID, &d.Timestamp, &d.Symbol, &d.CurrentPrice, &d.Strike, &d.Expiration, &d.DaysToExp,
		&d.Premium, &d.Delta, &d.ImpliedVolatility, &d.IVRank, &d.Volume, &d.OpenInterest,
		&d.StaticReturnMonthly, &d.WinProbability, &d.ConfidenceScore, &d.GrowthScore,
		&d.EarningsBeforeExp, &decision, &d.Contracts, &d.Notes,
		&outcome, &d.ActualReturn, &d.ClosedDate,
	)
	if err != nil {
		return nil, err
	}

	d.Decision = domain.DecisionAction(decision)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		d.Outcome = &o
	}
	return &d, nil
}

// scanDecisions scans multiple rows into a slice of Decision.
func scanDecisions(rows pgx.Rows) ([]*domain.Decision, error) {
	var decisions []*domain.Decision

	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}

	return decisions, nil
}
