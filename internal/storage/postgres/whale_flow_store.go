package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// WhaleFlowStore implements storage.WhaleFlowStore using PostgreSQL.
type WhaleFlowStore struct {
	pool *Pool
}

// NewWhaleFlowStore creates a new WhaleFlowStore.
func NewWhaleFlowStore(pool *Pool) *WhaleFlowStore {
	return &WhaleFlowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WhaleFlowStore = (*WhaleFlowStore)(nil)

const whaleFlowColumns = `
	id, ts, symbol, underlying_price, flow_type, option_type, strike,
	expiration, days_to_exp, contracts, premium_per_share, total_premium,
	unusual_factor, sentiment, aggressiveness, pattern, confidence, whale_score,
	followed, followed_contracts, followed_cost, outcome, result_pnl
`

// Insert adds a new flow. Returns ErrDuplicateKey if id exists.
func (s *WhaleFlowStore) Insert(ctx context.Context, f *domain.WhaleFlow) error {
	if f == nil || f.ID == "" || f.Symbol == "" {
		return storage.ErrInvalidInput
	}
	if !f.Followed && (f.FollowedContracts != 0 || f.FollowedCost != 0) {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO whale_flows (` + whaleFlowColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23
		)
	`

	var outcome *string
	if f.Outcome != nil {
		o := string(*f.Outcome)
		outcome = &o
	}

	_, err := s.pool.Exec(ctx, query,
		f.ID, f.Timestamp, f.Symbol, f.UnderlyingPrice, string(f.FlowType), string(f.OptionType), f.Strike,
		f.Expiration, f.DaysToExp, f.Contracts, f.PremiumPerShare, f.TotalPremium,
		f.UnusualFactor, string(f.Sentiment), string(f.Aggressiveness), f.Pattern, f.Confidence, f.WhaleScore,
		f.Followed, f.FollowedContracts, f.FollowedCost, outcome, f.ResultPnL,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert whale flow: %w", err)
	}
	return nil
}

// MarkFollowed records a follow with sizing.
func (s *WhaleFlowStore) MarkFollowed(ctx context.Context, id string, contracts int, cost float64) error {
	if contracts <= 0 || cost <= 0 {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE whale_flows
		SET followed = TRUE, followed_contracts = $2, followed_cost = $3
		WHERE id = $1 AND outcome IS NULL
	`, id, contracts, cost)
	if err != nil {
		return fmt.Errorf("mark whale flow followed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT TRUE FROM whale_flows WHERE id = $1`, id).Scan(&exists)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check whale flow: %w", err)
		}
		return storage.ErrOutcomeRecorded
	}
	return nil
}

// RecordOutcome records P&L once, followed flows only.
func (s *WhaleFlowStore) RecordOutcome(ctx context.Context, id string, outcome domain.Outcome, resultPnL float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var followed bool
	var existing *string
	err = tx.QueryRow(ctx, `SELECT followed, outcome FROM whale_flows WHERE id = $1 FOR UPDATE`, id).
		Scan(&followed, &existing)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock whale flow: %w", err)
	}
	if !followed {
		return storage.ErrNotFollowed
	}
	if existing != nil {
		return storage.ErrOutcomeRecorded
	}

	_, err = tx.Exec(ctx, `
		UPDATE whale_flows SET outcome = $2, result_pnl = $3 WHERE id = $1
	`, id, string(outcome), resultPnL)
	if err != nil {
		return fmt.Errorf("record whale flow outcome: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a flow. Returns ErrNotFound if not exists.
func (s *WhaleFlowStore) GetByID(ctx context.Context, id string) (*domain.WhaleFlow, error) {
	query := `SELECT ` + whaleFlowColumns + ` FROM whale_flows WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	f, err := scanWhaleFlow(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get whale flow by id: %w", err)
	}
	return f, nil
}

// GetByTimeRange retrieves flows with timestamp within [start, end].
func (s *WhaleFlowStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.WhaleFlow, error) {
	query := `
		SELECT ` + whaleFlowColumns + `
		FROM whale_flows
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get whale flows by time range: %w", err)
	}
	defer rows.Close()

	return scanWhaleFlows(rows)
}

// GetBySymbol retrieves all flows for a symbol, newest first.
func (s *WhaleFlowStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.WhaleFlow, error) {
	query := `
		SELECT ` + whaleFlowColumns + `
		FROM whale_flows
		WHERE symbol = $1
		ORDER BY ts DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get whale flows by symbol: %w", err)
	}
	defer rows.Close()

	return scanWhaleFlows(rows)
}

// GetFollowed retrieves all followed flows ordered by timestamp ASC.
func (s *WhaleFlowStore) GetFollowed(ctx context.Context) ([]*domain.WhaleFlow, error) {
	query := `
		SELECT ` + whaleFlowColumns + `
		FROM whale_flows
		WHERE followed
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get followed whale flows: %w", err)
	}
	defer rows.Close()

	return scanWhaleFlows(rows)
}

// scanWhaleFlow scans a single row into a WhaleFlow.
func scanWhaleFlow(row pgx.Row) (*domain.WhaleFlow, error) {
	var f domain.WhaleFlow
	var flowType, optionType, sentiment, aggressiveness string
	var outcome *string

	err := row.Scan(
		&f.ID, &f.Timestamp, &f.Symbol, &f.UnderlyingPrice, &flowType, &optionType, &f.Strike,
		&f.Expiration, &f.DaysToExp, &f.Contracts, &f.PremiumPerShare, &f.TotalPremium,
		&f.UnusualFactor, &sentiment, &aggressiveness, &f.Pattern, &f.Confidence, &f.WhaleScore,
		&f.Followed, &f.FollowedContracts, &f.FollowedCost, &outcome, &f.ResultPnL,
	)
	if err != nil {
		return nil, err
	}

	f.FlowType = domain.FlowType(flowType)
	f.OptionType = domain.OptionType(optionType)
	f.Sentiment = domain.Sentiment(sentiment)
	f.Aggressiveness = domain.Aggressiveness(aggressiveness)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		f.Outcome = &o
	}
	return &f, nil
}

// scanWhaleFlows scans multiple rows into a slice of WhaleFlow.
func scanWhaleFlows(rows pgx.Rows) ([]*domain.WhaleFlow, error) {
	var flows []*domain.WhaleFlow

	for rows.Next() {
		f, err := scanWhaleFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whale flow row: %w", err)
		}
		flows = append(flows, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale flow rows: %w", err)
	}

	return flows, nil
}
