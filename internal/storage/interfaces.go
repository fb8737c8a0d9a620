package storage

import (
	"context"
	"time"

	"covered-call-lab/internal/domain"
)

// PositionStore provides access to positions storage.
// Keyed by (symbol, account_type); mutations are atomic per key.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces the position stored under key. The replacement may
	// carry a different key (account move); in that case the old key is
	// removed and ErrDuplicateKey is returned if the new key is taken.
	Update(ctx context.Context, key domain.PositionKey, p *domain.Position) error

	// Delete removes a position. Returns ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key domain.PositionKey) error

	// GetByKey retrieves a position. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error)

	// GetAll retrieves all positions, ordered by symbol then account.
	GetAll(ctx context.Context) ([]*domain.Position, error)

	// GetByAccount retrieves all positions in one account type.
	GetByAccount(ctx context.Context, account domain.AccountType) ([]*domain.Position, error)
}

// DecisionStore provides access to the decision log.
// Append-only except the single outcome-completion mutation.
type DecisionStore interface {
	// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, d *domain.Decision) error

	// SetAction updates the decision field of a PENDING decision.
	SetAction(ctx context.Context, id string, action domain.DecisionAction, contracts int, notes string) error

	// CompleteOutcome records the outcome once. Returns ErrOutcomeRecorded
	// on a second attempt and ErrInvalidInput if the decision is not TAKE.
	CompleteOutcome(ctx context.Context, id string, outcome domain.Outcome, actualReturn float64, closedDate time.Time) error

	// GetByID retrieves a decision. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Decision, error)

	// GetByTimeRange retrieves decisions with timestamp within [start, end].
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Decision, error)

	// GetBySymbol retrieves all decisions for a symbol, newest first.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Decision, error)

	// GetAll retrieves all decisions ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.Decision, error)
}

// OpenTradeStore provides access to active covered-call trades.
type OpenTradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, t *domain.OpenTrade) error

	// Close records the close-out once. Returns ErrOutcomeRecorded if the
	// trade is already closed.
	Close(ctx context.Context, id string, closePrice, profit float64, outcome domain.Outcome, closedDate time.Time) error

	// GetByID retrieves a trade. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.OpenTrade, error)

	// GetActive retrieves all open (not closed) trades ordered by expiration ASC.
	GetActive(ctx context.Context) ([]*domain.OpenTrade, error)

	// GetAll retrieves all trades ordered by entry date ASC.
	GetAll(ctx context.Context) ([]*domain.OpenTrade, error)
}

// WhaleFlowStore provides access to detected whale flows.
type WhaleFlowStore interface {
	// Insert adds a new flow. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, f *domain.WhaleFlow) error

	// MarkFollowed records a follow with sizing. Contracts and cost must
	// be positive; a second call overwrites sizing while the flow has no
	// outcome yet.
	MarkFollowed(ctx context.Context, id string, contracts int, cost float64) error

	// RecordOutcome records P&L once. Returns ErrNotFollowed if the flow
	// was never followed and ErrOutcomeRecorded on a second attempt.
	RecordOutcome(ctx context.Context, id string, outcome domain.Outcome, resultPnL float64) error

	// GetByID retrieves a flow. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.WhaleFlow, error)

	// GetByTimeRange retrieves flows with timestamp within [start, end].
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.WhaleFlow, error)

	// GetBySymbol retrieves all flows for a symbol, newest first.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.WhaleFlow, error)

	// GetFollowed retrieves all followed flows ordered by timestamp ASC.
	GetFollowed(ctx context.Context) ([]*domain.WhaleFlow, error)
}

// ActivityArchiveStore archives raw options-activity records for
// baseline statistics. Backed by ClickHouse in production.
type ActivityArchiveStore interface {
	// InsertBulk appends raw feed records. Duplicates are tolerated;
	// the archive is statistical, not authoritative.
	InsertBulk(ctx context.Context, records []*domain.RawActivityRecord) error

	// AverageVolume returns mean option volume for a symbol over the
	// trailing window. Returns ErrNotFound when no history exists.
	AverageVolume(ctx context.Context, symbol string, window time.Duration) (float64, error)

	// CountBySymbol returns archived record counts per symbol within
	// [start, end], for feed health reporting.
	CountBySymbol(ctx context.Context, start, end time.Time) (map[string]int64, error)
}
