package marketdata

import (
	"context"
	"errors"
	"time"

	"covered-call-lab/internal/domain"
)

// ErrUnavailable is returned when an external data source cannot serve
// a request. Callers skip the affected symbol for the current pass.
var ErrUnavailable = errors.New("market data unavailable")

// Source provides snapshots of external market data. Implementations
// wrap vendor APIs; the Normalizer adapter applies field defaults
// before data reaches any scoring code.
type Source interface {
	// GetQuote returns the current quote for a symbol.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)

	// GetOptionChain returns the option chain for a symbol, keyed by
	// expiration date (yyyy-mm-dd).
	GetOptionChain(ctx context.Context, symbol string) (domain.OptionChain, error)

	// GetWhaleFlowFeed returns raw options-activity records observed
	// since the given time.
	GetWhaleFlowFeed(ctx context.Context, since time.Time) ([]*domain.RawActivityRecord, error)
}

// FeedHandler consumes one raw activity record delivered by a
// streaming feed. Returning an error marks the record failed but does
// not stop the feed.
type FeedHandler func(ctx context.Context, rec *domain.RawActivityRecord) error
