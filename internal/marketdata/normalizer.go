package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// Defaults substituted for optional fields missing from vendor data.
// A partial quote is still useful; scoring code never sees the zero
// values, and Quote.Defaulted records what was filled in.
const (
	DefaultIVRank       = 50.0
	DefaultBeta         = 1.0
	DefaultRSI          = 50.0
	DefaultOpenInterest = 1
)

// Normalizer wraps a Source and applies the documented defaults to
// optional fields, rejecting records that are malformed beyond repair.
// It implements Source.
type Normalizer struct {
	src Source
}

// NewNormalizer wraps src with validate-and-normalize behavior.
func NewNormalizer(src Source) *Normalizer {
	return &Normalizer{src: src}
}

// GetQuote fetches and normalizes a quote. Missing optional fields are
// replaced with defaults and recorded in Quote.Defaulted; a quote with
// no symbol or a non-positive price is rejected.
func (n *Normalizer) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, err := n.src.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := NormalizeQuote(q); err != nil {
		return nil, err
	}
	return q, nil
}

// GetOptionChain fetches a chain, drops contracts with no strike or
// expiration, and defaults zero open interest to 1 so ratio math
// downstream never divides by zero.
func (n *Normalizer) GetOptionChain(ctx context.Context, symbol string) (domain.OptionChain, error) {
	chain, err := n.src.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return NormalizeChain(chain), nil
}

// GetWhaleFlowFeed passes through; the whale detector validates raw
// activity records per record and tags failures individually.
func (n *Normalizer) GetWhaleFlowFeed(ctx context.Context, since time.Time) ([]*domain.RawActivityRecord, error) {
	return n.src.GetWhaleFlowFeed(ctx, since)
}

// NormalizeQuote validates q in place and substitutes defaults for
// missing optional fields, appending the field names to q.Defaulted.
func NormalizeQuote(q *domain.Quote) error {
	if q == nil {
		return fmt.Errorf("%w: nil quote", storage.ErrInvalidInput)
	}
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		return fmt.Errorf("%w: quote missing symbol", storage.ErrInvalidInput)
	}
	if q.Price <= 0 {
		return fmt.Errorf("%w: quote for %s has non-positive price", storage.ErrInvalidInput, q.Symbol)
	}

	if q.IVRank == 0 {
		q.IVRank = DefaultIVRank
		q.Defaulted = append(q.Defaulted, "iv_rank")
	}
	if q.Beta == 0 {
		q.Beta = DefaultBeta
		q.Defaulted = append(q.Defaulted, "beta")
	}
	if q.RSI == 0 {
		q.RSI = DefaultRSI
		q.Defaulted = append(q.Defaulted, "rsi")
	}
	return nil
}

// NormalizeChain returns a copy of chain with malformed contracts
// removed and zero open interest defaulted. Expirations left empty
// after filtering are dropped.
func NormalizeChain(chain domain.OptionChain) domain.OptionChain {
	if chain == nil {
		return nil
	}
	out := make(domain.OptionChain, len(chain))
	for exp, contracts := range chain {
		if _, err := time.Parse("2006-01-02", exp); err != nil {
			continue
		}
		var kept []domain.OptionContract
		for _, c := range contracts {
			if c.Strike <= 0 || c.Expiration.IsZero() {
				continue
			}
			if c.OpenInterest == 0 {
				c.OpenInterest = DefaultOpenInterest
			}
			kept = append(kept, c)
		}
		if len(kept) > 0 {
			out[exp] = kept
		}
	}
	return out
}
