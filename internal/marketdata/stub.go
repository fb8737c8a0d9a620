package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"covered-call-lab/internal/domain"
)

// StubSource serves fixed in-memory data for tests and dry runs.
// It returns copies to prevent mutation. Implements Source.
type StubSource struct {
	quotes  map[string]*domain.Quote
	chains  map[string]domain.OptionChain
	records []*domain.RawActivityRecord
}

// NewStubSource creates a stub source with the given data.
func NewStubSource(quotes []*domain.Quote, chains map[string]domain.OptionChain, records []*domain.RawActivityRecord) *StubSource {
	m := make(map[string]*domain.Quote)
	for _, q := range quotes {
		m[strings.ToUpper(q.Symbol)] = q
	}
	return &StubSource{quotes: m, chains: chains, records: records}
}

// GetQuote returns the fixture quote for a symbol.
func (s *StubSource) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	q, ok := s.quotes[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}
	copy := *q
	copy.Defaulted = append([]string(nil), q.Defaulted...)
	return &copy, nil
}

// GetOptionChain returns the fixture chain for a symbol.
func (s *StubSource) GetOptionChain(_ context.Context, symbol string) (domain.OptionChain, error) {
	chain, ok := s.chains[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: no chain for %s", ErrUnavailable, symbol)
	}
	out := make(domain.OptionChain, len(chain))
	for exp, contracts := range chain {
		out[exp] = append([]domain.OptionContract(nil), contracts...)
	}
	return out, nil
}

// GetWhaleFlowFeed returns fixture records at or after since.
func (s *StubSource) GetWhaleFlowFeed(_ context.Context, since time.Time) ([]*domain.RawActivityRecord, error) {
	var result []*domain.RawActivityRecord
	for _, r := range s.records {
		if r.Timestamp.Before(since) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}
