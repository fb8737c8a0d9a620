package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Decision // keyed by decision id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.Decision),
	}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.Decision) error {
	if d == nil || d.ID == "" || d.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.ID] = &copy
	return nil
}

// SetAction updates the decision field of a PENDING decision.
func (s *DecisionStore) SetAction(_ context.Context, id string, action domain.DecisionAction, contracts int, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if d.Decision != domain.DecisionPending {
		return storage.ErrInvalidInput
	}

	d.Decision = action
	d.Contracts = contracts
	if notes != "" {
		d.Notes = notes
	}
	return nil
}

// CompleteOutcome records the outcome once, TAKE decisions only.
func (s *DecisionStore) CompleteOutcome(_ context.Context, id string, outcome domain.Outcome, actualReturn float64, closedDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if d.Decision != domain.DecisionTake {
		return storage.ErrInvalidInput
	}
	if d.Outcome != nil {
		return storage.ErrOutcomeRecorded
	}

	d.Outcome = &outcome
	d.ActualReturn = &actualReturn
	d.ClosedDate = &closedDate
	return nil
}

// GetByID retrieves a decision. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(_ context.Context, id string) (*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *d
	return &copy, nil
}

// GetByTimeRange retrieves decisions with timestamp within [start, end].
func (s *DecisionStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Decision
	for _, d := range s.data {
		if !d.Timestamp.Before(start) && !d.Timestamp.After(end) {
			copy := *d
			result = append(result, &copy)
		}
	}

	sortDecisionsAsc(result)
	return result, nil
}

// GetBySymbol retrieves all decisions for a symbol, newest first.
func (s *DecisionStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Decision
	for _, d := range s.data {
		if d.Symbol == symbol {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result, nil
}

// GetAll retrieves all decisions ordered by timestamp ASC.
func (s *DecisionStore) GetAll(_ context.Context) ([]*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Decision, 0, len(s.data))
	for _, d := range s.data {
		copy := *d
		result = append(result, &copy)
	}

	sortDecisionsAsc(result)
	return result, nil
}

func sortDecisionsAsc(decisions []*domain.Decision) {
	sort.Slice(decisions, func(i, j int) bool {
		if !decisions[i].Timestamp.Equal(decisions[j].Timestamp) {
			return decisions[i].Timestamp.Before(decisions[j].Timestamp)
		}
		return decisions[i].ID < decisions[j].ID
	})
}
