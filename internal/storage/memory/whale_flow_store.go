package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// WhaleFlowStore is an in-memory implementation of storage.WhaleFlowStore.
type WhaleFlowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WhaleFlow // keyed by flow id
}

// NewWhaleFlowStore creates a new in-memory whale flow store.
func NewWhaleFlowStore() *WhaleFlowStore {
	return &WhaleFlowStore{
		data: make(map[string]*domain.WhaleFlow),
	}
}

// Compile-time interface check.
var _ storage.WhaleFlowStore = (*WhaleFlowStore)(nil)

// Insert adds a new flow. Returns ErrDuplicateKey if id exists.
func (s *WhaleFlowStore) Insert(_ context.Context, f *domain.WhaleFlow) error {
	if f == nil || f.ID == "" || f.Symbol == "" {
		return storage.ErrInvalidInput
	}
	if !f.Followed && (f.FollowedContracts != 0 || f.FollowedCost != 0) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *f
	s.data[f.ID] = &copy
	return nil
}

// MarkFollowed records a follow with sizing.
func (s *WhaleFlowStore) MarkFollowed(_ context.Context, id string, contracts int, cost float64) error {
	if contracts <= 0 || cost <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if f.Outcome != nil {
		return storage.ErrOutcomeRecorded
	}

	f.Followed = true
	f.FollowedContracts = contracts
	f.FollowedCost = cost
	return nil
}

// RecordOutcome records P&L once, followed flows only.
func (s *WhaleFlowStore) RecordOutcome(_ context.Context, id string, outcome domain.Outcome, resultPnL float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if !f.Followed {
		return storage.ErrNotFollowed
	}
	if f.Outcome != nil {
		return storage.ErrOutcomeRecorded
	}

	f.Outcome = &outcome
	f.ResultPnL = &resultPnL
	return nil
}

// GetByID retrieves a flow. Returns ErrNotFound if not exists.
func (s *WhaleFlowStore) GetByID(_ context.Context, id string) (*domain.WhaleFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *f
	return &copy, nil
}

// GetByTimeRange retrieves flows with timestamp within [start, end].
func (s *WhaleFlowStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.WhaleFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleFlow
	for _, f := range s.data {
		if !f.Timestamp.Before(start) && !f.Timestamp.After(end) {
			copy := *f
			result = append(result, &copy)
		}
	}

	sortFlowsAsc(result)
	return result, nil
}

// GetBySymbol retrieves all flows for a symbol, newest first.
func (s *WhaleFlowStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.WhaleFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleFlow
	for _, f := range s.data {
		if f.Symbol == symbol {
			copy := *f
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result, nil
}

// GetFollowed retrieves all followed flows ordered by timestamp ASC.
func (s *WhaleFlowStore) GetFollowed(_ context.Context) ([]*domain.WhaleFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleFlow
	for _, f := range s.data {
		if f.Followed {
			copy := *f
			result = append(result, &copy)
		}
	}

	sortFlowsAsc(result)
	return result, nil
}

func sortFlowsAsc(flows []*domain.WhaleFlow) {
	sort.Slice(flows, func(i, j int) bool {
		if !flows[i].Timestamp.Equal(flows[j].Timestamp) {
			return flows[i].Timestamp.Before(flows[j].Timestamp)
		}
		return flows[i].ID < flows[j].ID
	})
}
