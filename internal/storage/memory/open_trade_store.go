package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// OpenTradeStore is an in-memory implementation of storage.OpenTradeStore.
type OpenTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OpenTrade // keyed by trade id
}

// NewOpenTradeStore creates a new in-memory open trade store.
func NewOpenTradeStore() *OpenTradeStore {
	return &OpenTradeStore{
		data: make(map[string]*domain.OpenTrade),
	}
}

// Compile-time interface check.
var _ storage.OpenTradeStore = (*OpenTradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
func (s *OpenTradeStore) Insert(_ context.Context, t *domain.OpenTrade) error {
	if t == nil || t.ID == "" || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// Close records the close-out once.
func (s *OpenTradeStore) Close(_ context.Context, id string, closePrice, profit float64, outcome domain.Outcome, closedDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if t.Closed {
		return storage.ErrOutcomeRecorded
	}

	t.Closed = true
	t.ClosedDate = &closedDate
	t.ClosePrice = &closePrice
	t.CloseProfit = &profit
	t.Outcome = &outcome
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if not exists.
func (s *OpenTradeStore) GetByID(_ context.Context, id string) (*domain.OpenTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetActive retrieves all open trades ordered by expiration ASC.
func (s *OpenTradeStore) GetActive(_ context.Context) ([]*domain.OpenTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OpenTrade
	for _, t := range s.data {
		if !t.Closed {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Expiration.Equal(result[j].Expiration) {
			return result[i].Expiration.Before(result[j].Expiration)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetAll retrieves all trades ordered by entry date ASC.
func (s *OpenTradeStore) GetAll(_ context.Context) ([]*domain.OpenTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.OpenTrade, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EntryDate.Equal(result[j].EntryDate) {
			return result[i].EntryDate.Before(result[j].EntryDate)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}
