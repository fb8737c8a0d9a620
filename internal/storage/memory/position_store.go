package memory

import (
	"context"
	"sort"
	"sync"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[domain.PositionKey]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[domain.PositionKey]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the key exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.Symbol == "" || p.AccountType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Key()]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.Key()] = &copy
	return nil
}

// Update replaces the position stored under key. A key change removes
// the old entry; colliding with an existing key fails.
func (s *PositionStore) Update(_ context.Context, key domain.PositionKey, p *domain.Position) error {
	if p == nil || p.Symbol == "" || p.AccountType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	newKey := p.Key()
	if newKey != key {
		if _, taken := s.data[newKey]; taken {
			return storage.ErrDuplicateKey
		}
		delete(s.data, key)
	}

	copy := *p
	s.data[newKey] = &copy
	return nil
}

// Delete removes a position. Returns ErrNotFound if the key does not exist.
func (s *PositionStore) Delete(_ context.Context, key domain.PositionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, key)
	return nil
}

// GetByKey retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByKey(_ context.Context, key domain.PositionKey) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetAll retrieves all positions, ordered by symbol then account.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Symbol != result[j].Symbol {
			return result[i].Symbol < result[j].Symbol
		}
		return result[i].AccountType < result[j].AccountType
	})

	return result, nil
}

// GetByAccount retrieves all positions in one account type.
func (s *PositionStore) GetByAccount(_ context.Context, account domain.AccountType) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.AccountType == account {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}
