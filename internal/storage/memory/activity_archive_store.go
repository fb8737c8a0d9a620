package memory

import (
	"context"
	"sync"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// ActivityArchiveStore is an in-memory implementation of
// storage.ActivityArchiveStore, for development and tests.
type ActivityArchiveStore struct {
	mu      sync.RWMutex
	records []*domain.RawActivityRecord

	now func() time.Time // injectable for tests
}

// NewActivityArchiveStore creates a new in-memory activity archive.
func NewActivityArchiveStore() *ActivityArchiveStore {
	return &ActivityArchiveStore{now: time.Now}
}

// Compile-time interface check.
var _ storage.ActivityArchiveStore = (*ActivityArchiveStore)(nil)

// InsertBulk appends raw feed records. Duplicates are tolerated.
func (s *ActivityArchiveStore) InsertBulk(_ context.Context, records []*domain.RawActivityRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		copy := *r
		s.records = append(s.records, &copy)
	}
	return nil
}

// AverageVolume returns mean option volume for a symbol over the
// trailing window.
func (s *ActivityArchiveStore) AverageVolume(_ context.Context, symbol string, window time.Duration) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)

	var sum, count int64
	for _, r := range s.records {
		if r.Symbol == symbol && !r.Timestamp.Before(cutoff) {
			sum += r.Volume
			count++
		}
	}
	if count == 0 {
		return 0, storage.ErrNotFound
	}
	return float64(sum) / float64(count), nil
}

// CountBySymbol returns archived record counts per symbol within [start, end].
func (s *ActivityArchiveStore) CountBySymbol(_ context.Context, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, r := range s.records {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			counts[r.Symbol]++
		}
	}
	return counts, nil
}
