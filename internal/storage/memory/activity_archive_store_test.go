package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

func TestActivityArchiveStore_AverageVolume(t *testing.T) {
	store := NewActivityArchiveStore()
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	records := []*domain.RawActivityRecord{
		{Symbol: "NVDA", Timestamp: now.Add(-1 * time.Hour), Volume: 10000},
		{Symbol: "NVDA", Timestamp: now.Add(-2 * time.Hour), Volume: 20000},
		{Symbol: "NVDA", Timestamp: now.Add(-40 * 24 * time.Hour), Volume: 999999}, // outside window
		{Symbol: "AMD", Timestamp: now.Add(-1 * time.Hour), Volume: 5000},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	avg, err := store.AverageVolume(ctx, "NVDA", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("AverageVolume failed: %v", err)
	}
	if avg != 15000 {
		t.Errorf("AverageVolume mismatch: got %f, want 15000", avg)
	}

	_, err = store.AverageVolume(ctx, "TSLA", 30*24*time.Hour)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unseen symbol, got %v", err)
	}
}

func TestActivityArchiveStore_CountBySymbol(t *testing.T) {
	store := NewActivityArchiveStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	records := []*domain.RawActivityRecord{
		{Symbol: "NVDA", Timestamp: base},
		{Symbol: "NVDA", Timestamp: base.Add(time.Hour)},
		{Symbol: "AMD", Timestamp: base.Add(48 * time.Hour)}, // outside range
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	counts, err := store.CountBySymbol(ctx, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if counts["NVDA"] != 2 {
		t.Errorf("Expected 2 NVDA records, got %d", counts["NVDA"])
	}
	if _, ok := counts["AMD"]; ok {
		t.Errorf("AMD should be outside the range")
	}
}
