package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

func TestOpenTradeStore_InsertAndGetActive(t *testing.T) {
	store := NewOpenTradeStore()
	ctx := context.Background()

	near := &domain.OpenTrade{
		ID:         "t1",
		Symbol:     "SPY",
		Strike:     470,
		Expiration: time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC),
		Premium:    3.10,
		Contracts:  2,
		EntryDate:  time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	far := &domain.OpenTrade{
		ID:         "t2",
		Symbol:     "AMD",
		Strike:     110,
		Expiration: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Premium:    2.40,
		Contracts:  1,
		EntryDate:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}

	if err := store.Insert(ctx, far); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, near); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	active, err := store.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active trades, got %d", len(active))
	}
	if active[0].ID != "t1" {
		t.Errorf("Expected nearest expiration first, got %s", active[0].ID)
	}
}

func TestOpenTradeStore_CloseOnce(t *testing.T) {
	store := NewOpenTradeStore()
	ctx := context.Background()

	trade := &domain.OpenTrade{
		ID:         "t1",
		Symbol:     "SPY",
		Strike:     470,
		Expiration: time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC),
		Premium:    3.10,
		Contracts:  2,
		EntryDate:  time.Now(),
	}
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	closed := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Close(ctx, "t1", 1.50, 1.60, domain.OutcomeClosedEarly, closed); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := store.Close(ctx, "t1", 1.50, 1.60, domain.OutcomeClosedEarly, closed)
	if !errors.Is(err, storage.ErrOutcomeRecorded) {
		t.Errorf("Expected ErrOutcomeRecorded on double close, got %v", err)
	}

	active, _ := store.GetActive(ctx)
	if len(active) != 0 {
		t.Errorf("Closed trade still active: %d", len(active))
	}

	got, _ := store.GetByID(ctx, "t1")
	if !got.Closed || got.CloseProfit == nil || *got.CloseProfit != 1.60 {
		t.Errorf("Close-out fields not recorded: %+v", got)
	}
}

func TestOpenTradeStore_NotFound(t *testing.T) {
	store := NewOpenTradeStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	err = store.Close(ctx, "nonexistent", 1, 1, domain.OutcomeWin, time.Now())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on close, got %v", err)
	}
}
