package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

func testDecision(id string, ts time.Time) *domain.Decision {
	return &domain.Decision{
		ID:                  id,
		Timestamp:           ts,
		Symbol:              "SPY",
		CurrentPrice:        460,
		Strike:              470,
		Expiration:          ts.AddDate(0, 0, 35),
		DaysToExp:           35,
		Premium:             3.10,
		Delta:               0.25,
		ImpliedVolatility:   0.22,
		IVRank:              60,
		Volume:              500,
		OpenInterest:        2000,
		StaticReturnMonthly: 0.0058,
		WinProbability:      75,
		ConfidenceScore:     62,
		GrowthScore:         40,
		Decision:            domain.DecisionPending,
	}
}

func TestDecisionStore_Postgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	d := testDecision("d1", ts)

	require.NoError(t, store.Insert(ctx, d))
	require.ErrorIs(t, store.Insert(ctx, d), storage.ErrDuplicateKey)

	// PENDING -> TAKE
	require.NoError(t, store.SetAction(ctx, "d1", domain.DecisionTake, 2, "scanner pick"))
	require.ErrorIs(t, store.SetAction(ctx, "d1", domain.DecisionPass, 0, ""), storage.ErrInvalidInput)

	got, err := store.GetByID(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, domain.DecisionTake, got.Decision)
	require.Equal(t, 2, got.Contracts)
	require.Equal(t, "scanner pick", got.Notes)
	require.Nil(t, got.Outcome)

	// Outcome completes exactly once
	closed := ts.AddDate(0, 0, 35)
	require.NoError(t, store.CompleteOutcome(ctx, "d1", domain.OutcomeExpiredWorthless, 3.10, closed))
	require.ErrorIs(t, store.CompleteOutcome(ctx, "d1", domain.OutcomeWin, 1.0, closed), storage.ErrOutcomeRecorded)

	got, err = store.GetByID(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got.Outcome)
	require.Equal(t, domain.OutcomeExpiredWorthless, *got.Outcome)
	require.NotNil(t, got.ActualReturn)
	require.Equal(t, 3.10, *got.ActualReturn)

	// Outcome on a PASS decision is invalid
	p := testDecision("d2", ts.Add(time.Hour))
	p.Decision = domain.DecisionPass
	require.NoError(t, store.Insert(ctx, p))
	require.ErrorIs(t, store.CompleteOutcome(ctx, "d2", domain.OutcomeWin, 1, closed), storage.ErrInvalidInput)

	// Range and symbol queries
	inRange, err := store.GetByTimeRange(ctx, ts, ts.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	require.Equal(t, "d1", inRange[0].ID)

	bySymbol, err := store.GetBySymbol(ctx, "SPY")
	require.NoError(t, err)
	require.Len(t, bySymbol, 2)
	require.Equal(t, "d2", bySymbol[0].ID, "newest first")
}
