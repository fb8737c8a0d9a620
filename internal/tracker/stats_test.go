package tracker

import (
	"context"
	"math"
	"testing"

	"covered-call-lab/internal/domain"
)

// seedLog logs a small history: six TAKEs (four winners, two losers)
// and four PASSes.
func seedLog(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		o := opportunity(symbolFor(i))
		o.Strike = 105 + float64(i) // unique ids per decision
		o.IVRank = 60               // all land in the 50-70 bucket

		action := domain.DecisionTake
		if i >= 6 {
			action = domain.DecisionPass
		}
		contracts := 0
		if action == domain.DecisionTake {
			contracts = 1
		}

		d, err := tr.LogOpportunity(ctx, o, action, contracts, "")
		if err != nil {
			t.Fatalf("LogOpportunity(%d) error = %v", i, err)
		}

		if action != domain.DecisionTake {
			continue
		}
		outcome := domain.OutcomeExpiredWorthless
		if i >= 4 {
			outcome = domain.OutcomeAssigned
		}
		if _, err := tr.RecordOutcome(ctx, d.ID, outcome, nil, nil); err != nil {
			t.Fatalf("RecordOutcome(%d) error = %v", i, err)
		}
	}
}

func TestStats(t *testing.T) {
	tr := newTestTracker()
	seedLog(t, tr)

	s, err := tr.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if s.TotalDecisions != 10 || s.Taken != 6 || s.Passed != 4 {
		t.Errorf("counts = %d/%d/%d, want 10 total, 6 taken, 4 passed", s.TotalDecisions, s.Taken, s.Passed)
	}
	if s.TakeRate != 0.6 {
		t.Errorf("TakeRate = %.2f, want 0.60", s.TakeRate)
	}
	if s.Completed != 6 || s.Wins != 4 {
		t.Errorf("completed/wins = %d/%d, want 6/4", s.Completed, s.Wins)
	}
	if math.Abs(s.WinRate-4.0/6.0) > 1e-9 {
		t.Errorf("WinRate = %.4f, want 0.6667", s.WinRate)
	}
	if s.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %.2f, want positive", s.TotalReturn)
	}
}

func TestPatternAnalysis(t *testing.T) {
	tr := newTestTracker()
	seedLog(t, tr)

	report, err := tr.PatternAnalysis(context.Background())
	if err != nil {
		t.Fatalf("PatternAnalysis() error = %v", err)
	}
	if len(report.Buckets) == 0 {
		t.Fatal("no buckets produced")
	}

	// All six completed trades share the iv_rank 50-70 bucket at a 4/6
	// win rate: enough samples but not enough wins for "best".
	var ivBucket *Bucket
	for i := range report.Buckets {
		b := &report.Buckets[i]
		if b.Dimension == "iv_rank" && b.Range == "50-70" {
			ivBucket = b
		}
	}
	if ivBucket == nil {
		t.Fatal("iv_rank 50-70 bucket missing")
	}
	if ivBucket.Samples != 6 || ivBucket.Wins != 4 {
		t.Errorf("iv bucket = %d samples / %d wins, want 6/4", ivBucket.Samples, ivBucket.Wins)
	}
	for _, b := range report.Best {
		if b.WinRate <= 0.70 || b.Samples < 5 {
			t.Errorf("best bucket %s/%s below the surfacing bar: %d samples, %.0f%%", b.Dimension, b.Range, b.Samples, b.WinRate*100)
		}
	}
}

func TestPatternAnalysis_BestSurfacing(t *testing.T) {
	tr := newTestTracker()
	ctx := context.Background()

	// Five completed winners in one delta bucket: exactly at the sample
	// floor with a 100% win rate.
	for i := 0; i < 5; i++ {
		o := opportunity("XOM")
		o.Strike = 110 + float64(i)
		o.Delta = 0.15
		d, err := tr.LogOpportunity(ctx, o, domain.DecisionTake, 1, "")
		if err != nil {
			t.Fatalf("LogOpportunity() error = %v", err)
		}
		if _, err := tr.RecordOutcome(ctx, d.ID, domain.OutcomeExpiredWorthless, nil, nil); err != nil {
			t.Fatalf("RecordOutcome() error = %v", err)
		}
	}

	report, err := tr.PatternAnalysis(ctx)
	if err != nil {
		t.Fatalf("PatternAnalysis() error = %v", err)
	}

	found := false
	for _, b := range report.Best {
		if b.Dimension == "delta" && b.Range == "under 0.20" {
			found = true
		}
	}
	if !found {
		t.Errorf("Best = %+v, want the delta under-0.20 bucket surfaced", report.Best)
	}
}

func TestPendingOutcomes(t *testing.T) {
	tr := newTestTracker()
	ctx := context.Background()

	// Expired three weeks ago, never settled.
	stale := opportunity("XOM")
	stale.Expiration = trackNow.AddDate(0, 0, -21)
	staleDecision, err := tr.LogOpportunity(ctx, stale, domain.DecisionTake, 1, "")
	if err != nil {
		t.Fatalf("LogOpportunity() error = %v", err)
	}

	// Still live.
	if _, err := tr.LogOpportunity(ctx, opportunity("CVX"), domain.DecisionTake, 1, ""); err != nil {
		t.Fatalf("LogOpportunity() error = %v", err)
	}

	pending, err := tr.PendingOutcomes(ctx, 7)
	if err != nil {
		t.Fatalf("PendingOutcomes() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != staleDecision.ID {
		t.Fatalf("pending = %d entries, want just the stale trade", len(pending))
	}

	// Settling it clears the backlog.
	if _, err := tr.RecordOutcome(ctx, staleDecision.ID, domain.OutcomeExpiredWorthless, nil, nil); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if pending, _ := tr.PendingOutcomes(ctx, 7); len(pending) != 0 {
		t.Errorf("pending after settle = %d, want 0", len(pending))
	}
}

func TestRecentDecisionsAndSymbolPerformance(t *testing.T) {
	tr := newTestTracker()
	seedLog(t, tr)

	recent, err := tr.RecentDecisions(context.Background(), 7)
	if err != nil {
		t.Fatalf("RecentDecisions() error = %v", err)
	}
	if len(recent) != 10 {
		t.Errorf("len(recent) = %d, want all 10 inside the window", len(recent))
	}

	perf, err := tr.SymbolPerformance(context.Background())
	if err != nil {
		t.Fatalf("SymbolPerformance() error = %v", err)
	}
	if len(perf) != 5 {
		t.Fatalf("len(perf) = %d, want 5 symbols", len(perf))
	}
	if len(perf[0].Symbol) == 0 || perf[0].TotalReturn < perf[len(perf)-1].TotalReturn {
		t.Error("symbol performance not sorted by return descending")
	}
}
