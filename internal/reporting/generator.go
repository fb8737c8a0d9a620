package reporting

import (
	"context"
	"sort"
	"time"

	"covered-call-lab/internal/storage"
	"covered-call-lab/internal/tracker"
)

// pendingGraceDays is how far past expiration a taken trade may sit
// before the report nags for an outcome.
const pendingGraceDays = 1

// Generator produces performance reports from the decision log.
type Generator struct {
	tracker *tracker.Tracker
	trades  storage.OpenTradeStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(t *tracker.Tracker, trades storage.OpenTradeStore) *Generator {
	return &Generator{
		tracker: t,
		trades:  trades,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete performance report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	stats, err := g.tracker.Stats(ctx)
	if err != nil {
		return nil, err
	}

	open, err := g.trades.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	patterns, err := g.tracker.PatternAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	symbols, err := g.tracker.SymbolPerformance(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := g.tracker.PendingOutcomes(ctx, pendingGraceDays)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		Summary: SummarySection{
			TotalDecisions: stats.TotalDecisions,
			Taken:          stats.Taken,
			Passed:         stats.Passed,
			Pending:        stats.Pending,
			Completed:      stats.Completed,
			Wins:           stats.Wins,
			TakeRate:       stats.TakeRate,
			WinRate:        stats.WinRate,
			TotalReturn:    stats.TotalReturn,
			AvgReturn:      stats.AvgReturn,
			OpenTrades:     len(open),
		},
		Patterns: patternRows(patterns.Buckets),
		Best:     patternRows(patterns.Best),
	}

	for _, s := range symbols {
		r.Symbols = append(r.Symbols, SymbolRow{
			Symbol:      s.Symbol,
			Decisions:   s.Decisions,
			Taken:       s.Taken,
			Completed:   s.Completed,
			Wins:        s.Wins,
			WinRate:     s.WinRate,
			TotalReturn: s.TotalReturn,
		})
	}

	for _, d := range pending {
		r.PendingOutcomes = append(r.PendingOutcomes, PendingRow{
			DecisionID: d.ID,
			Symbol:     d.Symbol,
			Strike:     d.Strike,
			Expiration: d.Expiration,
			Premium:    d.Premium,
			Contracts:  d.Contracts,
		})
	}
	sort.Slice(r.PendingOutcomes, func(i, j int) bool {
		if !r.PendingOutcomes[i].Expiration.Equal(r.PendingOutcomes[j].Expiration) {
			return r.PendingOutcomes[i].Expiration.Before(r.PendingOutcomes[j].Expiration)
		}
		return r.PendingOutcomes[i].Symbol < r.PendingOutcomes[j].Symbol
	})

	return r, nil
}

// patternRows converts tracker buckets into sorted report rows.
func patternRows(buckets []tracker.Bucket) []PatternRow {
	rows := make([]PatternRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, PatternRow{
			Dimension: b.Dimension,
			Range:     b.Range,
			Samples:   b.Samples,
			Wins:      b.Wins,
			WinRate:   b.WinRate,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dimension != rows[j].Dimension {
			return rows[i].Dimension < rows[j].Dimension
		}
		return rows[i].Range < rows[j].Range
	})
	return rows
}
