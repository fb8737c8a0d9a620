package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"covered-call-lab/internal/domain"
)

// Stats summarizes the whole decision log.
type Stats struct {
	TotalDecisions int `json:"total_decisions"`
	Taken          int `json:"taken"`
	Passed         int `json:"passed"`
	Pending        int `json:"pending"`
	Completed      int `json:"completed"`
	Wins           int `json:"wins"` // WIN plus EXPIRED_WORTHLESS

	TakeRate float64 `json:"take_rate"` // taken / total shown
	WinRate  float64 `json:"win_rate"`  // wins / completed

	// TotalReturn is realized dollars across contracts; AvgReturn is the
	// per-share mean over completed trades.
	TotalReturn float64 `json:"total_return"`
	AvgReturn   float64 `json:"avg_return"`
}

// Stats computes take-rate and win-rate over the full decision log.
func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	decisions, err := t.decisions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	s := &Stats{TotalDecisions: len(decisions)}
	var returnSum float64

	for _, d := range decisions {
		switch d.Decision {
		case domain.DecisionTake:
			s.Taken++
		case domain.DecisionPass:
			s.Passed++
		default:
			s.Pending++
		}
		if !d.Completed() {
			continue
		}
		s.Completed++
		if *d.Outcome == domain.OutcomeWin || *d.Outcome == domain.OutcomeExpiredWorthless {
			s.Wins++
		}
		if d.ActualReturn != nil {
			returnSum += *d.ActualReturn
			s.TotalReturn += *d.ActualReturn * float64(d.Contracts) * domain.SharesPerContract
		}
	}

	if s.TotalDecisions > 0 {
		s.TakeRate = float64(s.Taken) / float64(s.TotalDecisions)
	}
	if s.Completed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Completed)
		s.AvgReturn = returnSum / float64(s.Completed)
	}
	return s, nil
}

// Bucket is one cell of the pattern analysis.
type Bucket struct {
	Dimension string  `json:"dimension"`
	Range     string  `json:"range"`
	Samples   int     `json:"samples"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"win_rate"`
}

// PatternReport grades the scanner's heuristics against realized
// outcomes. Best holds buckets with enough samples and a win rate worth
// imitating.
type PatternReport struct {
	Buckets []Bucket `json:"buckets"`
	Best    []Bucket `json:"best_characteristics"`
}

// Pattern-analysis surfacing thresholds.
const (
	patternMinSamples = 5
	patternMinWinRate = 0.70
)

// PatternAnalysis buckets completed trades by the inputs the scanner
// scored them on and reports win rate per bucket.
func (t *Tracker) PatternAnalysis(ctx context.Context) (*PatternReport, error) {
	decisions, err := t.decisions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	type cell struct{ samples, wins int }
	cells := make(map[string]*cell)

	bump := func(dimension, rng string, win bool) {
		key := dimension + "|" + rng
		c, ok := cells[key]
		if !ok {
			c = &cell{}
			cells[key] = c
		}
		c.samples++
		if win {
			c.wins++
		}
	}

	for _, d := range decisions {
		if !d.Completed() {
			continue
		}
		win := *d.Outcome == domain.OutcomeWin || *d.Outcome == domain.OutcomeExpiredWorthless

		bump("iv_rank", ivRankBucket(d.IVRank), win)
		bump("delta", deltaBucket(d.Delta), win)
		bump("dte", dteBucket(d.DaysToExp), win)
		bump("yield", yieldBucket(d.StaticReturnMonthly), win)
		bump("growth_score", growthBucket(d.GrowthScore), win)
	}

	report := &PatternReport{}
	for key, c := range cells {
		dimension, rng, _ := strings.Cut(key, "|")
		b := Bucket{
			Dimension: dimension,
			Range:     rng,
			Samples:   c.samples,
			Wins:      c.wins,
			WinRate:   float64(c.wins) / float64(c.samples),
		}
		report.Buckets = append(report.Buckets, b)
		if b.Samples >= patternMinSamples && b.WinRate > patternMinWinRate {
			report.Best = append(report.Best, b)
		}
	}

	sort.Slice(report.Buckets, func(i, j int) bool {
		if report.Buckets[i].Dimension != report.Buckets[j].Dimension {
			return report.Buckets[i].Dimension < report.Buckets[j].Dimension
		}
		return report.Buckets[i].Range < report.Buckets[j].Range
	})
	sort.Slice(report.Best, func(i, j int) bool {
		return report.Best[i].WinRate > report.Best[j].WinRate
	})
	return report, nil
}

func ivRankBucket(v float64) string {
	switch {
	case v < 30:
		return "under 30"
	case v < 50:
		return "30-50"
	case v < 70:
		return "50-70"
	default:
		return "70 plus"
	}
}

func deltaBucket(v float64) string {
	switch {
	case v < 0.20:
		return "under 0.20"
	case v < 0.30:
		return "0.20-0.30"
	default:
		return "0.30 plus"
	}
}

func dteBucket(v int) string {
	switch {
	case v < 30:
		return "under 30"
	case v < 40:
		return "30-40"
	default:
		return "40 plus"
	}
}

func yieldBucket(v float64) string {
	switch {
	case v < 0.02:
		return "under 2pct"
	case v < 0.03:
		return "2-3pct"
	default:
		return "3pct plus"
	}
}

func growthBucket(v float64) string {
	switch {
	case v < 25:
		return "under 25"
	case v < 50:
		return "25-50"
	default:
		return "50 plus"
	}
}

// PendingOutcomes lists TAKE decisions whose expiration passed at least
// daysPastExp days ago with no outcome recorded yet.
func (t *Tracker) PendingOutcomes(ctx context.Context, daysPastExp int) ([]*domain.Decision, error) {
	decisions, err := t.decisions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	cutoff := t.now().UTC().AddDate(0, 0, -daysPastExp)
	var out []*domain.Decision
	for _, d := range decisions {
		if d.Decision != domain.DecisionTake || d.Completed() {
			continue
		}
		if d.Expiration.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

// RecentDecisions lists decisions logged within the trailing window.
func (t *Tracker) RecentDecisions(ctx context.Context, days int) ([]*domain.Decision, error) {
	now := t.now().UTC()
	decisions, err := t.decisions.GetByTimeRange(ctx, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	return decisions, nil
}

// SymbolStats is per-symbol decision history.
type SymbolStats struct {
	Symbol      string  `json:"symbol"`
	Decisions   int     `json:"decisions"`
	Taken       int     `json:"taken"`
	Completed   int     `json:"completed"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
	TotalReturn float64 `json:"total_return"` // dollars
}

// SymbolPerformance aggregates the log per symbol, sorted by realized
// return, best first.
func (t *Tracker) SymbolPerformance(ctx context.Context) ([]*SymbolStats, error) {
	decisions, err := t.decisions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	bySymbol := make(map[string]*SymbolStats)
	for _, d := range decisions {
		s, ok := bySymbol[d.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: d.Symbol}
			bySymbol[d.Symbol] = s
		}
		s.Decisions++
		if d.Decision == domain.DecisionTake {
			s.Taken++
		}
		if !d.Completed() {
			continue
		}
		s.Completed++
		if *d.Outcome == domain.OutcomeWin || *d.Outcome == domain.OutcomeExpiredWorthless {
			s.Wins++
		}
		if d.ActualReturn != nil {
			s.TotalReturn += *d.ActualReturn * float64(d.Contracts) * domain.SharesPerContract
		}
	}

	out := make([]*SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		if s.Completed > 0 {
			s.WinRate = float64(s.Wins) / float64(s.Completed)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalReturn > out[j].TotalReturn
	})
	return out, nil
}
