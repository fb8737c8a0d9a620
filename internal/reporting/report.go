package reporting

import "time"

// Report is a point-in-time performance summary of the decision log.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	Summary SummarySection

	// Pattern buckets (sorted by dimension, range)
	Patterns []PatternRow
	Best     []PatternRow

	// Per-symbol results (sorted by total return descending)
	Symbols []SymbolRow

	// Taken trades past expiration with no outcome yet
	PendingOutcomes []PendingRow
}

// SummarySection holds headline decision and outcome counts.
type SummarySection struct {
	TotalDecisions int
	Taken          int
	Passed         int
	Pending        int
	Completed      int
	Wins           int
	TakeRate       float64
	WinRate        float64
	TotalReturn    float64 // dollars
	AvgReturn      float64 // per share
	OpenTrades     int
}

// PatternRow is one characteristic bucket with its win rate.
type PatternRow struct {
	Dimension string
	Range     string
	Samples   int
	Wins      int
	WinRate   float64
}

// SymbolRow is one symbol's decision history.
type SymbolRow struct {
	Symbol      string
	Decisions   int
	Taken       int
	Completed   int
	Wins        int
	WinRate     float64
	TotalReturn float64 // dollars
}

// PendingRow is a taken trade awaiting an outcome.
type PendingRow struct {
	DecisionID string
	Symbol     string
	Strike     float64
	Expiration time.Time
	Premium    float64
	Contracts  int
}
