package domain

import "time"

// OpenTrade is an active covered call created from a TAKE decision.
// Distinct from Decision because it drives monitoring: the 21-50-7
// engine re-evaluates every open trade on each pass.
type OpenTrade struct {
	ID         string
	DecisionID string // originating Decision, empty for manual entries

	Symbol     string
	Strike     float64
	Expiration time.Time

	Premium              float64 // entry credit per share
	Contracts            int
	UnderlyingPriceEntry float64
	OriginalDTE          int
	EntryDate            time.Time

	// Close-out fields, set once when the trade terminates.
	Closed      bool
	ClosedDate  *time.Time
	ClosePrice  *float64 // per share paid to close, 0 for expiration
	CloseProfit *float64 // per share realized
	Outcome     *Outcome
}

// DaysToExp returns calendar days until expiration as of now.
func (t *OpenTrade) DaysToExp(now time.Time) int {
	return int(t.Expiration.Sub(now).Hours() / 24)
}
