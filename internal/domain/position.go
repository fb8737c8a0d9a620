package domain

import "time"

// AccountType identifies the brokerage account a position is held in.
type AccountType string

// Account types
const (
	AccountTaxable     AccountType = "taxable"
	AccountRoth        AccountType = "roth"
	AccountTraditional AccountType = "traditional"

	// AccountMultiple labels an aggregated eligibility view that spans
	// more than one account for the same symbol. Never persisted.
	AccountMultiple AccountType = "multiple"
)

// SharesPerContract is the equity deliverable of one option contract.
const SharesPerContract = 100

// Position represents owned shares of one symbol in one account.
// Uniquely identified by (symbol, account_type).
type Position struct {
	Symbol      string      // normalized uppercase
	Shares      int         // >= 0
	CostBasis   float64     // per-share, > 0 when shares > 0
	AccountType AccountType
	Notes       string
	CreatedAt   time.Time
}

// Key returns the storage key for this position: (symbol, account_type).
func (p *Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, AccountType: p.AccountType}
}

// Contracts returns how many covered calls the position can back.
func (p *Position) Contracts() int {
	return p.Shares / SharesPerContract
}

// Eligible reports whether the position can back at least one covered call.
func (p *Position) Eligible(minShares int) bool {
	return p.Shares >= minShares
}

// PositionKey is the composite primary key of a Position.
type PositionKey struct {
	Symbol      string
	AccountType AccountType
}

// String renders the key as "SYMBOL/account".
func (k PositionKey) String() string {
	return k.Symbol + "/" + string(k.AccountType)
}
