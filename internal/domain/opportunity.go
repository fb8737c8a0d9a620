package domain

import "time"

// Opportunity is one (symbol, strike, expiration) covered-call candidate.
// All scores are derived deterministically from the other fields.
// Generated fresh each scan; persists only as a Decision once shown.
type Opportunity struct {
	Symbol       string
	CurrentPrice float64
	Strike       float64
	Expiration   time.Time
	DaysToExp    int

	Premium float64 // mid of bid/ask
	Bid     float64
	Ask     float64

	Delta             float64
	ImpliedVolatility float64
	IVRank            float64
	Volume            int64
	OpenInterest      int64

	StaticReturnMonthly   float64 // fractional per month
	IfCalledReturnMonthly float64 // fractional per month

	WinProbability  float64 // 0-100
	ConfidenceScore float64 // 0-100
	GrowthScore     float64
	Strategy        Strategy

	EarningsBeforeExp bool
	MaxContracts      int
}

// PremiumPerContract returns the dollar credit for selling one contract.
func (o *Opportunity) PremiumPerContract() float64 {
	return o.Premium * SharesPerContract
}

// OTMDistance returns strike distance above spot, fractional.
func (o *Opportunity) OTMDistance() float64 {
	if o.CurrentPrice <= 0 {
		return 0
	}
	return (o.Strike - o.CurrentPrice) / o.CurrentPrice
}
