package domain

import "time"

// Quote is a normalized market snapshot for one symbol.
// Optional fields are pointers; the market-data normalizer substitutes
// documented defaults before a quote reaches any scoring code.
type Quote struct {
	Symbol string
	Price  float64
	Volume int64

	MA50  float64 // 50-day moving average
	MA200 float64 // 200-day moving average
	RSI   float64
	Beta  float64

	Change1Month  float64 // 1-month price change, fractional (0.30 = +30%)
	Volatility30D float64 // annualized 30-day historical vol, fractional

	High52Week float64
	Low52Week  float64

	MarketCap     float64
	PERatio       float64
	RevenueGrowth float64 // fractional
	AnalystRating float64 // 1 strong buy .. 5 strong sell

	IVRank float64 // 0-100

	NextEarningsDate *time.Time

	// Defaulted records which optional fields were substituted by the
	// normalizer, keyed by field name.
	Defaulted []string
}

// OptionContract is one strike/expiration entry from an option chain.
type OptionContract struct {
	Strike            float64
	Expiration        time.Time
	Bid               float64
	Ask               float64
	Volume            int64
	OpenInterest      int64
	ImpliedVolatility float64 // fractional
	Delta             float64 // 0 when unknown
	Theta             float64
	IVRank            float64 // 0-100
}

// Mid returns the bid/ask midpoint.
func (c *OptionContract) Mid() float64 {
	return (c.Bid + c.Ask) / 2
}

// OptionChain maps expiration date (yyyy-mm-dd) to the contracts listed
// for that expiration, ordered by strike ascending.
type OptionChain map[string][]OptionContract
