package domain

import "time"

// FlowType is the execution style of an institutional options order.
type FlowType string

// Flow types accepted by the whale detector.
const (
	FlowSweep      FlowType = "sweep"
	FlowBlock      FlowType = "block"
	FlowSplitBlock FlowType = "split_block"
)

// OptionType is call or put.
type OptionType string

// Option types
const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Sentiment is the directional read of a whale flow.
type Sentiment string

// Sentiment classifications
const (
	SentimentVeryBullish   Sentiment = "VERY_BULLISH"
	SentimentStrongBullish Sentiment = "STRONG_BULLISH"
	SentimentBullish       Sentiment = "BULLISH"
	SentimentVeryBearish   Sentiment = "VERY_BEARISH"
	SentimentStrongBearish Sentiment = "STRONG_BEARISH"
	SentimentBearish       Sentiment = "BEARISH"
	SentimentNeutral       Sentiment = "NEUTRAL"
)

// Aggressiveness grades urgency by time to expiration.
type Aggressiveness string

// Aggressiveness grades
const (
	AggressivenessExtreme  Aggressiveness = "EXTREME"  // <= 7 DTE
	AggressivenessHigh     Aggressiveness = "HIGH"     // <= 21 DTE
	AggressivenessModerate Aggressiveness = "MODERATE"
)

// RawActivityRecord is one entry from the external options-activity
// feed, before whale detection. Fields mirror what vendors deliver;
// anything optional may be zero and is normalized at the boundary.
type RawActivityRecord struct {
	Timestamp       time.Time  `json:"timestamp"`
	Symbol          string     `json:"symbol"`
	UnderlyingPrice float64    `json:"underlying_price"`
	TradeType       string     `json:"trade_type"`
	OptionType      string     `json:"option_type"`
	Strike          float64    `json:"strike"`
	Expiration      time.Time  `json:"expiration"`
	Contracts       int64      `json:"contracts"`
	Premium         float64    `json:"premium"` // per contract, per share
	Bid             float64    `json:"bid"`
	Ask             float64    `json:"ask"`
	Volume          int64      `json:"volume"`
	AvgVolume       int64      `json:"avg_volume"` // 0 when unknown
	OpenInterest    int64      `json:"open_interest"`
	ExecutionSide   string     `json:"execution_side"` // "ask", "bid", "mid"
}

// TotalPremium returns the dollar value of the whole order.
func (r *RawActivityRecord) TotalPremium() float64 {
	return r.Premium * float64(r.Contracts) * SharesPerContract
}

// WhaleFlow is one detected unusual options trade.
// followed_contracts/cost stay zero unless followed; outcome and
// result_pnl are set at most once and only when followed.
type WhaleFlow struct {
	ID              string
	Timestamp       time.Time
	Symbol          string
	UnderlyingPrice float64
	FlowType        FlowType
	OptionType      OptionType
	Strike          float64
	Expiration      time.Time
	DaysToExp       int
	Contracts       int64
	PremiumPerShare float64
	TotalPremium    float64
	UnusualFactor   float64 // volume / average volume
	Sentiment       Sentiment
	Aggressiveness  Aggressiveness
	Pattern         string
	Confidence      float64 // 0-100 pattern confidence
	WhaleScore      float64 // 0-100 enhanced score

	Followed          bool
	FollowedContracts int
	FollowedCost      float64

	Outcome   *Outcome
	ResultPnL *float64
}
