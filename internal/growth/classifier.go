package growth

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"covered-call-lab/internal/domain"
)

// Config tunes the classifier. Zero values fall back to the defaults
// in DefaultConfig; override maps replace, not extend, the built-ins.
type Config struct {
	// Overrides maps symbol to a curated base score.
	Overrides map[string]float64

	// Composite weights for computed mode. Must sum to 1.
	MomentumWeight     float64
	VolatilityWeight   float64
	FundamentalsWeight float64
	TechnicalsWeight   float64

	// PriorWeight is the share of the final computed score taken by
	// the market-cap prior; the composite takes the rest.
	PriorWeight float64

	// Market-cap priors and the boundaries between cap classes, in dollars.
	SmallCapPrior float64
	MidCapPrior   float64
	LargeCapPrior float64
	SmallCapMax   float64
	MidCapMax     float64
}

// DefaultConfig returns the standard classifier tuning.
func DefaultConfig() Config {
	return Config{
		Overrides:          DefaultOverrides(),
		MomentumWeight:     0.30,
		VolatilityWeight:   0.25,
		FundamentalsWeight: 0.25,
		TechnicalsWeight:   0.20,
		PriorWeight:        0.30,
		SmallCapPrior:      60,
		MidCapPrior:        50,
		LargeCapPrior:      30,
		SmallCapMax:        2e9,
		MidCapMax:          10e9,
	}
}

// DefaultOverrides returns the curated symbol scores. High-growth names
// land 60-85, value and income names 15-35.
func DefaultOverrides() map[string]float64 {
	return map[string]float64{
		// Growth names: protect the upside, sell calls carefully or not at all.
		"PLTR": 85, "TSLA": 80, "NVDA": 85, "AMD": 75, "NET": 80,
		"DDOG": 75, "SNOW": 80, "CRWD": 75, "ABNB": 70, "COIN": 75,
		"SOFI": 70, "UPST": 75, "RBLX": 70, "U": 75, "SQ": 70,
		"SHOP": 75, "ROKU": 65, "ZM": 60, "ARKK": 70,

		// Value and income names: prime covered-call candidates.
		"T": 15, "VZ": 15, "XOM": 20, "CVX": 20, "IBM": 20,
		"INTC": 25, "F": 20, "GM": 20, "BAC": 25, "WFC": 25,
		"JPM": 30, "JNJ": 25, "PG": 25, "KO": 20, "PEP": 25,
		"MCD": 25, "WMT": 30, "HD": 30, "XPO": 35, "HWM": 25,
	}
}

// Classifier scores symbols for growth potential on a 0-100 scale.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier. A zero Config adopts the defaults.
func NewClassifier(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.Overrides == nil {
		cfg.Overrides = def.Overrides
	}
	if cfg.MomentumWeight+cfg.VolatilityWeight+cfg.FundamentalsWeight+cfg.TechnicalsWeight == 0 {
		cfg.MomentumWeight = def.MomentumWeight
		cfg.VolatilityWeight = def.VolatilityWeight
		cfg.FundamentalsWeight = def.FundamentalsWeight
		cfg.TechnicalsWeight = def.TechnicalsWeight
	}
	if cfg.PriorWeight == 0 {
		cfg.PriorWeight = def.PriorWeight
	}
	if cfg.SmallCapPrior == 0 {
		cfg.SmallCapPrior = def.SmallCapPrior
		cfg.MidCapPrior = def.MidCapPrior
		cfg.LargeCapPrior = def.LargeCapPrior
	}
	if cfg.SmallCapMax == 0 {
		cfg.SmallCapMax = def.SmallCapMax
		cfg.MidCapMax = def.MidCapMax
	}
	return &Classifier{cfg: cfg}
}

// Score assesses one symbol against a market snapshot. Symbols in the
// override table use the curated score with a small variance adjustment;
// everything else is scored from the snapshot.
func (c *Classifier) Score(symbol string, q *domain.Quote) *domain.GrowthAssessment {
	symbol = strings.ToUpper(symbol)

	if base, ok := c.cfg.Overrides[symbol]; ok {
		score := clamp(base+varianceAdjustment(q), 0, 100)
		return &domain.GrowthAssessment{
			Symbol:          symbol,
			TotalScore:      score,
			Strategy:        domain.StrategyForScore(score),
			ProtectPosition: score >= 75,
			Confidence:      domain.ConfidenceHigh,
		}
	}

	return c.computed(symbol, q)
}

// BatchAnalyze scores each symbol against its quote. Symbols with a nil
// quote are still scored; they just degrade to LOW confidence.
func (c *Classifier) BatchAnalyze(quotes map[string]*domain.Quote) map[string]*domain.GrowthAssessment {
	out := make(map[string]*domain.GrowthAssessment, len(quotes))
	for symbol, q := range quotes {
		out[strings.ToUpper(symbol)] = c.Score(symbol, q)
	}
	return out
}

func (c *Classifier) computed(symbol string, q *domain.Quote) *domain.GrowthAssessment {
	a := &domain.GrowthAssessment{Symbol: symbol, Confidence: domain.ConfidenceLow}

	prior := c.cfg.MidCapPrior
	if q != nil && q.MarketCap > 0 {
		switch {
		case q.MarketCap < c.cfg.SmallCapMax:
			prior = c.cfg.SmallCapPrior
		case q.MarketCap < c.cfg.MidCapMax:
			prior = c.cfg.MidCapPrior
		default:
			prior = c.cfg.LargeCapPrior
		}
	}

	a.MomentumScore = momentumScore(q)
	a.VolatilityScore = volatilityScore(q)
	a.FundamentalsScore = fundamentalsScore(q)
	a.TechnicalsScore = technicalsScore(q)

	composite := a.MomentumScore*c.cfg.MomentumWeight +
		a.VolatilityScore*c.cfg.VolatilityWeight +
		a.FundamentalsScore*c.cfg.FundamentalsWeight +
		a.TechnicalsScore*c.cfg.TechnicalsWeight

	a.TotalScore = clamp(prior*c.cfg.PriorWeight+composite*(1-c.cfg.PriorWeight), 0, 100)
	a.Strategy = domain.StrategyForScore(a.TotalScore)
	a.ProtectPosition = a.TotalScore >= 75
	if allInputsPresent(q) {
		a.Confidence = domain.ConfidenceMedium
	}
	return a
}

// varianceAdjustment nudges an override score for recent price action:
// a one-month move of +30% adds 10, -20% subtracts 10, and 30-day
// volatility outside the 20-60% band shifts it 5 either way.
func varianceAdjustment(q *domain.Quote) float64 {
	if q == nil {
		return 0
	}
	var adj float64
	switch {
	case q.Change1Month >= 0.30:
		adj += 10
	case q.Change1Month <= -0.20:
		adj -= 10
	}
	switch {
	case q.Volatility30D > 0.60:
		adj += 5
	case q.Volatility30D > 0 && q.Volatility30D < 0.20:
		adj -= 5
	}
	return adj
}

// momentumScore blends trend vs the 50/200-day moving averages, the
// one-month change, and RSI into [0,100]. Neutral inputs score 50.
func momentumScore(q *domain.Quote) float64 {
	if q == nil || q.Price <= 0 {
		return 50
	}
	score := 50.0
	if q.MA50 > 0 {
		if q.Price > q.MA50 {
			score += 12.5
		} else {
			score -= 12.5
		}
	}
	if q.MA200 > 0 {
		if q.Price > q.MA200 {
			score += 12.5
		} else {
			score -= 12.5
		}
	}
	score += clamp(q.Change1Month*100, -20, 20)
	if q.RSI > 0 {
		score += (q.RSI - 50) * 0.3
	}
	return clamp(score, 0, 100)
}

// volatilityScore maps realized volatility and beta into [0,100]; more
// volatile names read as more growth-like.
func volatilityScore(q *domain.Quote) float64 {
	if q == nil {
		return 50
	}
	vol := 50.0
	if q.Volatility30D > 0 {
		vol = clamp(q.Volatility30D*100*1.25, 0, 100)
	}
	beta := 50.0
	if q.Beta > 0 {
		beta = clamp(q.Beta*50, 0, 100)
	}
	return clamp(vol*0.6+beta*0.4, 0, 100)
}

// fundamentalsScore averages revenue growth, P/E posture, and analyst
// rating. Unavailable inputs drop out of the average.
func fundamentalsScore(q *domain.Quote) float64 {
	if q == nil {
		return 50
	}
	var sum float64
	var n int

	if q.RevenueGrowth != 0 {
		sum += clamp(50+q.RevenueGrowth*200, 0, 100)
		n++
	}
	if q.PERatio != 0 {
		if q.PERatio < 0 {
			// Unprofitable reads growth-like.
			sum += 70
		} else {
			sum += clamp(q.PERatio*2, 0, 100)
		}
		n++
	}
	if q.AnalystRating > 0 {
		// Ratings run 1 (strong buy) to 5 (sell).
		sum += clamp((5-q.AnalystRating)/4*100, 0, 100)
		n++
	}

	if n == 0 {
		return 50
	}
	return sum / float64(n)
}

// technicalsScore is the price's position inside its 52-week range.
func technicalsScore(q *domain.Quote) float64 {
	if q == nil || q.High52Week <= q.Low52Week || q.Low52Week <= 0 {
		return 50
	}
	return clamp((q.Price-q.Low52Week)/(q.High52Week-q.Low52Week)*100, 0, 100)
}

func allInputsPresent(q *domain.Quote) bool {
	return q != nil &&
		q.Price > 0 &&
		q.MarketCap > 0 &&
		q.MA50 > 0 && q.MA200 > 0 &&
		q.RSI > 0 &&
		q.Volatility30D > 0 &&
		q.Beta > 0 &&
		q.High52Week > q.Low52Week && q.Low52Week > 0 &&
		len(q.Defaulted) == 0
}

// Explain renders an assessment as human-readable lines.
func Explain(a *domain.GrowthAssessment) []string {
	lines := []string{
		fmt.Sprintf("%s: growth score %.0f/100 (%s, %s confidence)", a.Symbol, a.TotalScore, a.Strategy, a.Confidence),
	}
	switch a.Strategy {
	case domain.StrategyAggressive:
		lines = append(lines, "strike band: ATM to +3% OTM, harvest premium aggressively")
	case domain.StrategyModerate:
		lines = append(lines, "strike band: +2% to +7% OTM")
	case domain.StrategyConservative:
		lines = append(lines, "strike band: +5% to +12% OTM, leave room to run")
	case domain.StrategyProtect:
		lines = append(lines, "no covered calls: upside worth more than premium")
	}
	if a.Confidence == domain.ConfidenceHigh {
		lines = append(lines, "scored from the curated override table")
		return lines
	}
	subs := []struct {
		name  string
		value float64
	}{
		{"momentum", a.MomentumScore},
		{"volatility", a.VolatilityScore},
		{"fundamentals", a.FundamentalsScore},
		{"technicals", a.TechnicalsScore},
	}
	for _, s := range subs {
		lines = append(lines, fmt.Sprintf("  %s: %.0f/100", s.name, s.value))
	}
	return lines
}

// SortedOverrideSymbols returns the override table's symbols in order,
// for display and debugging.
func SortedOverrideSymbols(overrides map[string]float64) []string {
	symbols := make([]string, 0, len(overrides))
	for s := range overrides {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
