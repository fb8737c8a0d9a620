package scanner

import (
	"math"
	"sort"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/growth"
)

// Config tunes the scan. DefaultConfig returns the standard thresholds.
type Config struct {
	MinDTE int
	MaxDTE int

	MaxSpreadPct    float64 // spread as a fraction of ask
	MinVolume       int64
	MinOpenInterest int64
	MinMid          float64
	MinIVRank       float64

	MinMonthlyReturn float64 // static return floor, fractional per month
	MinConfidence    float64 // opportunities must score strictly above
	ProtectCeiling   float64 // growth scores at or above skip the symbol
	MaxResults       int
}

// DefaultConfig returns the standard scan thresholds.
func DefaultConfig() Config {
	return Config{
		MinDTE:           25,
		MaxDTE:           45,
		MaxSpreadPct:     0.15,
		MinVolume:        10,
		MinOpenInterest:  10,
		MinMid:           0.10,
		MinIVRank:        30,
		MinMonthlyReturn: 0.02,
		MinConfidence:    50,
		ProtectCeiling:   75,
		MaxResults:       20,
	}
}

// Scanner finds covered-call opportunities across eligible positions.
type Scanner struct {
	cfg        Config
	classifier *growth.Classifier
	now        func() time.Time
}

// New creates a Scanner. Zero config fields adopt the defaults; a nil
// classifier gets the default tuning.
func New(cfg Config, classifier *growth.Classifier) *Scanner {
	def := DefaultConfig()
	if cfg.MinDTE == 0 && cfg.MaxDTE == 0 {
		cfg.MinDTE = def.MinDTE
		cfg.MaxDTE = def.MaxDTE
	}
	if cfg.MaxSpreadPct == 0 {
		cfg.MaxSpreadPct = def.MaxSpreadPct
	}
	if cfg.MinVolume == 0 {
		cfg.MinVolume = def.MinVolume
	}
	if cfg.MinOpenInterest == 0 {
		cfg.MinOpenInterest = def.MinOpenInterest
	}
	if cfg.MinMid == 0 {
		cfg.MinMid = def.MinMid
	}
	if cfg.MinIVRank == 0 {
		cfg.MinIVRank = def.MinIVRank
	}
	if cfg.MinMonthlyReturn == 0 {
		cfg.MinMonthlyReturn = def.MinMonthlyReturn
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.ProtectCeiling == 0 {
		cfg.ProtectCeiling = def.ProtectCeiling
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = def.MaxResults
	}
	if classifier == nil {
		classifier = growth.NewClassifier(growth.Config{})
	}
	return &Scanner{
		cfg:        cfg,
		classifier: classifier,
		now:        time.Now,
	}
}

// Scan walks each eligible position's option chain and returns validated
// opportunities ranked by confidence, best first, capped to MaxResults.
// Positions without a quote or chain are skipped, as are symbols whose
// growth score demands protection.
func (s *Scanner) Scan(positions []*domain.Position, quotes map[string]*domain.Quote, chains map[string]domain.OptionChain) []*domain.Opportunity {
	var out []*domain.Opportunity

	for _, p := range positions {
		if p.Contracts() < 1 {
			continue
		}
		quote, ok := quotes[p.Symbol]
		if !ok || quote == nil || quote.Price <= 0 {
			continue
		}
		chain, ok := chains[p.Symbol]
		if !ok || len(chain) == 0 {
			continue
		}

		assessment := s.classifier.Score(p.Symbol, quote)
		if assessment.TotalScore >= s.cfg.ProtectCeiling {
			continue
		}

		out = append(out, s.scanSymbol(p, quote, chain, assessment)...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConfidenceScore > out[j].ConfidenceScore
	})
	if len(out) > s.cfg.MaxResults {
		out = out[:s.cfg.MaxResults]
	}
	return out
}

func (s *Scanner) scanSymbol(p *domain.Position, quote *domain.Quote, chain domain.OptionChain, assessment *domain.GrowthAssessment) []*domain.Opportunity {
	minOTM, maxOTM, allowed := strategyBand(assessment.Strategy)
	if !allowed {
		return nil
	}

	now := s.now()
	var out []*domain.Opportunity

	for expKey, contracts := range chain {
		exp, err := time.Parse("2006-01-02", expKey)
		if err != nil {
			continue
		}
		dte := daysBetween(now, exp)
		if dte < s.cfg.MinDTE || dte > s.cfg.MaxDTE {
			continue
		}

		for i := range contracts {
			c := &contracts[i]
			otm := (c.Strike - quote.Price) / quote.Price
			if otm < minOTM || otm > maxOTM {
				continue
			}
			if !s.validContract(c) {
				continue
			}

			o := s.buildOpportunity(p, quote, c, exp, dte, assessment)
			if o == nil {
				continue
			}
			out = append(out, o)
		}
	}
	return out
}

// validContract applies the liquidity and sanity gate.
func (s *Scanner) validContract(c *domain.OptionContract) bool {
	if c.Bid <= 0 || c.Ask <= 0 {
		return false
	}
	if (c.Ask-c.Bid)/c.Ask > s.cfg.MaxSpreadPct {
		return false
	}
	if c.Volume < s.cfg.MinVolume || c.OpenInterest < s.cfg.MinOpenInterest {
		return false
	}
	if c.Mid() < s.cfg.MinMid {
		return false
	}
	if c.IVRank < s.cfg.MinIVRank {
		return false
	}
	return true
}

func (s *Scanner) buildOpportunity(p *domain.Position, quote *domain.Quote, c *domain.OptionContract, exp time.Time, dte int, assessment *domain.GrowthAssessment) *domain.Opportunity {
	mid := c.Mid()
	monthly := 30.0 / float64(dte)

	staticReturn := mid / quote.Price * monthly
	if staticReturn < s.cfg.MinMonthlyReturn {
		return nil
	}
	ifCalled := ((c.Strike - quote.Price) + mid) / quote.Price * monthly

	winProb := winProbability(c, quote.Price, dte)
	confidence := confidenceScore(c, staticReturn, winProb, assessment.TotalScore)
	if confidence <= s.cfg.MinConfidence {
		return nil
	}

	o := &domain.Opportunity{
		Symbol:                p.Symbol,
		CurrentPrice:          quote.Price,
		Strike:                c.Strike,
		Expiration:            exp,
		DaysToExp:             dte,
		Premium:               mid,
		Bid:                   c.Bid,
		Ask:                   c.Ask,
		Delta:                 c.Delta,
		ImpliedVolatility:     c.ImpliedVolatility,
		IVRank:                c.IVRank,
		Volume:                c.Volume,
		OpenInterest:          c.OpenInterest,
		StaticReturnMonthly:   staticReturn,
		IfCalledReturnMonthly: ifCalled,
		WinProbability:        winProb,
		ConfidenceScore:       confidence,
		GrowthScore:           assessment.TotalScore,
		Strategy:              assessment.Strategy,
		MaxContracts:          p.Contracts(),
	}
	if quote.NextEarningsDate != nil {
		ed := *quote.NextEarningsDate
		o.EarningsBeforeExp = ed.After(s.now()) && ed.Before(exp)
	}
	return o
}

// winProbability estimates the chance the call expires worthless, 0-100.
// Delta is the best input when present; otherwise a lognormal CDF from
// implied volatility and moneyness, falling back to a coarse
// OTM-distance table.
func winProbability(c *domain.OptionContract, price float64, dte int) float64 {
	if c.Delta != 0 {
		return (1 - math.Abs(c.Delta)) * 100
	}

	if c.ImpliedVolatility > 0 && price > 0 && c.Strike > 0 && dte > 0 {
		t := float64(dte) / 365.0
		d := math.Log(c.Strike/price) / (c.ImpliedVolatility * math.Sqrt(t))
		return normCDF(d) * 100
	}

	otm := (c.Strike - price) / price
	switch {
	case otm > 0.10:
		return 85
	case otm > 0.05:
		return 75
	case otm > 0.02:
		return 65
	default:
		return 50
	}
}

// confidenceScore composes the 0-100 ranking score:
// 25% IV rank, 25% win probability, 20% yield, 15% liquidity,
// 15% inverse growth score.
func confidenceScore(c *domain.OptionContract, staticReturn, winProb, growthScore float64) float64 {
	ivComponent := math.Min(c.IVRank*1.5, 100)
	yieldComponent := math.Min(staticReturn*100*20, 100)
	liquidity := math.Min((float64(c.Volume)/500+float64(c.OpenInterest)/500)*50, 100)
	growthComponent := math.Max(0, 100-growthScore)

	return 0.25*ivComponent +
		0.25*winProb +
		0.20*yieldComponent +
		0.15*liquidity +
		0.15*growthComponent
}

// strategyBand returns the OTM strike band for a strategy, fractional.
func strategyBand(strategy domain.Strategy) (minOTM, maxOTM float64, allowed bool) {
	switch strategy {
	case domain.StrategyAggressive:
		return 0.0, 0.03, true
	case domain.StrategyModerate:
		return 0.02, 0.07, true
	case domain.StrategyConservative:
		return 0.05, 0.12, true
	default:
		return 0, 0, false
	}
}

// normCDF is the standard normal CDF.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
