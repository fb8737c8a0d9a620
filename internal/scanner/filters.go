package scanner

import (
	"fmt"

	"covered-call-lab/internal/domain"
)

// Criteria is a pure AND-combined filter over scanned opportunities.
// Nil fields do not constrain.
type Criteria struct {
	MinYield        *float64 // monthly static return, fractional
	MinConfidence   *float64
	MaxDelta        *float64
	ExcludeEarnings bool
}

// FilterByCriteria returns the opportunities satisfying every set criterion.
func FilterByCriteria(opportunities []*domain.Opportunity, criteria Criteria) []*domain.Opportunity {
	var out []*domain.Opportunity
	for _, o := range opportunities {
		if criteria.MinYield != nil && o.StaticReturnMonthly < *criteria.MinYield {
			continue
		}
		if criteria.MinConfidence != nil && o.ConfidenceScore < *criteria.MinConfidence {
			continue
		}
		if criteria.MaxDelta != nil && o.Delta > *criteria.MaxDelta {
			continue
		}
		if criteria.ExcludeEarnings && o.EarningsBeforeExp {
			continue
		}
		out = append(out, o)
	}
	return out
}

// BestBySymbol keeps the highest-confidence opportunity per symbol.
func BestBySymbol(opportunities []*domain.Opportunity) map[string]*domain.Opportunity {
	best := make(map[string]*domain.Opportunity)
	for _, o := range opportunities {
		if cur, ok := best[o.Symbol]; !ok || o.ConfidenceScore > cur.ConfidenceScore {
			best[o.Symbol] = o
		}
	}
	return best
}

// ClosePrices are the buy-to-close targets for a sold call.
type ClosePrices struct {
	Primary      float64 // standard target
	Conservative float64 // take profit early
	Aggressive   float64 // squeeze the last of the premium
	ProfitPct    float64 // profit captured at the primary target, fractional
}

// RecommendedClosePrices returns buy-to-close targets. The standard
// target captures 50% of the premium; inside a week to expiry it moves
// to 75% since the remaining decay is not worth the gamma risk.
func RecommendedClosePrices(o *domain.Opportunity) ClosePrices {
	cp := ClosePrices{
		Conservative: round2(o.Premium * 0.75), // 25% profit
		Aggressive:   round2(o.Premium * 0.25), // 75% profit
	}
	if o.DaysToExp <= 7 {
		cp.Primary = cp.Aggressive
		cp.ProfitPct = 0.75
	} else {
		cp.Primary = round2(o.Premium * 0.50)
		cp.ProfitPct = 0.50
	}
	return cp
}

// Commentary labels an opportunity for display. Explanatory only; the
// ranking never consults it.
func Commentary(o *domain.Opportunity) (label string, notes []string) {
	switch {
	case o.EarningsBeforeExp && o.GrowthScore >= 60:
		label = "STRONG PASS"
		notes = append(notes, "earnings before expiration on a growth name")
	case o.EarningsBeforeExp:
		label = "PASS"
		notes = append(notes, "earnings before expiration")
	case o.WinProbability >= 70 && o.StaticReturnMonthly >= 0.03 && o.IVRank >= 50:
		label = "STRONG BUY"
		notes = append(notes, fmt.Sprintf("%.0f%% win probability at %.1f%%/month with rich IV", o.WinProbability, o.StaticReturnMonthly*100))
	case o.WinProbability >= 65 && o.StaticReturnMonthly >= 0.025 && o.Volume >= 50:
		label = "BUY"
		notes = append(notes, fmt.Sprintf("%.0f%% win probability at %.1f%%/month", o.WinProbability, o.StaticReturnMonthly*100))
	case o.WinProbability < 55:
		label = "PASS"
		notes = append(notes, "win probability too close to a coin flip")
	case o.GrowthScore >= 65:
		label = "PASS"
		notes = append(notes, "growth score argues for keeping the upside")
	default:
		label = "NEUTRAL"
	}
	if o.Volume < 50 && label != "PASS" && label != "STRONG PASS" {
		notes = append(notes, "thin volume, work the mid")
	}
	return label, notes
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
