package whale

import (
	"math"

	"covered-call-lab/internal/domain"
)

// Conviction bands for the enhanced whale score.
const (
	ConvictionExtreme  = "EXTREME"
	ConvictionHigh     = "HIGH"
	ConvictionModerate = "MODERATE"
	ConvictionLow      = "LOW"
)

// EnhancedScore is the richer 0-100 read of one flow. Derived, never
// stored; only WhaleScore itself is persisted on the flow.
type EnhancedScore struct {
	Symbol     string   `json:"symbol"`
	WhaleScore float64  `json:"whale_score"`
	Conviction string   `json:"conviction_level"`
	Action     string   `json:"action"`
	Patterns   []string `json:"pattern_matches,omitempty"`

	// InstitutionalProbability counts how many of four institutional
	// fingerprints the trade carries, as a percentage.
	InstitutionalProbability float64 `json:"institutional_probability"`

	// Component scores, each 0-100 before weighting.
	PremiumScore   float64 `json:"premium_score"`
	VolumeOIScore  float64 `json:"volume_oi_score"`
	ExecutionScore float64 `json:"execution_score"`
	DTEScore       float64 `json:"dte_score"`
	RoundLotScore  float64 `json:"round_lot_score"`
	LiquidityScore float64 `json:"liquidity_score"`
}

// Component weights of the enhanced score.
const (
	weightPremium   = 0.20
	weightVolumeOI  = 0.25
	weightExecution = 0.20
	weightDTE       = 0.15
	weightRoundLot  = 0.10
	weightLiquidity = 0.10
)

// ScoreRecord computes the enhanced whale score for one raw record.
// Missing fields drag their component toward neutral instead of failing.
func ScoreRecord(r *domain.RawActivityRecord, dte int) *EnhancedScore {
	s := &EnhancedScore{
		Symbol:         r.Symbol,
		PremiumScore:   premiumScore(r.TotalPremium()),
		VolumeOIScore:  volumeOIScore(r),
		ExecutionScore: executionScore(r),
		DTEScore:       dteWindowScore(dte),
		RoundLotScore:  roundLotScore(r.Contracts),
		LiquidityScore: liquidityScore(r),
	}

	s.WhaleScore = math.Round((s.PremiumScore*weightPremium+
		s.VolumeOIScore*weightVolumeOI+
		s.ExecutionScore*weightExecution+
		s.DTEScore*weightDTE+
		s.RoundLotScore*weightRoundLot+
		s.LiquidityScore*weightLiquidity)*100) / 100

	switch {
	case s.WhaleScore >= 85:
		s.Conviction, s.Action = ConvictionExtreme, "STRONG FOLLOW"
	case s.WhaleScore >= 75:
		s.Conviction, s.Action = ConvictionHigh, "FOLLOW"
	case s.WhaleScore >= 65:
		s.Conviction, s.Action = ConvictionModerate, "CONSIDER"
	default:
		s.Conviction, s.Action = ConvictionLow, "PASS"
	}

	s.InstitutionalProbability = institutionalProbability(r)
	s.Patterns = matchPatterns(r, dte)
	return s
}

// premiumScore grades sheer order size.
func premiumScore(totalPremium float64) float64 {
	switch {
	case totalPremium >= 1_000_000:
		return 100
	case totalPremium >= 500_000:
		return 90
	case totalPremium >= 250_000:
		return 75
	case totalPremium >= 100_000:
		return 60
	case totalPremium >= 50_000:
		return 45
	default:
		return 25
	}
}

// volumeOIScore grades how much of the day's volume is fresh positioning.
func volumeOIScore(r *domain.RawActivityRecord) float64 {
	if r.OpenInterest <= 0 {
		return 50
	}
	ratio := float64(r.Volume) / float64(r.OpenInterest)
	switch {
	case ratio >= 3:
		return 100
	case ratio >= 2:
		return 90
	case ratio >= 1:
		return 75
	case ratio >= 0.5:
		return 60
	default:
		return 40
	}
}

// executionScore grades urgency: trade shape plus aggressor side, with
// a bonus for trading in the opening or closing hour.
func executionScore(r *domain.RawActivityRecord) float64 {
	var score float64
	switch domain.FlowType(r.TradeType) {
	case domain.FlowSweep:
		score = 80
	case domain.FlowSplitBlock:
		score = 70
	case domain.FlowBlock:
		score = 60
	default:
		score = 40
	}

	switch r.ExecutionSide {
	case "ask":
		score += 20
	case "mid":
		score += 5
	case "bid":
		score -= 20
	}

	// Regular session opens 13:30 and closes 20:00 UTC.
	if h := r.Timestamp.UTC().Hour(); h == 13 || h == 14 || h == 19 {
		score += 10
	}
	return clamp(score, 0, 100)
}

// dteWindowScore favors the 14-35 day window where informed positioning
// concentrates.
func dteWindowScore(dte int) float64 {
	switch {
	case dte >= 14 && dte <= 35:
		return 100
	case dte >= 8 && dte <= 45:
		return 70
	case dte >= 0 && dte <= 7:
		return 40
	default:
		return 30
	}
}

// roundLotScore grades the contract count's shape; institutions size in
// round lots.
func roundLotScore(contracts int64) float64 {
	switch {
	case contracts <= 0:
		return 0
	case contracts%100 == 0:
		return 100
	case contracts%50 == 0:
		return 80
	case contracts%10 == 0:
		return 60
	default:
		return 40
	}
}

// liquidityScore grades the exit: open interest depth plus spread.
func liquidityScore(r *domain.RawActivityRecord) float64 {
	var score float64
	switch {
	case r.OpenInterest >= 10_000:
		score = 80
	case r.OpenInterest >= 1_000:
		score = 60
	case r.OpenInterest >= 100:
		score = 40
	default:
		score = 20
	}

	if r.Ask > 0 && r.Bid > 0 {
		switch spread := (r.Ask - r.Bid) / r.Ask; {
		case spread <= 0.10:
			score += 20
		case spread <= 0.30:
			score += 10
		}
	}
	return clamp(score, 0, 100)
}

// institutionalProbability counts four institutional fingerprints:
// six-figure premium, fresh positioning, round lots, ask-side execution.
func institutionalProbability(r *domain.RawActivityRecord) float64 {
	var indicators int
	if r.TotalPremium() >= 100_000 {
		indicators++
	}
	if r.OpenInterest > 0 && float64(r.Volume)/float64(r.OpenInterest) >= 1 {
		indicators++
	}
	if r.Contracts > 0 && r.Contracts%100 == 0 {
		indicators++
	}
	if r.ExecutionSide == "ask" {
		indicators++
	}
	return float64(indicators) / 4 * 100
}

// matchPatterns names the composite setups a flow matches.
func matchPatterns(r *domain.RawActivityRecord, dte int) []string {
	var patterns []string

	volOI := 0.0
	if r.OpenInterest > 0 {
		volOI = float64(r.Volume) / float64(r.OpenInterest)
	}

	if volOI >= 2 && r.TotalPremium() >= 500_000 &&
		domain.FlowType(r.TradeType) == domain.FlowSweep && r.ExecutionSide == "ask" {
		patterns = append(patterns, "PERFECT_STORM")
	}
	if volOI >= 1 && otmDistance(r) > 0.10 && dte >= 14 && dte <= 35 && r.TotalPremium() >= 100_000 {
		patterns = append(patterns, "PRE_BREAKOUT")
	}
	return patterns
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
