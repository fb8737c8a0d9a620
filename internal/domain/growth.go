package domain

// Strategy is the strike-selection band derived from a growth score.
type Strategy string

// Strategy bands. Thresholds are fixed at 25/50/75 of the growth score.
const (
	StrategyAggressive   Strategy = "AGGRESSIVE"   // score < 25: ATM to +3% OTM
	StrategyModerate     Strategy = "MODERATE"     // 25-50: +2% to +7% OTM
	StrategyConservative Strategy = "CONSERVATIVE" // 50-75: +5% to +12% OTM
	StrategyProtect      Strategy = "PROTECT"      // >= 75: no covered calls
)

// Confidence labels how much input backed an assessment.
type Confidence string

// Confidence labels
const (
	ConfidenceHigh   Confidence = "HIGH"   // symbol in the override table
	ConfidenceMedium Confidence = "MEDIUM" // all computed-mode inputs present
	ConfidenceLow    Confidence = "LOW"    // defaults substituted
)

// GrowthAssessment scores a symbol's growth potential 0-100.
// Ephemeral: recomputed per symbol per market snapshot, never stored
// on its own (the score may be captured inside a logged opportunity).
type GrowthAssessment struct {
	Symbol          string
	TotalScore      float64 // 0-100, higher = more growth, more upside protection
	Strategy        Strategy
	ProtectPosition bool // score >= 75, the same boundary as StrategyProtect
	Confidence      Confidence

	// Sub-scores from computed mode, zero when the override table applied.
	MomentumScore     float64
	VolatilityScore   float64
	FundamentalsScore float64
	TechnicalsScore   float64
}

// StrategyForScore maps a growth score to its strike-selection band.
func StrategyForScore(score float64) Strategy {
	switch {
	case score < 25:
		return StrategyAggressive
	case score < 50:
		return StrategyModerate
	case score < 75:
		return StrategyConservative
	default:
		return StrategyProtect
	}
}
