package whale

import (
	"testing"
	"time"

	"covered-call-lab/internal/domain"
)

// perfectStorm is the canonical extreme-conviction flow: $600K sweep at
// the ask with 2.5x volume/OI.
func perfectStorm() *domain.RawActivityRecord {
	return &domain.RawActivityRecord{
		Timestamp:       time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC),
		Symbol:          "NVDA",
		UnderlyingPrice: 100,
		TradeType:       "sweep",
		OptionType:      "call",
		Strike:          110,
		Expiration:      time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
		Contracts:       6000,
		Premium:         1.00,
		Bid:             0.95,
		Ask:             1.00,
		Volume:          15_000,
		OpenInterest:    6000,
		ExecutionSide:   "ask",
	}
}

func TestScoreRecord_PerfectStorm(t *testing.T) {
	s := ScoreRecord(perfectStorm(), 21)

	if s.WhaleScore < 85 {
		t.Errorf("WhaleScore = %.2f, want >= 85", s.WhaleScore)
	}
	if s.Conviction != ConvictionExtreme {
		t.Errorf("Conviction = %s, want EXTREME", s.Conviction)
	}
	if s.Action != "STRONG FOLLOW" {
		t.Errorf("Action = %q, want STRONG FOLLOW", s.Action)
	}
	if !contains(s.Patterns, "PERFECT_STORM") {
		t.Errorf("Patterns = %v, want PERFECT_STORM", s.Patterns)
	}
	// Six-figure premium, vol/OI >= 1, round lots, ask side: all four.
	if s.InstitutionalProbability != 100 {
		t.Errorf("InstitutionalProbability = %.0f, want 100", s.InstitutionalProbability)
	}
}

func TestScoreRecord_Components(t *testing.T) {
	s := ScoreRecord(perfectStorm(), 21)

	if s.PremiumScore != 90 {
		t.Errorf("PremiumScore = %.0f, want 90 for $600K", s.PremiumScore)
	}
	if s.VolumeOIScore != 90 {
		t.Errorf("VolumeOIScore = %.0f, want 90 for a 2.5 ratio", s.VolumeOIScore)
	}
	if s.ExecutionScore != 100 {
		t.Errorf("ExecutionScore = %.0f, want 100 for sweep at the ask", s.ExecutionScore)
	}
	if s.DTEScore != 100 {
		t.Errorf("DTEScore = %.0f, want 100 inside the 14-35 window", s.DTEScore)
	}
	if s.RoundLotScore != 100 {
		t.Errorf("RoundLotScore = %.0f, want 100 for 6000 contracts", s.RoundLotScore)
	}
	if s.LiquidityScore != 80 {
		t.Errorf("LiquidityScore = %.0f, want 80 for 6000 OI on a 5%% spread", s.LiquidityScore)
	}
	// 0.20*90 + 0.25*90 + 0.20*100 + 0.15*100 + 0.10*100 + 0.10*80
	if s.WhaleScore != 93.5 {
		t.Errorf("WhaleScore = %.2f, want 93.50", s.WhaleScore)
	}
}

func TestScoreRecord_LowConviction(t *testing.T) {
	r := &domain.RawActivityRecord{
		Timestamp:       time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC),
		Symbol:          "F",
		UnderlyingPrice: 12,
		TradeType:       "block",
		OptionType:      "call",
		Strike:          13,
		Contracts:       543,
		Premium:         0.95,
		Bid:             0.70,
		Ask:             1.10,
		Volume:          600,
		OpenInterest:    9000,
		ExecutionSide:   "bid",
	}
	s := ScoreRecord(r, 50)

	if s.Conviction != ConvictionLow {
		t.Errorf("Conviction = %s, want LOW (score %.2f)", s.Conviction, s.WhaleScore)
	}
	if s.Action != "PASS" {
		t.Errorf("Action = %q, want PASS", s.Action)
	}
	if len(s.Patterns) != 0 {
		t.Errorf("Patterns = %v, want none", s.Patterns)
	}
}

func TestScoreRecord_PreBreakout(t *testing.T) {
	r := perfectStorm()
	r.TradeType = "block" // not a sweep, so no perfect storm
	r.Strike = 115        // 15% OTM
	r.Volume = 7000       // vol/OI just over 1

	s := ScoreRecord(r, 21)
	if contains(s.Patterns, "PERFECT_STORM") {
		t.Errorf("Patterns = %v, PERFECT_STORM needs a sweep", s.Patterns)
	}
	if !contains(s.Patterns, "PRE_BREAKOUT") {
		t.Errorf("Patterns = %v, want PRE_BREAKOUT", s.Patterns)
	}
}

func TestScoreRecord_MissingFieldsDegrade(t *testing.T) {
	// Bare record: no OI, no side, odd lot. Scores, never panics.
	r := &domain.RawActivityRecord{
		Symbol:          "XYZ",
		UnderlyingPrice: 50,
		TradeType:       "sweep",
		OptionType:      "call",
		Strike:          55,
		Contracts:       777,
		Premium:         0.80,
		Volume:          2000,
	}
	s := ScoreRecord(r, 20)
	if s.WhaleScore <= 0 || s.WhaleScore > 100 {
		t.Errorf("WhaleScore = %.2f, want in (0, 100]", s.WhaleScore)
	}
	if s.VolumeOIScore != 50 {
		t.Errorf("VolumeOIScore = %.0f, want neutral 50 without OI", s.VolumeOIScore)
	}
}

func TestDTEWindowScore(t *testing.T) {
	tests := []struct {
		dte  int
		want float64
	}{
		{21, 100},
		{14, 100},
		{35, 100},
		{10, 70},
		{40, 70},
		{5, 40},
		{60, 30},
	}
	for _, tt := range tests {
		if got := dteWindowScore(tt.dte); got != tt.want {
			t.Errorf("dteWindowScore(%d) = %.0f, want %.0f", tt.dte, got, tt.want)
		}
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
