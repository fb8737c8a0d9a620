package growth

import (
	"testing"

	"covered-call-lab/internal/domain"
)

func TestStrategyBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.Strategy
	}{
		{0, domain.StrategyAggressive},
		{24, domain.StrategyAggressive},
		{25, domain.StrategyModerate},
		{49, domain.StrategyModerate},
		{50, domain.StrategyConservative},
		{74, domain.StrategyConservative},
		{75, domain.StrategyProtect},
		{100, domain.StrategyProtect},
	}
	for _, tt := range tests {
		if got := domain.StrategyForScore(tt.score); got != tt.want {
			t.Errorf("StrategyForScore(%.0f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

// ProtectPosition and the PROTECT band share the >= 75 boundary.
func TestProtectBoundary(t *testing.T) {
	c := NewClassifier(Config{Overrides: map[string]float64{"EDGE": 75, "NEAR": 74}})

	a := c.Score("EDGE", nil)
	if a.Strategy != domain.StrategyProtect || !a.ProtectPosition {
		t.Errorf("score 75: strategy = %s protect=%v, want PROTECT/true", a.Strategy, a.ProtectPosition)
	}

	a = c.Score("NEAR", nil)
	if a.Strategy != domain.StrategyConservative || a.ProtectPosition {
		t.Errorf("score 74: strategy = %s protect=%v, want CONSERVATIVE/false", a.Strategy, a.ProtectPosition)
	}
}

func TestClassifier_OverrideTable(t *testing.T) {
	c := NewClassifier(Config{})

	// Flat quote: no variance adjustment.
	flat := &domain.Quote{Price: 100, Change1Month: 0.02, Volatility30D: 0.35}

	a := c.Score("pltr", flat)
	if a.Symbol != "PLTR" {
		t.Errorf("Symbol = %q, want PLTR", a.Symbol)
	}
	if a.TotalScore != 85 {
		t.Errorf("PLTR score = %.0f, want 85", a.TotalScore)
	}
	if a.Strategy != domain.StrategyProtect || !a.ProtectPosition {
		t.Errorf("PLTR strategy = %s protect=%v, want PROTECT/true", a.Strategy, a.ProtectPosition)
	}
	if a.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %s, want HIGH", a.Confidence)
	}

	v := c.Score("T", flat)
	if v.TotalScore != 15 {
		t.Errorf("T score = %.0f, want 15", v.TotalScore)
	}
	if v.Strategy != domain.StrategyAggressive {
		t.Errorf("T strategy = %s, want AGGRESSIVE", v.Strategy)
	}
}

func TestClassifier_VarianceAdjustment(t *testing.T) {
	c := NewClassifier(Config{})

	tests := []struct {
		name  string
		quote *domain.Quote
		want  float64 // ROKU base is 65
	}{
		{"big rally", &domain.Quote{Change1Month: 0.35, Volatility30D: 0.40}, 75},
		{"big drawdown", &domain.Quote{Change1Month: -0.25, Volatility30D: 0.40}, 55},
		{"hot volatility", &domain.Quote{Change1Month: 0.05, Volatility30D: 0.70}, 70},
		{"quiet tape", &domain.Quote{Change1Month: 0.05, Volatility30D: 0.15}, 60},
		{"rally and hot vol stack", &domain.Quote{Change1Month: 0.35, Volatility30D: 0.70}, 80},
		{"nil quote", nil, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.Score("ROKU", tt.quote)
			if a.TotalScore != tt.want {
				t.Errorf("score = %.0f, want %.0f", a.TotalScore, tt.want)
			}
		})
	}
}

func TestClassifier_OverrideClamped(t *testing.T) {
	c := NewClassifier(Config{})

	// NVDA base 85 + rally 10 + vol 5 would be 100; stays within range.
	a := c.Score("NVDA", &domain.Quote{Change1Month: 0.40, Volatility30D: 0.80})
	if a.TotalScore != 100 {
		t.Errorf("score = %.0f, want clamp at 100", a.TotalScore)
	}
}

func TestClassifier_ComputedLargeCapValue(t *testing.T) {
	c := NewClassifier(Config{})

	// Large, slow, low-vol name below both moving averages: should land
	// well under 50 and draw an AGGRESSIVE or MODERATE band.
	q := &domain.Quote{
		Price:         40,
		MA50:          43,
		MA200:         45,
		RSI:           42,
		Beta:          0.6,
		Change1Month:  -0.02,
		Volatility30D: 0.18,
		High52Week:    55,
		Low52Week:     38,
		MarketCap:     120e9,
		PERatio:       9,
		RevenueGrowth: 0.01,
		AnalystRating: 3,
	}
	a := c.Score("KHC", q)
	if a.Confidence != domain.ConfidenceMedium {
		t.Errorf("Confidence = %s, want MEDIUM", a.Confidence)
	}
	if a.TotalScore >= 50 {
		t.Errorf("score = %.1f, want < 50 for a sleepy large cap", a.TotalScore)
	}
	if a.ProtectPosition {
		t.Error("ProtectPosition = true, want false")
	}
}

func TestClassifier_ComputedSmallCapMomentum(t *testing.T) {
	c := NewClassifier(Config{})

	q := &domain.Quote{
		Price:         28,
		MA50:          24,
		MA200:         20,
		RSI:           68,
		Beta:          1.9,
		Change1Month:  0.22,
		Volatility30D: 0.75,
		High52Week:    30,
		Low52Week:     9,
		MarketCap:     1.4e9,
		PERatio:       -12,
		RevenueGrowth: 0.45,
		AnalystRating: 2,
	}
	a := c.Score("IONQ", q)
	if a.TotalScore <= 60 {
		t.Errorf("score = %.1f, want > 60 for a hot small cap", a.TotalScore)
	}
	if a.Confidence != domain.ConfidenceMedium {
		t.Errorf("Confidence = %s, want MEDIUM", a.Confidence)
	}
}

func TestClassifier_ComputedMissingInputsLowConfidence(t *testing.T) {
	c := NewClassifier(Config{})

	a := c.Score("XYZ", &domain.Quote{Price: 50, MarketCap: 5e9})
	if a.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %s, want LOW", a.Confidence)
	}

	b := c.Score("ABC", nil)
	if b.Confidence != domain.ConfidenceLow {
		t.Errorf("nil-quote Confidence = %s, want LOW", b.Confidence)
	}
}

func TestClassifier_MonotonicInMonthlyChange(t *testing.T) {
	c := NewClassifier(Config{})

	base := domain.Quote{
		Price:         100,
		MA50:          95,
		MA200:         90,
		RSI:           55,
		Beta:          1.2,
		Volatility30D: 0.40,
		High52Week:    120,
		Low52Week:     70,
		MarketCap:     8e9,
		PERatio:       40,
		RevenueGrowth: 0.20,
		AnalystRating: 2,
	}

	prev := -1.0
	for _, change := range []float64{-0.15, -0.05, 0.0, 0.05, 0.15} {
		q := base
		q.Change1Month = change
		score := c.Score("XYZ", &q).TotalScore
		if score < prev {
			t.Fatalf("score decreased from %.2f to %.2f at change %.2f", prev, score, change)
		}
		prev = score
	}
}

func TestBatchAnalyze(t *testing.T) {
	c := NewClassifier(Config{})

	out := c.BatchAnalyze(map[string]*domain.Quote{
		"tsla": {Change1Month: 0.02, Volatility30D: 0.45},
		"KO":   {Change1Month: 0.01, Volatility30D: 0.22},
	})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out["TSLA"] == nil || out["TSLA"].TotalScore != 80 {
		t.Errorf("TSLA = %+v, want score 80", out["TSLA"])
	}
	if out["KO"] == nil || out["KO"].TotalScore != 20 {
		t.Errorf("KO = %+v, want score 20", out["KO"])
	}
}

func TestExplain(t *testing.T) {
	c := NewClassifier(Config{})

	lines := Explain(c.Score("VZ", nil))
	if len(lines) < 3 {
		t.Fatalf("len(lines) = %d, want >= 3", len(lines))
	}

	computed := Explain(c.Score("XYZ", &domain.Quote{Price: 50}))
	if len(computed) < 5 {
		t.Fatalf("computed len(lines) = %d, want sub-score lines", len(computed))
	}
}
