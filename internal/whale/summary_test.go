package whale

import (
	"testing"

	"covered-call-lab/internal/domain"
)

func flow(symbol string, sentiment domain.Sentiment, premium, confidence float64, dte int) *domain.WhaleFlow {
	return &domain.WhaleFlow{
		Symbol:       symbol,
		Sentiment:    sentiment,
		TotalPremium: premium,
		Confidence:   confidence,
		DaysToExp:    dte,
		OptionType:   domain.OptionCall,
	}
}

func TestDailySummary(t *testing.T) {
	flows := []*domain.WhaleFlow{
		flow("NVDA", domain.SentimentVeryBullish, 600_000, 85, 21),
		flow("NVDA", domain.SentimentBullish, 200_000, 75, 30),
		flow("AAPL", domain.SentimentBearish, 300_000, 80, 14),
		flow("TSLA", domain.SentimentNeutral, 100_000, 70, 40),
	}

	s := DailySummary(flows)
	if s.TotalFlows != 4 {
		t.Errorf("TotalFlows = %d, want 4", s.TotalFlows)
	}
	if s.BullishCount != 2 || s.BearishCount != 1 {
		t.Errorf("counts = %d bullish / %d bearish, want 2/1", s.BullishCount, s.BearishCount)
	}
	if s.TotalPremium != 1_200_000 {
		t.Errorf("TotalPremium = %.0f, want 1200000", s.TotalPremium)
	}
	if s.AvgConfidence != 77.5 {
		t.Errorf("AvgConfidence = %.2f, want 77.5", s.AvgConfidence)
	}
	if len(s.TopSymbols) != 3 || s.TopSymbols[0].Symbol != "NVDA" || s.TopSymbols[0].TotalPremium != 800_000 {
		t.Errorf("TopSymbols = %+v, want NVDA first at 800000", s.TopSymbols)
	}
}

func TestDailySummary_Empty(t *testing.T) {
	s := DailySummary(nil)
	if s.TotalFlows != 0 || s.AvgConfidence != 0 {
		t.Errorf("empty summary = %+v, want zeros", s)
	}
}

func TestFilterFlows(t *testing.T) {
	put := flow("AAPL", domain.SentimentBearish, 300_000, 80, 14)
	put.OptionType = domain.OptionPut

	flows := []*domain.WhaleFlow{
		flow("NVDA", domain.SentimentVeryBullish, 600_000, 85, 21), // HIGH risk
		flow("TSLA", domain.SentimentNeutral, 100_000, 70, 40),     // LOWER risk
		put, // HIGH risk
	}

	out := FilterFlows(flows, FlowFilter{MinConfidence: 75})
	if len(out) != 2 {
		t.Errorf("min-confidence filter kept %d, want 2", len(out))
	}

	out = FilterFlows(flows, FlowFilter{OptionType: domain.OptionPut})
	if len(out) != 1 || out[0].Symbol != "AAPL" {
		t.Errorf("put filter = %v, want only AAPL", len(out))
	}

	// MODERATE ceiling excludes both HIGH-risk flows.
	out = FilterFlows(flows, FlowFilter{MaxRisk: "MODERATE"})
	if len(out) != 1 || out[0].Symbol != "TSLA" {
		t.Errorf("risk filter kept %d, want only TSLA", len(out))
	}

	if got := FilterFlows(flows, FlowFilter{}); len(got) != 3 {
		t.Errorf("empty filter kept %d, want 3", len(got))
	}
}
