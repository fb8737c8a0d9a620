package whale

import (
	"math"
	"strings"
	"testing"
	"time"

	"covered-call-lab/internal/domain"
)

func followableFlow() *domain.WhaleFlow {
	return &domain.WhaleFlow{
		ID:              "flow-1",
		Symbol:          "NVDA",
		UnderlyingPrice: 100,
		OptionType:      domain.OptionCall,
		Strike:          110,
		Expiration:      time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
		DaysToExp:       21,
		Contracts:       6000,
		PremiumPerShare: 1.00,
		TotalPremium:    600_000,
		Sentiment:       domain.SentimentBullish,
		Confidence:      85,
	}
}

func TestFollowTrade_Sizing(t *testing.T) {
	plan, ok := FollowTrade(followableFlow())
	if !ok {
		t.Fatal("FollowTrade() not ok, want a plan")
	}

	// $600K tier divides 6000 contracts by 50,000: rounds to zero, floor
	// of 1 applies, then the $200 budget floor pulls it to 2.
	if plan.Contracts != 2 {
		t.Errorf("Contracts = %d, want 2", plan.Contracts)
	}
	if plan.TotalCost != 200 {
		t.Errorf("TotalCost = %.0f, want 200", plan.TotalCost)
	}
	if plan.Breakeven != 111 {
		t.Errorf("Breakeven = %.2f, want 111 (strike + premium)", plan.Breakeven)
	}
	if plan.Targets != [3]float64{400, 1000, 2000} {
		t.Errorf("Targets = %v, want 2x/5x/10x of cost", plan.Targets)
	}
	if plan.RiskLevel != "HIGH" {
		t.Errorf("RiskLevel = %s, want HIGH at 21 DTE", plan.RiskLevel)
	}
	if !strings.Contains(plan.Recommendation, "NVDA") || !strings.Contains(plan.Recommendation, "HIGH") {
		t.Errorf("Recommendation = %q, want symbol and risk level", plan.Recommendation)
	}
}

func TestFollowTrade_BudgetClampDown(t *testing.T) {
	f := followableFlow()
	f.PremiumPerShare = 5.00 // $500/contract
	f.Contracts = 1_500_000
	f.TotalPremium = f.PremiumPerShare * float64(f.Contracts) * 100

	plan, ok := FollowTrade(f)
	if !ok {
		t.Fatal("FollowTrade() not ok, want a plan")
	}
	// 15 contracts clamp to 10, then $2000 budget pulls to 4.
	if plan.Contracts != 4 {
		t.Errorf("Contracts = %d, want 4", plan.Contracts)
	}
	if plan.TotalCost != 2000 {
		t.Errorf("TotalCost = %.0f, want 2000", plan.TotalCost)
	}
}

func TestFollowTrade_Rejections(t *testing.T) {
	lowConfidence := followableFlow()
	lowConfidence.Confidence = 70
	if _, ok := FollowTrade(lowConfidence); ok {
		t.Error("followed a sub-75 confidence flow")
	}

	bearishFlow := followableFlow()
	bearishFlow.OptionType = domain.OptionPut
	bearishFlow.Sentiment = domain.SentimentVeryBearish
	if _, ok := FollowTrade(bearishFlow); ok {
		t.Error("followed a bearish flow")
	}

	tooExpensive := followableFlow()
	tooExpensive.PremiumPerShare = 25.00 // $2500/contract, over budget alone
	if _, ok := FollowTrade(tooExpensive); ok {
		t.Error("followed a flow one contract of which busts the budget")
	}
}

func TestFollowTrade_PutBreakeven(t *testing.T) {
	f := followableFlow()
	f.OptionType = domain.OptionPut
	f.Strike = 90
	f.Sentiment = domain.SentimentNeutral

	plan, ok := FollowTrade(f)
	if !ok {
		t.Fatal("FollowTrade() not ok")
	}
	if plan.Breakeven != 89 {
		t.Errorf("Breakeven = %.2f, want 89 (strike - premium)", plan.Breakeven)
	}
}

func TestRiskLevelByDTE(t *testing.T) {
	tests := []struct {
		dte  int
		want string
	}{
		{5, "EXTREME"},
		{14, "HIGH"},
		{30, "MODERATE"},
		{45, "LOWER"},
	}
	for _, tt := range tests {
		if got := RiskLevelByDTE(tt.dte); got != tt.want {
			t.Errorf("RiskLevelByDTE(%d) = %s, want %s", tt.dte, got, tt.want)
		}
	}
}

func TestPortfolioFollow(t *testing.T) {
	f := followableFlow()
	score := &EnhancedScore{Conviction: ConvictionExtreme}

	plan, ok := PortfolioFollow(f, score, 100_000)
	if !ok {
		t.Fatal("PortfolioFollow() not ok")
	}
	if plan.RiskPct != 0.03 {
		t.Errorf("RiskPct = %.2f, want 0.03 at EXTREME conviction", plan.RiskPct)
	}
	if plan.Budget != 3000 {
		t.Errorf("Budget = %.0f, want 3000", plan.Budget)
	}
	if plan.Contracts != 30 {
		t.Errorf("Contracts = %d, want 30 at $100 each", plan.Contracts)
	}
	if math.Abs(plan.TotalCost-3000) > 1e-9 {
		t.Errorf("TotalCost = %.0f, want 3000", plan.TotalCost)
	}
	if len(plan.Notes) == 0 {
		t.Error("Notes empty, want position-management guidance")
	}

	// Moderate conviction risks 1%.
	plan, ok = PortfolioFollow(f, &EnhancedScore{Conviction: ConvictionModerate}, 100_000)
	if !ok || plan.RiskPct != 0.01 {
		t.Errorf("moderate RiskPct = %.2f, want 0.01", plan.RiskPct)
	}

	// Tiny portfolio cannot afford one contract.
	if _, ok := PortfolioFollow(f, score, 3000); ok {
		t.Error("PortfolioFollow() sized a position a $3000 portfolio cannot risk")
	}
}
