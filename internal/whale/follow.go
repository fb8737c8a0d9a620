package whale

import (
	"fmt"
	"math"

	"covered-call-lab/internal/domain"
)

// Follow sizing bounds. The point is a lottery-ticket tail on someone
// else's conviction, not a real position.
const (
	minFollowContracts  = 1
	maxFollowContracts  = 10
	minFollowBudget     = 200.0
	maxFollowBudget     = 2000.0
	minFollowConfidence = 75.0
)

// FollowPlan sizes a retail copy of a whale trade.
type FollowPlan struct {
	FlowID          string     `json:"flow_id"`
	Symbol          string     `json:"symbol"`
	Contracts       int        `json:"contracts"`
	CostPerContract float64    `json:"cost_per_contract"`
	TotalCost       float64    `json:"total_cost"`
	Breakeven       float64    `json:"breakeven"`
	Targets         [3]float64 `json:"targets"` // 2x, 5x, 10x of cost
	RiskLevel       string     `json:"risk_level"`
	Recommendation  string     `json:"recommendation"`
}

// FollowTrade sizes a follow for one flow. Returns false when the flow
// does not merit following: bearish direction (this is a long-stock
// income system), sub-75 confidence, or a single contract already
// outside the budget.
func FollowTrade(f *domain.WhaleFlow) (*FollowPlan, bool) {
	if f.Confidence < minFollowConfidence || bearish(f.Sentiment) {
		return nil, false
	}

	costPerContract := f.PremiumPerShare * domain.SharesPerContract
	if costPerContract <= 0 || costPerContract > maxFollowBudget {
		return nil, false
	}

	contracts := int(float64(f.Contracts) / scaleDivisor(f.TotalPremium))
	contracts = clampInt(contracts, minFollowContracts, maxFollowContracts)

	// Pull the count into the dollar budget where the premium allows.
	for contracts > minFollowContracts && float64(contracts)*costPerContract > maxFollowBudget {
		contracts--
	}
	for contracts < maxFollowContracts && float64(contracts+1)*costPerContract <= minFollowBudget {
		contracts++
	}

	cost := float64(contracts) * costPerContract
	plan := &FollowPlan{
		FlowID:          f.ID,
		Symbol:          f.Symbol,
		Contracts:       contracts,
		CostPerContract: costPerContract,
		TotalCost:       cost,
		Breakeven:       breakeven(f),
		Targets:         [3]float64{cost * 2, cost * 5, cost * 10},
		RiskLevel:       RiskLevelByDTE(f.DaysToExp),
	}
	plan.Recommendation = fmt.Sprintf(
		"Follow %s %s $%.2f %s with %d contract(s) (~$%.0f, %s risk): whale paid $%s, targets $%.0f / $%.0f / $%.0f",
		f.Symbol, f.OptionType, f.Strike, f.Expiration.Format("2006-01-02"),
		contracts, cost, plan.RiskLevel, humanDollars(f.TotalPremium),
		plan.Targets[0], plan.Targets[1], plan.Targets[2],
	)
	return plan, true
}

// scaleDivisor picks the whale-to-retail contract divisor by order size.
func scaleDivisor(totalPremium float64) float64 {
	switch {
	case totalPremium > 1_000_000:
		return 100_000
	case totalPremium > 500_000:
		return 50_000
	case totalPremium > 100_000:
		return 20_000
	default:
		return 10_000
	}
}

// RiskLevelByDTE grades a follow's time risk.
func RiskLevelByDTE(dte int) string {
	switch {
	case dte <= 7:
		return "EXTREME"
	case dte <= 21:
		return "HIGH"
	case dte <= 35:
		return "MODERATE"
	default:
		return "LOWER"
	}
}

// PortfolioPlan sizes a follow against a whole portfolio instead of the
// fixed dollar budget.
type PortfolioPlan struct {
	FlowID    string     `json:"flow_id"`
	Symbol    string     `json:"symbol"`
	RiskPct   float64    `json:"risk_pct"` // fraction of portfolio at risk
	Budget    float64    `json:"budget"`
	Contracts int        `json:"contracts"`
	TotalCost float64    `json:"total_cost"`
	Breakeven float64    `json:"breakeven"`
	Targets   [3]float64 `json:"targets"`
	Notes     []string   `json:"notes"`
}

// PortfolioFollow risks 1-3% of the portfolio by conviction. Returns
// false when even one contract exceeds the risk budget.
func PortfolioFollow(f *domain.WhaleFlow, score *EnhancedScore, portfolioValue float64) (*PortfolioPlan, bool) {
	if portfolioValue <= 0 || bearish(f.Sentiment) {
		return nil, false
	}

	riskPct := 0.01
	if score != nil {
		switch score.Conviction {
		case ConvictionExtreme:
			riskPct = 0.03
		case ConvictionHigh:
			riskPct = 0.02
		}
	}

	budget := portfolioValue * riskPct
	costPerContract := f.PremiumPerShare * domain.SharesPerContract
	if costPerContract <= 0 || costPerContract > budget {
		return nil, false
	}

	contracts := int(math.Floor(budget / costPerContract))
	cost := float64(contracts) * costPerContract

	plan := &PortfolioPlan{
		FlowID:    f.ID,
		Symbol:    f.Symbol,
		RiskPct:   riskPct,
		Budget:    budget,
		Contracts: contracts,
		TotalCost: cost,
		Breakeven: breakeven(f),
		Targets:   [3]float64{cost * 2, cost * 5, cost * 10},
		Notes: []string{
			"sell half at the 2x target, let the rest ride",
			"cut the position at -50% of cost",
			fmt.Sprintf("exit by %d DTE regardless; theta wins from there", int(math.Max(float64(f.DaysToExp)/3, 3))),
		},
	}
	return plan, true
}

func breakeven(f *domain.WhaleFlow) float64 {
	if f.OptionType == domain.OptionPut {
		return f.Strike - f.PremiumPerShare
	}
	return f.Strike + f.PremiumPerShare
}

func bearish(s domain.Sentiment) bool {
	switch s {
	case domain.SentimentBearish, domain.SentimentStrongBearish, domain.SentimentVeryBearish:
		return true
	}
	return false
}

func humanDollars(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.0fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
