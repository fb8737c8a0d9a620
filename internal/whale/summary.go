package whale

import (
	"sort"

	"covered-call-lab/internal/domain"
)

// SymbolPremium is one row of a daily summary's top-symbols table.
type SymbolPremium struct {
	Symbol       string  `json:"symbol"`
	Flows        int     `json:"flows"`
	TotalPremium float64 `json:"total_premium"`
}

// Summary aggregates one batch of detected flows.
type Summary struct {
	TotalFlows    int             `json:"total_flows"`
	BullishCount  int             `json:"bullish_count"`
	BearishCount  int             `json:"bearish_count"`
	TotalPremium  float64         `json:"total_premium"`
	AvgConfidence float64         `json:"avg_confidence"`
	TopSymbols    []SymbolPremium `json:"top_symbols"`
}

// DailySummary aggregates flows: direction counts, premium totals, and
// the top five symbols by premium.
func DailySummary(flows []*domain.WhaleFlow) *Summary {
	s := &Summary{TotalFlows: len(flows)}
	if len(flows) == 0 {
		return s
	}

	bySymbol := make(map[string]*SymbolPremium)
	var confidenceSum float64

	for _, f := range flows {
		if bearish(f.Sentiment) {
			s.BearishCount++
		} else if f.Sentiment != domain.SentimentNeutral {
			s.BullishCount++
		}
		s.TotalPremium += f.TotalPremium
		confidenceSum += f.Confidence

		row, ok := bySymbol[f.Symbol]
		if !ok {
			row = &SymbolPremium{Symbol: f.Symbol}
			bySymbol[f.Symbol] = row
		}
		row.Flows++
		row.TotalPremium += f.TotalPremium
	}

	s.AvgConfidence = confidenceSum / float64(len(flows))

	for _, row := range bySymbol {
		s.TopSymbols = append(s.TopSymbols, *row)
	}
	sort.Slice(s.TopSymbols, func(i, j int) bool {
		return s.TopSymbols[i].TotalPremium > s.TopSymbols[j].TotalPremium
	})
	if len(s.TopSymbols) > 5 {
		s.TopSymbols = s.TopSymbols[:5]
	}
	return s
}

// FlowFilter selects flows. Zero values do not constrain.
type FlowFilter struct {
	MinConfidence float64
	OptionType    domain.OptionType
	MaxRisk       string // highest acceptable RiskLevelByDTE grade
}

// FilterFlows returns the flows passing every set criterion.
func FilterFlows(flows []*domain.WhaleFlow, filter FlowFilter) []*domain.WhaleFlow {
	maxRisk := riskRank(filter.MaxRisk)

	var out []*domain.WhaleFlow
	for _, f := range flows {
		if f.Confidence < filter.MinConfidence {
			continue
		}
		if filter.OptionType != "" && f.OptionType != filter.OptionType {
			continue
		}
		if maxRisk > 0 && riskRank(RiskLevelByDTE(f.DaysToExp)) > maxRisk {
			continue
		}
		out = append(out, f)
	}
	return out
}

// riskRank orders risk grades, mildest first. Unknown grades rank 0 and
// disable the filter.
func riskRank(level string) int {
	switch level {
	case "LOWER":
		return 1
	case "MODERATE":
		return 2
	case "HIGH":
		return 3
	case "EXTREME":
		return 4
	}
	return 0
}
