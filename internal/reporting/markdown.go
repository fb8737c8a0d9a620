package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Covered Call Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Decisions | %d |\n", r.Summary.TotalDecisions))
	sb.WriteString(fmt.Sprintf("| Taken | %d |\n", r.Summary.Taken))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.Summary.Passed))
	sb.WriteString(fmt.Sprintf("| Pending | %d |\n", r.Summary.Pending))
	sb.WriteString(fmt.Sprintf("| Completed | %d |\n", r.Summary.Completed))
	sb.WriteString(fmt.Sprintf("| Wins | %d |\n", r.Summary.Wins))
	sb.WriteString(fmt.Sprintf("| Take Rate | %.2f%% |\n", r.Summary.TakeRate*100))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", r.Summary.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Total Return | $%.2f |\n", r.Summary.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Avg Return / Share | $%.2f |\n", r.Summary.AvgReturn))
	sb.WriteString(fmt.Sprintf("| Open Trades | %d |\n", r.Summary.OpenTrades))
	sb.WriteString("\n")

	// Best characteristics
	sb.WriteString("## Best Characteristics\n\n")
	if len(r.Best) > 0 {
		sb.WriteString("| Dimension | Range | Samples | Wins | WinRate |\n")
		sb.WriteString("|-----------|-------|---------|------|--------|\n")
		for _, b := range r.Best {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f%% |\n",
				b.Dimension, b.Range, b.Samples, b.Wins, b.WinRate*100))
		}
	} else {
		sb.WriteString("Not enough completed trades to surface winning characteristics.\n")
	}
	sb.WriteString("\n")

	// All pattern buckets
	sb.WriteString("## Pattern Buckets\n\n")
	if len(r.Patterns) > 0 {
		sb.WriteString("| Dimension | Range | Samples | Wins | WinRate |\n")
		sb.WriteString("|-----------|-------|---------|------|--------|\n")
		for _, b := range r.Patterns {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f%% |\n",
				b.Dimension, b.Range, b.Samples, b.Wins, b.WinRate*100))
		}
	} else {
		sb.WriteString("No completed trades yet.\n")
	}
	sb.WriteString("\n")

	// Symbol performance
	sb.WriteString("## Symbol Performance\n\n")
	if len(r.Symbols) > 0 {
		sb.WriteString("| Symbol | Decisions | Taken | Completed | Wins | WinRate | Return |\n")
		sb.WriteString("|--------|-----------|-------|-----------|------|---------|--------|\n")
		for _, s := range r.Symbols {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.2f%% | $%.2f |\n",
				s.Symbol, s.Decisions, s.Taken, s.Completed, s.Wins, s.WinRate*100, s.TotalReturn))
		}
	} else {
		sb.WriteString("No decisions logged.\n")
	}
	sb.WriteString("\n")

	// Pending outcomes
	sb.WriteString("## Pending Outcomes\n\n")
	if len(r.PendingOutcomes) > 0 {
		sb.WriteString("| Decision | Symbol | Strike | Expiration | Premium | Contracts |\n")
		sb.WriteString("|----------|--------|--------|------------|---------|----------|\n")
		for _, p := range r.PendingOutcomes {
			sb.WriteString(fmt.Sprintf("| %.12s | %s | %.2f | %s | %.2f | %d |\n",
				p.DecisionID, p.Symbol, p.Strike, p.Expiration.Format("2006-01-02"), p.Premium, p.Contracts))
		}
	} else {
		sb.WriteString("No taken trades are awaiting an outcome.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
