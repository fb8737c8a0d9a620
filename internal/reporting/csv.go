package reporting

import (
	"fmt"
	"strings"
)

// RenderPatternCSV renders pattern buckets as CSV string.
func RenderPatternCSV(rows []PatternRow) string {
	var sb strings.Builder

	sb.WriteString("dimension,range,samples,wins,win_rate\n")
	for _, b := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f\n",
			b.Dimension, b.Range, b.Samples, b.Wins, b.WinRate))
	}

	return sb.String()
}

// RenderSymbolCSV renders per-symbol performance as CSV string.
func RenderSymbolCSV(rows []SymbolRow) string {
	var sb strings.Builder

	sb.WriteString("symbol,decisions,taken,completed,wins,win_rate,total_return\n")
	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%.6f,%.2f\n",
			s.Symbol, s.Decisions, s.Taken, s.Completed, s.Wins, s.WinRate, s.TotalReturn))
	}

	return sb.String()
}
