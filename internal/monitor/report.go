package monitor

import (
	"sort"
	"sync"

	"covered-call-lab/internal/domain"
)

// Report is one monitoring pass over every open trade, grouped by action.
type Report struct {
	CloseNow    []*Alert `json:"close_now"`
	Monitor     []*Alert `json:"monitor"`
	Approaching []*Alert `json:"approaching_21dte"`
	AllClear    []*Alert `json:"all_clear"`
}

// Alerts returns every alert in the report, most urgent group first.
func (r *Report) Alerts() []*Alert {
	out := make([]*Alert, 0, len(r.CloseNow)+len(r.Monitor)+len(r.Approaching)+len(r.AllClear))
	out = append(out, r.CloseNow...)
	out = append(out, r.Monitor...)
	out = append(out, r.Approaching...)
	out = append(out, r.AllClear...)
	return out
}

// EvaluateAll runs every trade through the rule and groups the alerts.
// Trades without a price are skipped; one symbol's missing data never
// stops the pass.
func (e *Engine) EvaluateAll(trades []*domain.OpenTrade, prices map[string]float64, deltas map[string]float64) *Report {
	r := &Report{}
	for _, t := range trades {
		if t.Closed {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok || price <= 0 {
			continue
		}
		a := e.Evaluate(t, price, deltas[t.Symbol])
		switch a.Action {
		case ActionCloseNow:
			r.CloseNow = append(r.CloseNow, a)
		case ActionMonitor:
			r.Monitor = append(r.Monitor, a)
		case ActionApproaching:
			r.Approaching = append(r.Approaching, a)
		default:
			r.AllClear = append(r.AllClear, a)
		}
	}

	sort.Slice(r.CloseNow, func(i, j int) bool {
		return priorityRank(r.CloseNow[i].Priority) < priorityRank(r.CloseNow[j].Priority)
	})
	return r
}

// Summary aggregates one pass for display.
type Summary struct {
	OpenTrades       int     `json:"open_trades"`
	FlaggedTrades    int     `json:"flagged_trades"`
	CriticalCount    int     `json:"critical_count"`
	CapturableProfit float64 `json:"capturable_profit"`

	// Profit-tier counts across all evaluated trades.
	Profit50Plus   int `json:"profit_50_plus"`
	Profit40Plus   int `json:"profit_40_plus"`
	Profit30Plus   int `json:"profit_30_plus"`
	ProfitPositive int `json:"profit_positive"`
}

// Summarize reduces a report to counts and capturable dollars. Only
// flagged (close-now and monitor) positions contribute to the
// capturable total.
func Summarize(r *Report) *Summary {
	s := &Summary{}
	for _, a := range r.Alerts() {
		s.OpenTrades++
		switch {
		case a.ProfitPct >= 0.50:
			s.Profit50Plus++
			fallthrough
		case a.ProfitPct >= 0.40:
			s.Profit40Plus++
			fallthrough
		case a.ProfitPct >= 0.30:
			s.Profit30Plus++
			fallthrough
		case a.ProfitPct > 0:
			s.ProfitPositive++
		}
	}
	for _, a := range append(append([]*Alert{}, r.CloseNow...), r.Monitor...) {
		s.FlaggedTrades++
		if a.CapturableProfit > 0 {
			s.CapturableProfit += a.CapturableProfit
		}
		if a.Priority == PriorityCritical {
			s.CriticalCount++
		}
	}
	return s
}

// ClosingRecommendations lists actionable alerts, most urgent first:
// every close-now alert plus monitor alerts already rich in profit.
func ClosingRecommendations(r *Report, minMonitorProfit float64) []*Alert {
	out := append([]*Alert{}, r.CloseNow...)
	for _, a := range r.Monitor {
		if a.ProfitPct >= minMonitorProfit {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if pi, pj := priorityRank(out[i].Priority), priorityRank(out[j].Priority); pi != pj {
			return pi < pj
		}
		return out[i].ProfitPct > out[j].ProfitPct
	})
	return out
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// Deduper suppresses alerts already shown this session. Critical alerts
// always show.
type Deduper struct {
	mu    sync.Mutex
	shown map[string]bool
}

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{shown: make(map[string]bool)}
}

// ShouldShow reports whether to surface the alert and records it.
func (d *Deduper) ShouldShow(a *Alert) bool {
	if a.Priority == PriorityCritical {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shown[a.ID] {
		return false
	}
	d.shown[a.ID] = true
	return true
}

// Reset clears the shown set, typically at the start of a trading day.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = make(map[string]bool)
}
