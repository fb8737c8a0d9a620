package monitor

import (
	"fmt"
	"math"
	"time"

	"covered-call-lab/internal/domain"
)

// Action is what the 21-50-7 rule says to do with an open trade.
type Action string

// Actions, from most to least urgent.
const (
	ActionCloseNow    Action = "CLOSE_NOW"
	ActionMonitor     Action = "MONITOR"
	ActionApproaching Action = "APPROACHING"
	ActionNone        Action = "NONE"
)

// Priority grades an alert for display ordering and de-duplication.
type Priority string

// Priorities
const (
	PriorityCritical Priority = "CRITICAL"
	PriorityUrgent   Priority = "URGENT"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
	PriorityInfo     Priority = "INFO"
)

// Assignment risk grades.
const (
	AssignmentLow    = "LOW"
	AssignmentMedium = "MEDIUM"
	AssignmentHigh   = "HIGH"
)

// Config tunes the rule engine. DefaultConfig returns the 21-50-7
// thresholds the system is named for.
type Config struct {
	ProfitTarget   float64 // close at this fraction of max profit
	UrgentProfit   float64 // monitor upgrades to MEDIUM at this profit
	MonitorDTE     int     // watch closely from here in
	ApproachingDTE int
	GammaDTE       int // force close from here in
	UrgentDTE      int
	CriticalDTE    int

	FloorPrice    float64 // minimum estimate while the option lives
	LimitMultiple float64 // limit order at estimate x this

	DeltaHighRisk     float64
	DeltaElevatedRisk float64
}

// DefaultConfig returns the standard 21-50-7 thresholds.
func DefaultConfig() Config {
	return Config{
		ProfitTarget:      0.50,
		UrgentProfit:      0.40,
		MonitorDTE:        21,
		ApproachingDTE:    30,
		GammaDTE:          7,
		UrgentDTE:         3,
		CriticalDTE:       1,
		FloorPrice:        0.05,
		LimitMultiple:     1.05,
		DeltaHighRisk:     0.85,
		DeltaElevatedRisk: 0.70,
	}
}

// Instruction is the order suggestion attached to a close alert.
type Instruction struct {
	OrderType  string  `json:"order_type"` // "limit" or "market"
	LimitPrice float64 `json:"limit_price,omitempty"`
	Text       string  `json:"text"`
}

// Alert is one evaluation of one open trade. Derived each pass, never
// stored; the ID is stable so repeated passes de-duplicate cleanly.
type Alert struct {
	ID         string    `json:"id"`
	TradeID    string    `json:"trade_id"`
	Symbol     string    `json:"symbol"`
	Strike     float64   `json:"strike"`
	Expiration time.Time `json:"expiration"`
	DaysToExp  int       `json:"days_to_exp"`

	Action   Action   `json:"action"`
	Priority Priority `json:"priority"`
	Reason   string   `json:"reason"`

	EntryPremium   float64 `json:"entry_premium"`
	EstimatedPrice float64 `json:"estimated_price"`
	ProfitPct      float64 `json:"profit_pct"` // fractional, of max profit
	Contracts      int     `json:"contracts"`

	// CapturableProfit is the dollar profit locked in by closing at the
	// estimate, across all contracts.
	CapturableProfit float64 `json:"capturable_profit"`

	AssignmentRisk string       `json:"assignment_risk"`
	Instruction    *Instruction `json:"instruction,omitempty"`
}

// Engine evaluates open trades against the 21-50-7 rule.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an Engine. A zero Config adopts the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.ProfitTarget == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// Evaluate runs one trade through the rule. stockPrice is the current
// underlying; delta may be zero when unknown. The rules apply in fixed
// priority order and the first match wins.
func (e *Engine) Evaluate(t *domain.OpenTrade, stockPrice, delta float64) *Alert {
	dte := daysBetween(e.now(), t.Expiration)
	estimate := e.estimatePrice(t, stockPrice, dte)

	var profitPct float64
	if t.Premium > 0 {
		profitPct = (t.Premium - estimate) / t.Premium
	}

	a := &Alert{
		TradeID:          t.ID,
		Symbol:           t.Symbol,
		Strike:           t.Strike,
		Expiration:       t.Expiration,
		DaysToExp:        dte,
		EntryPremium:     t.Premium,
		EstimatedPrice:   estimate,
		ProfitPct:        profitPct,
		Contracts:        t.Contracts,
		CapturableProfit: (t.Premium - estimate) * float64(t.Contracts) * domain.SharesPerContract,
		AssignmentRisk:   e.assignmentRisk(t, stockPrice, delta),
	}

	switch {
	case profitPct >= e.cfg.ProfitTarget:
		a.Action = ActionCloseNow
		a.Priority = PriorityHigh
		a.Reason = fmt.Sprintf("hit profit target: %.0f%% of max profit captured", profitPct*100)
	case dte <= e.cfg.GammaDTE:
		a.Action = ActionCloseNow
		switch {
		case dte <= e.cfg.CriticalDTE:
			a.Priority = PriorityCritical
		case dte <= e.cfg.UrgentDTE:
			a.Priority = PriorityUrgent
		default:
			a.Priority = PriorityHigh
		}
		a.Reason = fmt.Sprintf("gamma risk: %d days to expiration", dte)
	case dte <= e.cfg.MonitorDTE:
		a.Action = ActionMonitor
		if profitPct >= e.cfg.UrgentProfit {
			a.Priority = PriorityMedium
			a.Reason = fmt.Sprintf("inside %d DTE with %.0f%% captured, close on strength", e.cfg.MonitorDTE, profitPct*100)
		} else {
			a.Priority = PriorityLow
			a.Reason = fmt.Sprintf("inside %d DTE, watch daily", e.cfg.MonitorDTE)
		}
	case dte <= e.cfg.ApproachingDTE:
		a.Action = ActionApproaching
		a.Priority = PriorityInfo
		a.Reason = fmt.Sprintf("approaching the %d DTE line", e.cfg.MonitorDTE)
	default:
		a.Action = ActionNone
		a.Priority = PriorityInfo
		a.Reason = "nothing to do yet"
	}

	a.ID = alertID(t.Symbol, t.Strike, t.Expiration, a.Action)
	if a.Action == ActionCloseNow {
		a.Instruction = e.closingInstruction(estimate)
	}
	return a
}

// estimatePrice approximates the option's current price: intrinsic
// value plus entry extrinsic decayed by sqrt of remaining time, floored
// at FloorPrice while the option lives.
func (e *Engine) estimatePrice(t *domain.OpenTrade, stockPrice float64, dte int) float64 {
	intrinsic := math.Max(0, stockPrice-t.Strike)
	if dte <= 0 {
		return intrinsic
	}

	entryIntrinsic := math.Max(0, t.UnderlyingPriceEntry-t.Strike)
	extrinsic := math.Max(0, t.Premium-entryIntrinsic)

	decay := 1.0
	if t.OriginalDTE > 0 {
		decay = math.Sqrt(float64(dte) / float64(t.OriginalDTE))
	}

	return math.Max(intrinsic+extrinsic*decay, e.cfg.FloorPrice)
}

// closingInstruction suggests the order: a limit a nudge above the
// estimate, or just a market order once the option is down to pennies.
func (e *Engine) closingInstruction(estimate float64) *Instruction {
	if estimate <= e.cfg.FloorPrice {
		return &Instruction{
			OrderType: "market",
			Text:      "buy to close at market; there is nothing left to haggle over",
		}
	}
	limit := math.Round(estimate*e.cfg.LimitMultiple*100) / 100
	return &Instruction{
		OrderType:  "limit",
		LimitPrice: limit,
		Text:       fmt.Sprintf("buy to close, limit $%.2f", limit),
	}
}

// assignmentRisk grades the odds of early assignment. Delta rules when
// known; otherwise moneyness stands in.
func (e *Engine) assignmentRisk(t *domain.OpenTrade, stockPrice, delta float64) string {
	if delta != 0 {
		switch {
		case delta >= e.cfg.DeltaHighRisk:
			return AssignmentHigh
		case delta >= e.cfg.DeltaElevatedRisk:
			return AssignmentMedium
		}
		return AssignmentLow
	}
	if stockPrice <= 0 || t.Strike <= 0 {
		return AssignmentLow
	}
	switch moneyness := (stockPrice - t.Strike) / t.Strike; {
	case moneyness > 0.02:
		return AssignmentHigh
	case moneyness > -0.02:
		return AssignmentMedium
	default:
		return AssignmentLow
	}
}

func alertID(symbol string, strike float64, expiration time.Time, action Action) string {
	return fmt.Sprintf("%s-%.2f-%s-%s", symbol, strike, expiration.Format("2006-01-02"), action)
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
