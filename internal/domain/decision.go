package domain

import "time"

// DecisionAction is the user's response to a shown opportunity.
type DecisionAction string

// Decision actions
const (
	DecisionTake    DecisionAction = "TAKE"
	DecisionPass    DecisionAction = "PASS"
	DecisionPending DecisionAction = "PENDING"
)

// Outcome classifies how a taken trade resolved.
type Outcome string

// Trade outcomes
const (
	OutcomeWin              Outcome = "WIN"
	OutcomeLoss             Outcome = "LOSS"
	OutcomeExpiredWorthless Outcome = "EXPIRED_WORTHLESS"
	OutcomeClosedEarly      Outcome = "CLOSED_EARLY"
	OutcomeAssigned         Outcome = "ASSIGNED"
)

// Decision is a durable record of one Opportunity being shown and the
// user's response. Append-only except for the single outcome-completion
// mutation, which is allowed only after decision=TAKE.
type Decision struct {
	ID        string
	Timestamp time.Time

	// Opportunity snapshot, immutable after creation.
	Symbol                string
	CurrentPrice          float64
	Strike                float64
	Expiration            time.Time
	DaysToExp             int
	Premium               float64
	Delta                 float64
	ImpliedVolatility     float64
	IVRank                float64
	Volume                int64
	OpenInterest          int64
	StaticReturnMonthly   float64
	WinProbability        float64
	ConfidenceScore       float64
	GrowthScore           float64
	EarningsBeforeExp     bool

	Decision  DecisionAction
	Contracts int // set when decision = TAKE
	Notes     string

	// Set at most once, after decision = TAKE.
	Outcome      *Outcome
	ActualReturn *float64 // per share
	ClosedDate   *time.Time
}

// Completed reports whether the decision has a recorded outcome.
func (d *Decision) Completed() bool {
	return d.Outcome != nil
}
