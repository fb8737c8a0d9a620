package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/idhash"
	"covered-call-lab/internal/storage"
)

// Tracker owns the decision log: every opportunity shown, what the user
// did with it, and how it worked out. Closing this loop is what lets
// the pattern analysis grade the scanner's own heuristics.
type Tracker struct {
	decisions storage.DecisionStore
	trades    storage.OpenTradeStore
	flows     storage.WhaleFlowStore
	now       func() time.Time
}

// New creates a Tracker. flows may be nil when whale following is not
// wired up.
func New(decisions storage.DecisionStore, trades storage.OpenTradeStore, flows storage.WhaleFlowStore) *Tracker {
	return &Tracker{
		decisions: decisions,
		trades:    trades,
		flows:     flows,
		now:       time.Now,
	}
}

// LogOpportunity snapshots a shown opportunity into the decision log and
// returns the stored decision. A TAKE also opens a monitored trade.
func (t *Tracker) LogOpportunity(ctx context.Context, o *domain.Opportunity, action domain.DecisionAction, contracts int, notes string) (*domain.Decision, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil opportunity", storage.ErrInvalidInput)
	}
	now := t.now().UTC()

	d := &domain.Decision{
		ID:                  idhash.ComputeDecisionID(o.Symbol, o.Strike, o.Expiration, now),
		Timestamp:           now,
		Symbol:              o.Symbol,
		CurrentPrice:        o.CurrentPrice,
		Strike:              o.Strike,
		Expiration:          o.Expiration,
		DaysToExp:           o.DaysToExp,
		Premium:             o.Premium,
		Delta:               o.Delta,
		ImpliedVolatility:   o.ImpliedVolatility,
		IVRank:              o.IVRank,
		Volume:              o.Volume,
		OpenInterest:        o.OpenInterest,
		StaticReturnMonthly: o.StaticReturnMonthly,
		WinProbability:      o.WinProbability,
		ConfidenceScore:     o.ConfidenceScore,
		GrowthScore:         o.GrowthScore,
		EarningsBeforeExp:   o.EarningsBeforeExp,
		Decision:            action,
		Notes:               notes,
	}

	if action == domain.DecisionTake {
		if contracts <= 0 {
			return nil, fmt.Errorf("%w: TAKE requires a positive contract count", storage.ErrInvalidInput)
		}
		d.Contracts = contracts
	}

	if err := t.decisions.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("log decision %s: %w", d.ID, err)
	}

	if action == domain.DecisionTake {
		if err := t.openTrade(ctx, d); err != nil {
			// The decision is logged but unmonitored. Hand back the ID so
			// the caller can re-issue TAKE through Decide to open the trade.
			return d, err
		}
	}
	return d, nil
}

// Decide resolves a PENDING decision to TAKE or PASS. A TAKE also opens
// a monitored trade. Re-issuing TAKE for a decision already TAKE but
// missing its trade (a prior attempt failed between the two writes)
// opens the missing trade instead of failing.
func (t *Tracker) Decide(ctx context.Context, decisionID string, action domain.DecisionAction, contracts int, notes string) error {
	if action != domain.DecisionTake && action != domain.DecisionPass {
		return fmt.Errorf("%w: decision must resolve to TAKE or PASS", storage.ErrInvalidInput)
	}
	if action == domain.DecisionTake && contracts <= 0 {
		return fmt.Errorf("%w: TAKE requires a positive contract count", storage.ErrInvalidInput)
	}

	if err := t.decisions.SetAction(ctx, decisionID, action, contracts, notes); err != nil {
		if action == domain.DecisionTake && errors.Is(err, storage.ErrInvalidInput) {
			return t.resumeTake(ctx, decisionID, err)
		}
		return fmt.Errorf("resolve decision %s: %w", decisionID, err)
	}

	if action == domain.DecisionTake {
		d, err := t.decisions.GetByID(ctx, decisionID)
		if err != nil {
			return fmt.Errorf("load decision %s: %w", decisionID, err)
		}
		return t.openTrade(ctx, d)
	}
	return nil
}

// resumeTake handles a TAKE rejected because the decision is no longer
// PENDING. When it is already TAKE with no active trade, the earlier
// attempt died before the trade insert; finish it. Anything else keeps
// the original rejection.
func (t *Tracker) resumeTake(ctx context.Context, decisionID string, setErr error) error {
	d, err := t.decisions.GetByID(ctx, decisionID)
	if err != nil || d.Decision != domain.DecisionTake {
		return fmt.Errorf("resolve decision %s: %w", decisionID, setErr)
	}
	trade, err := t.activeTradeFor(ctx, decisionID)
	if err != nil {
		return err
	}
	if trade != nil {
		return fmt.Errorf("resolve decision %s: %w", decisionID, setErr)
	}
	return t.openTrade(ctx, d)
}

// activeTradeFor finds the active trade a decision spawned, if any.
func (t *Tracker) activeTradeFor(ctx context.Context, decisionID string) (*domain.OpenTrade, error) {
	trades, err := t.trades.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active trades: %w", err)
	}
	for _, tr := range trades {
		if tr.DecisionID == decisionID {
			return tr, nil
		}
	}
	return nil, nil
}

func (t *Tracker) openTrade(ctx context.Context, d *domain.Decision) error {
	entry := t.now().UTC()
	trade := &domain.OpenTrade{
		ID:                   idhash.ComputeTradeID(d.ID, entry),
		DecisionID:           d.ID,
		Symbol:               d.Symbol,
		Strike:               d.Strike,
		Expiration:           d.Expiration,
		Premium:              d.Premium,
		Contracts:            d.Contracts,
		UnderlyingPriceEntry: d.CurrentPrice,
		OriginalDTE:          d.DaysToExp,
		EntryDate:            entry,
	}
	if err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("open trade for decision %s: %w", d.ID, err)
	}
	return nil
}

// RecordOutcome completes a TAKE decision and closes its trade. The
// per-share actual return depends on how the trade ended:
// expired worthless keeps the whole premium, an early close keeps
// premium minus the buyback, and assignment nets premium plus the
// strike-versus-entry move. Returns the computed actual return.
func (t *Tracker) RecordOutcome(ctx context.Context, decisionID string, outcome domain.Outcome, closedPrice *float64, closedDate *time.Time) (float64, error) {
	d, err := t.decisions.GetByID(ctx, decisionID)
	if err != nil {
		return 0, fmt.Errorf("load decision %s: %w", decisionID, err)
	}

	actualReturn, err := actualReturn(d, outcome, closedPrice)
	if err != nil {
		return 0, err
	}

	when := t.now().UTC()
	if closedDate != nil {
		when = *closedDate
	}

	if err := t.decisions.CompleteOutcome(ctx, decisionID, outcome, actualReturn, when); err != nil {
		return 0, fmt.Errorf("complete decision %s: %w", decisionID, err)
	}

	if err := t.closeTradeFor(ctx, decisionID, outcome, closedPrice, actualReturn, when); err != nil {
		return 0, err
	}
	return actualReturn, nil
}

// actualReturn computes the per-share result of a finished trade.
func actualReturn(d *domain.Decision, outcome domain.Outcome, closedPrice *float64) (float64, error) {
	switch outcome {
	case domain.OutcomeExpiredWorthless:
		return d.Premium, nil
	case domain.OutcomeClosedEarly:
		if closedPrice == nil {
			return 0, fmt.Errorf("%w: CLOSED_EARLY requires the buyback price", storage.ErrInvalidInput)
		}
		return d.Premium - *closedPrice, nil
	case domain.OutcomeLoss, domain.OutcomeAssigned:
		return d.Premium + (d.Strike - d.CurrentPrice), nil
	case domain.OutcomeWin:
		if closedPrice != nil {
			return d.Premium - *closedPrice, nil
		}
		return d.Premium, nil
	}
	return 0, fmt.Errorf("%w: unknown outcome %q", storage.ErrInvalidInput, outcome)
}

// closeTradeFor closes the open trade spawned by a decision, if any.
func (t *Tracker) closeTradeFor(ctx context.Context, decisionID string, outcome domain.Outcome, closedPrice *float64, profit float64, when time.Time) error {
	tr, err := t.activeTradeFor(ctx, decisionID)
	if err != nil {
		return err
	}
	if tr == nil {
		return nil
	}
	price := 0.0
	if closedPrice != nil {
		price = *closedPrice
	}
	if err := t.trades.Close(ctx, tr.ID, price, profit, outcome, when); err != nil {
		return fmt.Errorf("close trade %s: %w", tr.ID, err)
	}
	return nil
}

// FollowWhaleFlow records a follow with its sizing.
func (t *Tracker) FollowWhaleFlow(ctx context.Context, flowID string, contracts int, cost float64) error {
	if t.flows == nil {
		return fmt.Errorf("%w: whale flow store not configured", storage.ErrInvalidInput)
	}
	if err := t.flows.MarkFollowed(ctx, flowID, contracts, cost); err != nil {
		return fmt.Errorf("follow flow %s: %w", flowID, err)
	}
	return nil
}

// RecordWhaleOutcome settles a followed flow's P&L.
func (t *Tracker) RecordWhaleOutcome(ctx context.Context, flowID string, outcome domain.Outcome, resultPnL float64) error {
	if t.flows == nil {
		return fmt.Errorf("%w: whale flow store not configured", storage.ErrInvalidInput)
	}
	if err := t.flows.RecordOutcome(ctx, flowID, outcome, resultPnL); err != nil {
		return fmt.Errorf("settle flow %s: %w", flowID, err)
	}
	return nil
}

// FollowedFlows lists every flow we tailed, oldest first.
func (t *Tracker) FollowedFlows(ctx context.Context) ([]*domain.WhaleFlow, error) {
	if t.flows == nil {
		return nil, nil
	}
	flows, err := t.flows.GetFollowed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list followed flows: %w", err)
	}
	return flows, nil
}
