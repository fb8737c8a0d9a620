package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/storage"
)

// Manager owns the position ledger. All mutations persist through the
// backing store before returning.
type Manager struct {
	store storage.PositionStore
	now   func() time.Time
}

// NewManager creates a new ledger Manager.
func NewManager(store storage.PositionStore) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
	}
}

// Update describes a partial position update. Nil fields are left unchanged.
type Update struct {
	Shares      *int
	CostBasis   *float64
	AccountType *domain.AccountType
	Notes       *string
}

// Add records purchased shares. Symbols are normalized to uppercase. When
// the (symbol, account) key already exists, the new shares are merged in
// and the cost basis becomes the weighted average of both lots.
func (m *Manager) Add(ctx context.Context, symbol string, shares int, costBasis float64, account domain.AccountType, notes string) (*domain.Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", storage.ErrInvalidInput)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %d", storage.ErrInvalidInput, shares)
	}
	if costBasis <= 0 {
		return nil, fmt.Errorf("%w: cost basis must be positive, got %.2f", storage.ErrInvalidInput, costBasis)
	}
	if !validAccount(account) {
		return nil, fmt.Errorf("%w: unknown account type %q", storage.ErrInvalidInput, account)
	}

	key := domain.PositionKey{Symbol: symbol, AccountType: account}
	existing, err := m.store.GetByKey(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load position %s: %w", key, err)
	}

	if existing != nil {
		merged := *existing
		merged.CostBasis = blendedCostBasis(existing.Shares, existing.CostBasis, shares, costBasis)
		merged.Shares = existing.Shares + shares
		if notes != "" {
			merged.Notes = notes
		}
		if err := m.store.Update(ctx, key, &merged); err != nil {
			return nil, fmt.Errorf("merge position %s: %w", key, err)
		}
		return &merged, nil
	}

	p := &domain.Position{
		Symbol:      symbol,
		Shares:      shares,
		CostBasis:   costBasis,
		AccountType: account,
		Notes:       notes,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("insert position %s: %w", key, err)
	}
	return p, nil
}

// UpdatePosition applies a partial update. Changing the account type
// re-keys the position; the move fails if the target key is already
// occupied, since merging across accounts is not done implicitly.
func (m *Manager) UpdatePosition(ctx context.Context, key domain.PositionKey, upd Update) (*domain.Position, error) {
	existing, err := m.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("position %s not found: %w", key, err)
		}
		return nil, fmt.Errorf("load position %s: %w", key, err)
	}

	updated := *existing
	if upd.Shares != nil {
		if *upd.Shares < 0 {
			return nil, fmt.Errorf("%w: shares must not be negative, got %d", storage.ErrInvalidInput, *upd.Shares)
		}
		updated.Shares = *upd.Shares
	}
	if upd.CostBasis != nil {
		if *upd.CostBasis <= 0 {
			return nil, fmt.Errorf("%w: cost basis must be positive, got %.2f", storage.ErrInvalidInput, *upd.CostBasis)
		}
		updated.CostBasis = *upd.CostBasis
	}
	if upd.Notes != nil {
		updated.Notes = *upd.Notes
	}
	if upd.AccountType != nil {
		if !validAccount(*upd.AccountType) {
			return nil, fmt.Errorf("%w: unknown account type %q", storage.ErrInvalidInput, *upd.AccountType)
		}
		updated.AccountType = *upd.AccountType
	}

	if err := m.store.Update(ctx, key, &updated); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("cannot move %s to %s, target position exists: %w", key, updated.Key(), err)
		}
		return nil, fmt.Errorf("update position %s: %w", key, err)
	}
	return &updated, nil
}

// Delete removes a position. Deleting an unknown key is not an error;
// the bool reports whether anything was removed.
func (m *Manager) Delete(ctx context.Context, key domain.PositionKey) (bool, error) {
	err := m.store.Delete(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete position %s: %w", key, err)
	}
	return true, nil
}

// AllPositions returns every position, ordered by symbol then account.
func (m *Manager) AllPositions(ctx context.Context) ([]*domain.Position, error) {
	positions, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// PositionsByAccount returns positions held in a single account type.
func (m *Manager) PositionsByAccount(ctx context.Context, account domain.AccountType) ([]*domain.Position, error) {
	positions, err := m.store.GetByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list %s positions: %w", account, err)
	}
	return positions, nil
}

// EligiblePositions aggregates holdings by symbol across accounts and
// returns the symbols with at least minShares combined. When the shares
// span more than one account the aggregate is labeled AccountMultiple.
// minShares defaults to one contract's worth when not positive.
func (m *Manager) EligiblePositions(ctx context.Context, minShares int) ([]*domain.Position, error) {
	if minShares <= 0 {
		minShares = domain.SharesPerContract
	}

	positions, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	bySymbol := make(map[string][]*domain.Position)
	for _, p := range positions {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	var eligible []*domain.Position
	for symbol, group := range bySymbol {
		agg := aggregate(symbol, group)
		if agg.Shares >= minShares {
			eligible = append(eligible, agg)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Symbol < eligible[j].Symbol
	})
	return eligible, nil
}

// CoveredCallCapacity returns contracts of capacity per symbol,
// aggregated across accounts. Symbols below one contract are omitted.
func (m *Manager) CoveredCallCapacity(ctx context.Context) (map[string]int, error) {
	positions, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	shares := make(map[string]int)
	for _, p := range positions {
		shares[p.Symbol] += p.Shares
	}

	capacity := make(map[string]int)
	for symbol, total := range shares {
		if contracts := total / domain.SharesPerContract; contracts > 0 {
			capacity[symbol] = contracts
		}
	}
	return capacity, nil
}

// SymbolValue is the per-symbol line of a portfolio valuation.
type SymbolValue struct {
	Symbol      string  `json:"symbol"`
	Shares      int     `json:"shares"`
	CostBasis   float64 `json:"cost_basis"`
	Cost        float64 `json:"cost"`
	Price       float64 `json:"price,omitempty"`
	Value       float64 `json:"value,omitempty"`
	GainLoss    float64 `json:"gain_loss,omitempty"`
	GainLossPct float64 `json:"gain_loss_pct,omitempty"`
	Priced      bool    `json:"priced"`
}

// ValueSummary is a portfolio valuation against a set of current prices.
// TotalCost covers every holding; value and gain figures cover only the
// symbols a price was supplied for.
type ValueSummary struct {
	TotalValue  float64       `json:"total_value"`
	TotalCost   float64       `json:"total_cost"`
	PricedCost  float64       `json:"priced_cost"`
	GainLoss    float64       `json:"gain_loss"`
	GainLossPct float64       `json:"gain_loss_pct"`
	Symbols     []SymbolValue `json:"symbols"`
}

// TotalValue values the portfolio at the supplied prices. Symbols
// missing from prices still contribute to TotalCost but are excluded
// from value and gain totals.
func (m *Manager) TotalValue(ctx context.Context, prices map[string]float64) (*ValueSummary, error) {
	positions, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	bySymbol := make(map[string][]*domain.Position)
	var symbols []string
	for _, p := range positions {
		if _, seen := bySymbol[p.Symbol]; !seen {
			symbols = append(symbols, p.Symbol)
		}
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}
	sort.Strings(symbols)

	summary := &ValueSummary{}
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	pricedCost := decimal.Zero

	for _, symbol := range symbols {
		agg := aggregate(symbol, bySymbol[symbol])
		cost := decimal.NewFromFloat(agg.CostBasis).Mul(decimal.NewFromInt(int64(agg.Shares)))
		totalCost = totalCost.Add(cost)

		line := SymbolValue{
			Symbol:    symbol,
			Shares:    agg.Shares,
			CostBasis: agg.CostBasis,
			Cost:      cost.InexactFloat64(),
		}

		if price, ok := prices[symbol]; ok {
			value := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(agg.Shares)))
			gain := value.Sub(cost)

			line.Priced = true
			line.Price = price
			line.Value = value.InexactFloat64()
			line.GainLoss = gain.InexactFloat64()
			if !cost.IsZero() {
				line.GainLossPct = gain.Div(cost).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}

			totalValue = totalValue.Add(value)
			pricedCost = pricedCost.Add(cost)
		}

		summary.Symbols = append(summary.Symbols, line)
	}

	summary.TotalValue = totalValue.InexactFloat64()
	summary.TotalCost = totalCost.InexactFloat64()
	summary.PricedCost = pricedCost.InexactFloat64()
	gain := totalValue.Sub(pricedCost)
	summary.GainLoss = gain.InexactFloat64()
	if !pricedCost.IsZero() {
		summary.GainLossPct = gain.Div(pricedCost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return summary, nil
}

// aggregate collapses one symbol's per-account positions into a single
// combined view with weighted-average cost basis.
func aggregate(symbol string, group []*domain.Position) *domain.Position {
	if len(group) == 1 {
		agg := *group[0]
		return &agg
	}

	agg := &domain.Position{
		Symbol:      symbol,
		AccountType: domain.AccountMultiple,
		CreatedAt:   group[0].CreatedAt,
	}
	totalCost := decimal.Zero
	for _, p := range group {
		agg.Shares += p.Shares
		totalCost = totalCost.Add(decimal.NewFromFloat(p.CostBasis).Mul(decimal.NewFromInt(int64(p.Shares))))
		if p.CreatedAt.Before(agg.CreatedAt) {
			agg.CreatedAt = p.CreatedAt
		}
	}
	if agg.Shares > 0 {
		agg.CostBasis = totalCost.Div(decimal.NewFromInt(int64(agg.Shares))).InexactFloat64()
	}
	return agg
}

func blendedCostBasis(oldShares int, oldBasis float64, newShares int, newBasis float64) float64 {
	oldCost := decimal.NewFromFloat(oldBasis).Mul(decimal.NewFromInt(int64(oldShares)))
	newCost := decimal.NewFromFloat(newBasis).Mul(decimal.NewFromInt(int64(newShares)))
	total := decimal.NewFromInt(int64(oldShares + newShares))
	if total.IsZero() {
		return newBasis
	}
	return oldCost.Add(newCost).Div(total).InexactFloat64()
}

func validAccount(account domain.AccountType) bool {
	switch account {
	case domain.AccountTaxable, domain.AccountRoth, domain.AccountTraditional:
		return true
	}
	return false
}
