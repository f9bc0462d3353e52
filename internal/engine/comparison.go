package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// Action is the comparison rule's verdict.
type Action string

const (
	ActionSkip  Action = "skip"
	ActionTrade Action = "trade"
)

var hundred = decimal.NewFromInt(100)

// ComparisonResult is the outcome of comparing the current allocation against
// the target ratio. Diff is the signed quote-notional deviation from target;
// its sign picks the side (excess base value sells, deficit buys).
type ComparisonResult struct {
	BaseValue     decimal.Decimal
	QuoteValue    decimal.Decimal
	Diff          decimal.Decimal
	Action        Action
	PreferredSide domain.Side // meaningful only when Action == ActionTrade
	Reason        string
}

// BalanceComparisonRule decides skip vs. trade by comparing the current base
// allocation ratio against a target within a tolerance band.
type BalanceComparisonRule struct {
	targetRatio  decimal.Decimal
	tolerancePct decimal.Decimal
}

// NewBalanceComparisonRule validates the knobs at construction: targetRatio
// must lie in [0, 1] and tolerancePct must be non-negative.
func NewBalanceComparisonRule(targetRatio, tolerancePct decimal.Decimal) (*BalanceComparisonRule, error) {
	if targetRatio.Sign() < 0 || targetRatio.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("engine: target ratio must be in [0, 1], got %s", targetRatio)
	}
	if tolerancePct.Sign() < 0 {
		return nil, fmt.Errorf("engine: tolerance must be non-negative, got %s", tolerancePct)
	}
	return &BalanceComparisonRule{targetRatio: targetRatio, tolerancePct: tolerancePct}, nil
}

// Evaluate compares balances against the target ratio.
func (r *BalanceComparisonRule) Evaluate(balances NormalizedBalances) ComparisonResult {
	res := ComparisonResult{
		BaseValue:  balances.BaseValue,
		QuoteValue: balances.QuoteValue,
	}

	total := balances.TotalValue()
	if total.Sign() <= 0 {
		res.Action = ActionSkip
		res.Reason = "no balances to compare"
		return res
	}

	currentRatio := balances.BaseValue.Div(total)
	diffPct := currentRatio.Sub(r.targetRatio).Mul(hundred)

	if diffPct.Abs().LessThanOrEqual(r.tolerancePct) {
		res.Action = ActionSkip
		res.Reason = fmt.Sprintf("allocation within tolerance: %s%% off target", diffPct.Round(4))
		return res
	}

	targetBaseValue := total.Mul(r.targetRatio)
	res.Diff = balances.BaseValue.Sub(targetBaseValue)
	res.Action = ActionTrade
	if res.Diff.Sign() > 0 {
		res.PreferredSide = domain.SideSell
	} else {
		res.PreferredSide = domain.SideBuy
	}
	return res
}
