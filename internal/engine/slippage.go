package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// Assessment is the slippage analyzer's verdict for a simulated execution.
type Assessment struct {
	ExpectedFill decimal.Decimal
	SlippagePct  decimal.Decimal
	Acceptable   bool
	Reason       string
}

// SlippageAnalyzer compares a simulated weighted execution price against the
// desired reference price and accepts or rejects based on a threshold
// percentage.
type SlippageAnalyzer struct {
	thresholdPct decimal.Decimal
}

// NewSlippageAnalyzer validates the threshold at construction.
func NewSlippageAnalyzer(thresholdPct decimal.Decimal) (*SlippageAnalyzer, error) {
	if thresholdPct.Sign() < 0 {
		return nil, fmt.Errorf("engine: slippage threshold must be non-negative, got %s", thresholdPct)
	}
	return &SlippageAnalyzer{thresholdPct: thresholdPct}, nil
}

// Assess applies the rejection rules in order: no fill at all, partial fill,
// then the price check. A positive delta means the weighted price is worse
// than desired in the direction that costs the trader; executions at or
// better than the desired price are always acceptable. A non-positive
// desiredPrice is a contract violation and returns an error.
func (a *SlippageAnalyzer) Assess(side domain.Side, desiredPrice, targetQty, fillQty, weightedPrice decimal.Decimal) (Assessment, error) {
	if fillQty.Sign() <= 0 {
		return Assessment{
			ExpectedFill: decimal.Zero,
			SlippagePct:  hundred,
			Reason:       "no executable depth",
		}, nil
	}

	if fillQty.LessThan(targetQty) {
		return Assessment{
			ExpectedFill: fillQty,
			SlippagePct:  hundred,
			Reason:       "insufficient depth for target quantity",
		}, nil
	}

	if desiredPrice.Sign() <= 0 {
		return Assessment{}, fmt.Errorf("engine: assess: desired price must be positive, got %s", desiredPrice)
	}

	delta := weightedPrice.Sub(desiredPrice)
	if side == domain.SideSell {
		delta = desiredPrice.Sub(weightedPrice)
	}
	slippagePct := delta.Div(desiredPrice).Mul(hundred)

	if delta.Sign() <= 0 {
		return Assessment{
			ExpectedFill: fillQty,
			SlippagePct:  slippagePct,
			Acceptable:   true,
		}, nil
	}

	if slippagePct.LessThanOrEqual(a.thresholdPct) {
		return Assessment{
			ExpectedFill: fillQty,
			SlippagePct:  slippagePct,
			Acceptable:   true,
		}, nil
	}

	return Assessment{
		ExpectedFill: fillQty,
		SlippagePct:  slippagePct,
		Reason:       "slippage exceeds threshold",
	}, nil
}
