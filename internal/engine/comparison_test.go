package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

func TestNewBalanceComparisonRuleValidation(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		tolerance string
		wantErr   bool
	}{
		{"valid", "0.5", "1", false},
		{"target zero", "0", "0", false},
		{"target one", "1", "5", false},
		{"target above one", "1.1", "1", true},
		{"target negative", "-0.1", "1", true},
		{"tolerance negative", "0.5", "-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBalanceComparisonRule(d(t, tt.target), d(t, tt.tolerance))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEvaluateSkipsWithinTolerance(t *testing.T) {
	// qrl_value=50, usdt_value=50, target=0.5, tolerance=1% -> skip.
	rule, err := NewBalanceComparisonRule(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	res := rule.Evaluate(NormalizedBalances{
		BaseValue:  d(t, "50"),
		QuoteValue: d(t, "50"),
	})

	assert.Equal(t, ActionSkip, res.Action)
	assert.Contains(t, res.Reason, "within tolerance")
}

func TestEvaluateSkipsEmptyPortfolio(t *testing.T) {
	rule, err := NewBalanceComparisonRule(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	res := rule.Evaluate(NormalizedBalances{})

	assert.Equal(t, ActionSkip, res.Action)
	assert.Equal(t, "no balances to compare", res.Reason)
}

func TestEvaluateSellsExcessBase(t *testing.T) {
	// qrl_free=2, usdt_free=1 at mid=1: base value 2, quote value 1.
	// Target 0.5 of total 3 is 1.5, so the excess 0.5 should be sold.
	rule, err := NewBalanceComparisonRule(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	res := rule.Evaluate(NormalizedBalances{
		BaseValue:  d(t, "2"),
		QuoteValue: d(t, "1"),
	})

	assert.Equal(t, ActionTrade, res.Action)
	assert.Equal(t, domain.SideSell, res.PreferredSide)
	assert.True(t, res.Diff.Equal(d(t, "0.5")), "diff = %s", res.Diff)
}

func TestEvaluateBuysDeficit(t *testing.T) {
	rule, err := NewBalanceComparisonRule(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	res := rule.Evaluate(NormalizedBalances{
		BaseValue:  d(t, "10"),
		QuoteValue: d(t, "90"),
	})

	assert.Equal(t, ActionTrade, res.Action)
	assert.Equal(t, domain.SideBuy, res.PreferredSide)
	assert.True(t, res.Diff.Equal(d(t, "-40")), "diff = %s", res.Diff)
}

func TestEvaluateBoundaryExactlyAtTolerance(t *testing.T) {
	// current ratio 0.51 against target 0.50 is exactly 1% off: still a skip.
	rule, err := NewBalanceComparisonRule(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	res := rule.Evaluate(NormalizedBalances{
		BaseValue:  d(t, "51"),
		QuoteValue: d(t, "49"),
	})

	assert.Equal(t, ActionSkip, res.Action)
}
