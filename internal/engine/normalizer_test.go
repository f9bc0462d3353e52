package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

func qrlUsdt(t *testing.T) domain.Symbol {
	t.Helper()
	sym, err := domain.NewSymbol("QRL", "USDT")
	require.NoError(t, err)
	return sym
}

func TestNormalizeValuesTotals(t *testing.T) {
	acct := domain.Account{Balances: []domain.Balance{
		{Asset: "QRL", Free: d(t, "10"), Locked: d(t, "2")},
		{Asset: "USDT", Free: d(t, "5"), Locked: d(t, "1")},
		{Asset: "BTC", Free: d(t, "0.5")}, // unrelated assets are ignored
	}}

	n := NewBalanceNormalizer(qrlUsdt(t), false)
	got, err := n.Normalize(acct, d(t, "0.5"))
	require.NoError(t, err)

	assert.True(t, got.BaseValue.Equal(d(t, "6")), "base = %s", got.BaseValue)
	assert.True(t, got.QuoteValue.Equal(d(t, "6")), "quote = %s", got.QuoteValue)
	assert.True(t, got.TotalValue().Equal(d(t, "12")))
}

func TestNormalizeFreeOnlyPolicy(t *testing.T) {
	acct := domain.Account{Balances: []domain.Balance{
		{Asset: "QRL", Free: d(t, "10"), Locked: d(t, "2")},
		{Asset: "USDT", Free: d(t, "5"), Locked: d(t, "1")},
	}}

	n := NewBalanceNormalizer(qrlUsdt(t), true)
	got, err := n.Normalize(acct, d(t, "0.5"))
	require.NoError(t, err)

	assert.True(t, got.BaseValue.Equal(d(t, "5")), "base = %s", got.BaseValue)
	assert.True(t, got.QuoteValue.Equal(d(t, "5")), "quote = %s", got.QuoteValue)
}

func TestNormalizeRejectsNonPositiveMid(t *testing.T) {
	n := NewBalanceNormalizer(qrlUsdt(t), false)

	_, err := n.Normalize(domain.Account{}, d(t, "0"))
	require.Error(t, err)

	_, err = n.Normalize(domain.Account{}, d(t, "-1"))
	require.Error(t, err)
}

func TestNormalizeMissingAssetsValueZero(t *testing.T) {
	n := NewBalanceNormalizer(qrlUsdt(t), false)

	got, err := n.Normalize(domain.Account{}, d(t, "1"))
	require.NoError(t, err)

	assert.True(t, got.TotalValue().IsZero())
}
