package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDecimals(d uint8) func(context.Context) (uint8, error) {
	return func(context.Context) (uint8, error) { return d, nil }
}

func TestRebaseToTokenBaseUnits(t *testing.T) {
	// Currency with 2 decimal places, token with 18: 136.30 becomes
	// 13630 currency base units times 10^16.
	r := NewRebaser(2, fixedDecimals(18))

	got, err := r.Rebase(context.Background(), decimal.RequireFromString("136.30"))
	require.NoError(t, err)

	want := new(big.Int).Mul(
		big.NewInt(13630),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil),
	)
	assert.Zero(t, got.Cmp(want), "got %s want %s", got, want)
}

func TestRebaseRoundsSubCurrencyPrecision(t *testing.T) {
	r := NewRebaser(2, fixedDecimals(18))

	got, err := r.Rebase(context.Background(), decimal.RequireFromString("0.005"))
	require.NoError(t, err)

	// 0.005 shifts to 0.5 currency base units and rounds away from zero.
	want := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	assert.Zero(t, got.Cmp(want), "got %s want %s", got, want)
}

func TestRebaseEqualDecimals(t *testing.T) {
	r := NewRebaser(2, fixedDecimals(2))

	got, err := r.Rebase(context.Background(), decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(big.NewInt(1234)))
}

func TestRebaseRejectsNegative(t *testing.T) {
	r := NewRebaser(2, fixedDecimals(18))

	_, err := r.Rebase(context.Background(), decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRebaseFailsClosedUntilDecimalsKnown(t *testing.T) {
	calls := 0
	r := NewRebaser(2, func(context.Context) (uint8, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("node unreachable")
		}
		return 18, nil
	})

	_, err := r.Rebase(context.Background(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = r.Rebase(context.Background(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotReady)

	// Third attempt reaches the ledger; the result is cached after that.
	_, err = r.Rebase(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = r.Rebase(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRebaseRejectsTokenCoarserThanCurrency(t *testing.T) {
	r := NewRebaser(6, fixedDecimals(2))

	_, err := r.Rebase(context.Background(), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestDisplayInvertsRebase(t *testing.T) {
	r := NewRebaser(2, fixedDecimals(18))
	ctx := context.Background()

	for _, s := range []string{"0", "0.01", "136.30", "970.80", "1019.34"} {
		amount := decimal.RequireFromString(s)
		base, err := r.Rebase(ctx, amount)
		require.NoError(t, err)
		back, err := r.Display(ctx, base)
		require.NoError(t, err)
		assert.True(t, back.Equal(amount), "amount %s came back as %s", amount, back)
	}
}
