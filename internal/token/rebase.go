package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNotReady is returned while the token's decimal count has not yet been
// read from the ledger. Rebasing fails closed until it has.
var ErrNotReady = errors.New("token decimals not read from ledger yet")

// ErrNegativeAmount rejects negative amounts before they can reach the ledger.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Rebaser converts human-facing currency amounts into the token contract's
// integer base-unit representation. The display currency carries
// currencyDecimals decimal places; the token's native decimal count is read
// from the ledger once and cached.
type Rebaser struct {
	currencyDecimals int32
	source           func(context.Context) (uint8, error)

	mu            sync.Mutex
	ready         bool
	tokenDecimals uint8
	adjustFactor  *big.Int // 10^(tokenDecimals - currencyDecimals)
}

func NewRebaser(currencyDecimals int32, source func(context.Context) (uint8, error)) *Rebaser {
	return &Rebaser{currencyDecimals: currencyDecimals, source: source}
}

func (r *Rebaser) ensureReady(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	decimals, err := r.source(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	if int32(decimals) < r.currencyDecimals {
		return fmt.Errorf("token decimals %d below currency decimals %d", decimals, r.currencyDecimals)
	}
	r.tokenDecimals = decimals
	r.adjustFactor = new(big.Int).Exp(
		big.NewInt(10),
		big.NewInt(int64(int32(decimals)-r.currencyDecimals)),
		nil,
	)
	r.ready = true
	return nil
}

// Rebase converts amount (in display currency units) to token base units:
// shift by currencyDecimals, round to the nearest integer, then multiply by
// 10^(tokenDecimals - currencyDecimals).
func (r *Rebaser) Rebase(ctx context.Context, amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if err := r.ensureReady(ctx); err != nil {
		return nil, err
	}
	shifted := amount.Shift(r.currencyDecimals).Round(0)
	return new(big.Int).Mul(shifted.BigInt(), r.adjustFactor), nil
}

// Display converts token base units back to a display currency amount,
// truncating precision below currencyDecimals. Inverse of Rebase for all
// amounts representable at currency precision.
func (r *Rebaser) Display(ctx context.Context, base *big.Int) (decimal.Decimal, error) {
	if err := r.ensureReady(ctx); err != nil {
		return decimal.Zero, err
	}
	units := new(big.Int).Div(base, r.adjustFactor)
	return decimal.NewFromBigInt(units, -r.currencyDecimals), nil
}
