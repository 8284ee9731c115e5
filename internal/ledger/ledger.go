package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	// ErrUnreachable covers connectivity failures; no order state changes.
	ErrUnreachable = errors.New("ledger unreachable")
	// ErrGasEstimation means the node refused to estimate gas, usually
	// because the call would revert.
	ErrGasEstimation = errors.New("gas estimation failed")
	// ErrReverted means the transaction was mined but reverted.
	ErrReverted = errors.New("transaction reverted")
	// ErrCallReverted means a read-only call failed.
	ErrCallReverted = errors.New("contract call reverted")
)

// SplitDef is a payment-splitting definition: ordered (recipient, amount)
// pairs whose total equals the slot's escrow amount. The operating service is
// always the final recipient (its fee).
type SplitDef struct {
	Recipients []string
	Amounts    []*big.Int
}

// Ledger is the gateway the engine drives the blockchain through. It carries
// no business logic: transactions are estimated, margin-padded, signed with
// the operator key and submitted; confirmed contract events stream out of
// Events in delivery order.
type Ledger interface {
	TokenDecimals(ctx context.Context) (uint8, error)

	OpenEscrowSlot(ctx context.Context, orderID int64, def SplitDef) error
	FundEscrowSlotFrom(ctx context.Context, slotID int64, payer string) error
	SettleEscrowSlot(ctx context.Context, slotID int64) error
	Mint(ctx context.Context, address string, amount *big.Int) error

	Allowance(ctx context.Context, owner string) (*big.Int, error)
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
	IsEscrowSlotFunded(ctx context.Context, slotID int64) (bool, error)
	EscrowedValue(ctx context.Context, slotID int64) (*big.Int, error)

	Events() <-chan Event
}
