package store

import (
	"context"
	"errors"
	"time"

	"supplyhub/internal/model"
)

// Mutations fail fast on unknown ids instead of silently no-oping: a silent
// failure here would desynchronize the state machine from the ledger.
var (
	ErrUnknownOrder    = errors.New("unknown order id")
	ErrUnknownCustomer = errors.New("unknown customer address")
	ErrUnknownSupplier = errors.New("unknown supplier id")
	ErrUnknownSlot     = errors.New("no order for escrow slot id")
	ErrCustomerExists  = errors.New("customer already registered")
	ErrStateConflict   = errors.New("order is not in the required state")
	ErrSlotAssigned    = errors.New("escrow slot id already set")
	ErrNoNomination    = errors.New("customer has no funding nomination")
)

// Store is the single mutable source of off-chain truth: orders, customers,
// supplier payout addresses, the per-customer funding nomination, and their
// indices. The engine holds no private copies; every mutation goes through
// here.
type Store interface {
	CreateCustomer(ctx context.Context, address, name string) error
	Customer(ctx context.Context, address string) (*model.Customer, error)
	IsCustomer(ctx context.Context, address string) (bool, error)

	// CreateOrder assigns a monotonically increasing id, never reused.
	CreateOrder(ctx context.Context, order *model.Order, supplierIDs []int64) (int64, error)
	Order(ctx context.Context, id int64) (*model.Order, error)
	OrderByEscrowSlot(ctx context.Context, slotID int64) (*model.Order, error)
	CustomerOrders(ctx context.Context, address string) ([]model.Order, error)
	SupplierOrders(ctx context.Context, supplierID int64) ([]model.Order, error)

	// TransitionOrder moves the order from exactly `from` to `to`, rejecting
	// with ErrStateConflict otherwise. The compare-and-set is what makes
	// duplicate event delivery a no-op.
	TransitionOrder(ctx context.Context, id int64, from, to model.OrderState) error
	// SetEscrowSlot assigns the slot id once; slot ids are immutable.
	SetEscrowSlot(ctx context.Context, id, slotID int64) error
	// OrdersInStateSince returns orders sitting in one of the given states
	// since before the cutoff, for the stuck-order sweep.
	OrdersInStateSince(ctx context.Context, states []model.OrderState, before time.Time) ([]model.Order, error)

	SetNomination(ctx context.Context, address string, orderID int64) error
	Nomination(ctx context.Context, address string) (int64, error)
	ClearNomination(ctx context.Context, address string) error

	SetSupplierAddress(ctx context.Context, supplierID int64, address string) error
	SupplierAddress(ctx context.Context, supplierID int64) (string, error)
	SupplierByAddress(ctx context.Context, address string) (*model.Supplier, error)
}
