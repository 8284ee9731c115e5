package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"supplyhub/internal/catalog"
	"supplyhub/internal/ledger"
	"supplyhub/internal/model"
	"supplyhub/internal/store"
	"supplyhub/internal/token"
)

var (
	ErrUnknownItem          = errors.New("unknown item")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrNotCustomerOrder     = errors.New("order does not belong to customer")
	ErrOrderNotFundable     = errors.New("order is not awaiting funding allowance")
	ErrFundingInFlight      = errors.New("funding transaction already in flight")
	ErrSupplierUnregistered = errors.New("supplier has no payout address")
	ErrSlotUnassigned       = errors.New("order has no escrow slot id")
)

type Config struct {
	// Operator is the service account address: it signs every outbound
	// transaction and is the final recipient of every payment-splitting
	// definition (the service fee).
	Operator string
	// FeeRate is the service fee as a fraction of the parts total.
	FeeRate decimal.Decimal
	// CurrencyDecimals is the display currency precision fees are rounded to.
	CurrencyDecimals int32
	// SubmitTimeout bounds a single transaction submission, receipt wait
	// included.
	SubmitTimeout time.Duration
}

// Engine drives the order lifecycle: it opens escrow slots from off-chain
// confirmation requests, projects ledger events back onto order state, and
// admits at most one in-flight funding operation per customer. It holds no
// state of its own; every read and mutation goes through the Store.
type Engine struct {
	store   store.Store
	ledger  ledger.Ledger
	catalog *catalog.Catalog
	rebaser *token.Rebaser
	cfg     Config

	locks keyedLocks
}

func New(st store.Store, ldg ledger.Ledger, cat *catalog.Catalog, reb *token.Rebaser, cfg Config) *Engine {
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 2 * time.Minute
	}
	cfg.Operator = model.CanonicalAddress(cfg.Operator)
	return &Engine{
		store:   st,
		ledger:  ldg,
		catalog: cat,
		rebaser: reb,
		cfg:     cfg,
	}
}

// CreateOrder prices the item through the catalog and records the order in
// state unconfirmed. Nothing touches the ledger yet.
func (e *Engine) CreateOrder(ctx context.Context, customerAddress string, itemID, quantity int64) (*model.Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, ok := e.catalog.Item(itemID)
	if !ok {
		return nil, ErrUnknownItem
	}

	partsTotal := item.OrderPrice(quantity)
	fee := partsTotal.Mul(e.cfg.FeeRate).Round(e.cfg.CurrencyDecimals)

	order := &model.Order{
		CustomerAddress: model.CanonicalAddress(customerAddress),
		ItemID:          itemID,
		Quantity:        quantity,
		PartsTotal:      partsTotal,
		Fee:             fee,
	}
	id, err := e.store.CreateOrder(ctx, order, item.SupplierIDs())
	if err != nil {
		return nil, err
	}
	return e.store.Order(ctx, id)
}

// RequestConfirmation moves the order into the slot-opening sequence:
// unconfirmed → confirming → opening escrow slot, then submits the
// openEscrowSlot transaction asynchronously. The slot id and the move past
// `opening escrow slot` come exclusively from the EscrowSlotOpened event, so
// a reverted transaction never leaves a half-applied slot assignment.
func (e *Engine) RequestConfirmation(ctx context.Context, orderID int64) error {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if err := e.store.TransitionOrder(ctx, orderID, model.StateUnconfirmed, model.StateConfirming); err != nil {
		return err
	}

	def, err := e.buildSplitDef(ctx, order)
	if err != nil {
		if rerr := e.store.TransitionOrder(ctx, orderID, model.StateConfirming, model.StateUnconfirmed); rerr != nil {
			slog.Error("failed to revert order after split build failure", "order", orderID, "error", rerr)
		}
		return err
	}

	if err := e.store.TransitionOrder(ctx, orderID, model.StateConfirming, model.StateOpeningEscrowSlot); err != nil {
		return err
	}
	go e.submitOpenSlot(orderID, def)
	return nil
}

// buildSplitDef computes the payment-splitting definition: one (address,
// amount) pair per distinct supplier of the item, proportional to quantity,
// plus the operator's fee as the final pair.
func (e *Engine) buildSplitDef(ctx context.Context, order *model.Order) (ledger.SplitDef, error) {
	item, ok := e.catalog.Item(order.ItemID)
	if !ok {
		return ledger.SplitDef{}, ErrUnknownItem
	}

	var def ledger.SplitDef
	amounts := item.SupplierAmounts()
	quantity := decimal.NewFromInt(order.Quantity)
	for _, supplierID := range item.SupplierIDs() {
		addr, err := e.store.SupplierAddress(ctx, supplierID)
		if err != nil {
			return ledger.SplitDef{}, err
		}
		if addr == "" {
			return ledger.SplitDef{}, fmt.Errorf("%w: supplier %d", ErrSupplierUnregistered, supplierID)
		}
		amount, err := e.rebaser.Rebase(ctx, amounts[supplierID].Mul(quantity))
		if err != nil {
			return ledger.SplitDef{}, err
		}
		def.Recipients = append(def.Recipients, addr)
		def.Amounts = append(def.Amounts, amount)
	}

	fee, err := e.rebaser.Rebase(ctx, order.Fee)
	if err != nil {
		return ledger.SplitDef{}, err
	}
	def.Recipients = append(def.Recipients, e.cfg.Operator)
	def.Amounts = append(def.Amounts, fee)
	return def, nil
}

func (e *Engine) submitOpenSlot(orderID int64, def ledger.SplitDef) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
	defer cancel()

	if err := e.ledger.OpenEscrowSlot(ctx, orderID, def); err != nil {
		slog.Error("escrow slot open failed, reverting order", "order", orderID, "error", err)
		e.revert(ctx, orderID, model.StateOpeningEscrowSlot, model.StateUnconfirmed)
		return
	}
	slog.Info("escrow slot open transaction confirmed", "order", orderID)
}

// RequestSettlement moves the order into settlement after goods delivery was
// confirmed: awaiting goods → settling escrow, then submits settleEscrowSlot.
// The EscrowSlotSettled event concludes the order.
func (e *Engine) RequestSettlement(ctx context.Context, orderID int64) error {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if order.EscrowSlotID == nil {
		return ErrSlotUnassigned
	}
	if err := e.store.TransitionOrder(ctx, orderID, model.StateAwaitingGoods, model.StateSettlingEscrow); err != nil {
		return err
	}
	go e.submitSettlement(orderID, *order.EscrowSlotID)
	return nil
}

func (e *Engine) submitSettlement(orderID, slotID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
	defer cancel()

	if err := e.ledger.SettleEscrowSlot(ctx, slotID); err != nil {
		slog.Error("settlement failed, reverting order", "order", orderID, "error", err)
		e.revert(ctx, orderID, model.StateSettlingEscrow, model.StateAwaitingGoods)
		return
	}
	slog.Info("settlement transaction confirmed", "order", orderID, "slot", slotID)
}

// Mint credits a customer with freshly minted units of account. Operator
// privilege, not part of the order state machine.
func (e *Engine) Mint(ctx context.Context, address string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	base, err := e.rebaser.Rebase(ctx, amount)
	if err != nil {
		return err
	}
	return e.ledger.Mint(ctx, model.CanonicalAddress(address), base)
}

// revert applies a failure revert, tolerating the race where the confirming
// event already advanced the order past the transitory state.
func (e *Engine) revert(ctx context.Context, orderID int64, from, to model.OrderState) {
	err := e.store.TransitionOrder(ctx, orderID, from, to)
	if err == nil || errors.Is(err, store.ErrStateConflict) {
		return
	}
	slog.Error("failed to revert order", "order", orderID, "from", from, "to", to, "error", err)
}
