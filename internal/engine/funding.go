package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"supplyhub/internal/model"
	"supplyhub/internal/store"
)

// keyedLocks hands out one mutex per customer address. Every nomination
// mutation and funding attempt for an address runs under its lock, which
// makes the read-check-act sequence on the nomination atomic per customer.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) *sync.Mutex {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l
}

// NominateFundingTarget marks the order as the customer's next order to
// fund. A previous nominee is superseded: its state reverts out of `giving
// funding allowance` and the new order becomes the sole nomination. A
// nominee whose funding transaction is already in flight cannot be
// superseded.
func (e *Engine) NominateFundingTarget(ctx context.Context, customerAddress string, orderID int64) error {
	addr := model.CanonicalAddress(customerAddress)
	l := e.locks.lock(addr)
	defer l.Unlock()

	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if order.CustomerAddress != addr {
		return ErrNotCustomerOrder
	}
	if order.State != model.StateAwaitingAllowance {
		return ErrOrderNotFundable
	}

	prev, err := e.store.Nomination(ctx, addr)
	if err == nil && prev != orderID {
		if err := e.demoteNominee(ctx, prev); err != nil {
			return err
		}
	}
	return e.store.SetNomination(ctx, addr, orderID)
}

// CancelFundingNomination clears the customer's nomination, reverting the
// nominee out of `giving funding allowance` if it had progressed there.
func (e *Engine) CancelFundingNomination(ctx context.Context, customerAddress string) error {
	addr := model.CanonicalAddress(customerAddress)
	l := e.locks.lock(addr)
	defer l.Unlock()

	nominee, err := e.store.Nomination(ctx, addr)
	if err != nil {
		return err
	}
	if err := e.demoteNominee(ctx, nominee); err != nil {
		return err
	}
	return e.store.ClearNomination(ctx, addr)
}

// demoteNominee reverts a nominated order back to `awaiting funding
// allowance` unless its funding transaction is already in flight.
func (e *Engine) demoteNominee(ctx context.Context, orderID int64) error {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	switch order.State {
	case model.StateEscrowingFunds:
		return ErrFundingInFlight
	case model.StateGivingAllowance:
		return e.store.TransitionOrder(ctx, orderID, model.StateGivingAllowance, model.StateAwaitingAllowance)
	}
	return nil
}

// AttemptFunding runs whenever an Approval or Transfer event involving the
// customer is observed. If the customer's nominated order can be covered by
// the current on-chain allowance and balance, the order is marked
// `escrowing funds` before the funding transaction is submitted, so an event
// storm during approval confirmation cannot trigger a duplicate funding
// transaction. Read failures abort the pass; the nomination stays and a
// later event re-triggers the attempt.
func (e *Engine) AttemptFunding(ctx context.Context, customerAddress string) error {
	addr := model.CanonicalAddress(customerAddress)
	l := e.locks.lock(addr)
	defer l.Unlock()

	orderID, err := e.store.Nomination(ctx, addr)
	if errors.Is(err, store.ErrNoNomination) {
		return nil
	}
	if err != nil {
		return err
	}

	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if order.State == model.StateEscrowingFunds {
		// Funding already in flight; re-entry would double-fund.
		return nil
	}
	if order.State != model.StateAwaitingAllowance {
		slog.Warn("nominated order in unexpected state", "order", orderID, "state", order.State)
		return nil
	}
	if order.EscrowSlotID == nil {
		return ErrSlotUnassigned
	}

	required, err := e.rebaser.Rebase(ctx, order.EscrowTotal())
	if err != nil {
		return err
	}
	allowance, err := e.ledger.Allowance(ctx, addr)
	if err != nil {
		return err
	}
	balance, err := e.ledger.BalanceOf(ctx, addr)
	if err != nil {
		return err
	}
	if allowance.Cmp(required) < 0 || balance.Cmp(required) < 0 {
		slog.Info("funding requirements not met",
			"order", orderID, "required", required, "allowance", allowance, "balance", balance)
		return nil
	}

	// Admission granted: the ledger just confirmed the allowance covers the
	// escrow amount.
	if err := e.store.TransitionOrder(ctx, orderID, model.StateAwaitingAllowance, model.StateGivingAllowance); err != nil {
		return err
	}
	if err := e.store.TransitionOrder(ctx, orderID, model.StateGivingAllowance, model.StateEscrowingFunds); err != nil {
		return err
	}
	go e.submitFunding(orderID, *order.EscrowSlotID, addr)
	return nil
}

func (e *Engine) submitFunding(orderID, slotID int64, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
	defer cancel()

	if err := e.ledger.FundEscrowSlotFrom(ctx, slotID, addr); err != nil {
		// Nomination stays; the next Approval/Transfer event retries.
		slog.Error("funding failed, reverting order", "order", orderID, "error", err)
		e.revert(ctx, orderID, model.StateEscrowingFunds, model.StateAwaitingAllowance)
		return
	}
	slog.Info("funding transaction confirmed", "order", orderID, "slot", slotID)

	l := e.locks.lock(addr)
	defer l.Unlock()
	if nominee, err := e.store.Nomination(ctx, addr); err == nil && nominee == orderID {
		if err := e.store.ClearNomination(ctx, addr); err != nil {
			slog.Error("failed to clear nomination", "customer", addr, "error", err)
		}
	}
}
