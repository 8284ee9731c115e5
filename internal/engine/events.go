package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"supplyhub/internal/ledger"
	"supplyhub/internal/model"
	"supplyhub/internal/store"
)

// Run consumes the ledger event stream until ctx is cancelled or the stream
// closes. Events are handled in delivery order; delivery is at-least-once,
// so every handler treats re-delivery as a no-op via the store's
// compare-and-set transitions.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("starting reconciliation engine")
	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciliation engine stopped")
			return
		case ev, ok := <-e.ledger.Events():
			if !ok {
				slog.Info("ledger event stream closed")
				return
			}
			e.handleEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev ledger.Event) {
	switch ev.Kind {
	case ledger.EventSlotOpened:
		e.handleSlotOpened(ctx, ev.OrderID, ev.SlotID)
	case ledger.EventSlotFunded:
		e.handleSlotFunded(ctx, ev.SlotID)
	case ledger.EventSlotSettled:
		e.handleSlotSettled(ctx, ev.SlotID)
	case ledger.EventApproval, ledger.EventTransfer:
		ok, err := e.store.IsCustomer(ctx, ev.Address)
		if err != nil {
			slog.Error("customer lookup failed", "address", ev.Address, "error", err)
			return
		}
		if !ok {
			return
		}
		if err := e.AttemptFunding(ctx, ev.Address); err != nil {
			slog.Error("funding attempt failed", "customer", ev.Address, "error", err)
		}
	}
}

func (e *Engine) handleSlotOpened(ctx context.Context, orderID, slotID int64) {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		slog.Warn("slot opened for unknown order", "order", orderID, "slot", slotID)
		return
	}

	if err := e.store.SetEscrowSlot(ctx, orderID, slotID); err != nil {
		redelivered := errors.Is(err, store.ErrSlotAssigned) &&
			order.EscrowSlotID != nil && *order.EscrowSlotID == slotID
		if !redelivered {
			slog.Error("refusing escrow slot assignment", "order", orderID, "slot", slotID, "error", err)
			return
		}
	}

	err = e.store.TransitionOrder(ctx, orderID, model.StateOpeningEscrowSlot, model.StateAwaitingAllowance)
	if err != nil && !errors.Is(err, store.ErrStateConflict) {
		slog.Error("failed to advance confirmed order", "order", orderID, "error", err)
		return
	}
	if err == nil {
		slog.Info("escrow slot assigned", "order", orderID, "slot", slotID)
	}
}

func (e *Engine) handleSlotFunded(ctx context.Context, slotID int64) {
	order, err := e.store.OrderByEscrowSlot(ctx, slotID)
	if err != nil {
		return // not one of ours
	}

	err = e.store.TransitionOrder(ctx, order.ID, model.StateEscrowingFunds, model.StateAwaitingGoods)
	if errors.Is(err, store.ErrStateConflict) {
		return // duplicate delivery
	}
	if err != nil {
		slog.Error("failed to mark order funded", "order", order.ID, "error", err)
		return
	}
	slog.Info("escrow slot funded", "order", order.ID, "slot", slotID)

	l := e.locks.lock(order.CustomerAddress)
	defer l.Unlock()
	if nominee, err := e.store.Nomination(ctx, order.CustomerAddress); err == nil && nominee == order.ID {
		if err := e.store.ClearNomination(ctx, order.CustomerAddress); err != nil {
			slog.Error("failed to clear nomination", "customer", order.CustomerAddress, "error", err)
		}
	}
}

func (e *Engine) handleSlotSettled(ctx context.Context, slotID int64) {
	order, err := e.store.OrderByEscrowSlot(ctx, slotID)
	if err != nil {
		return
	}
	err = e.store.TransitionOrder(ctx, order.ID, model.StateSettlingEscrow, model.StateConcluded)
	if errors.Is(err, store.ErrStateConflict) {
		return
	}
	if err != nil {
		slog.Error("failed to conclude order", "order", order.ID, "error", err)
		return
	}
	slog.Info("order concluded", "order", order.ID, "slot", slotID)
}

// Sweep inspects orders stuck in a transitory state since before the cutoff.
// Orders whose slot the ledger reports funded or settled are repaired through
// the same idempotent paths the event handlers use; the rest are only
// reported, since neither resubmission nor manual override is defined for a
// dropped transaction.
func (e *Engine) Sweep(ctx context.Context, cutoff time.Time) error {
	stuck, err := e.store.OrdersInStateSince(ctx, model.TransitoryStates(), cutoff)
	if err != nil {
		return err
	}

	for _, order := range stuck {
		switch order.State {
		case model.StateEscrowingFunds:
			funded, err := e.ledger.IsEscrowSlotFunded(ctx, *order.EscrowSlotID)
			if err != nil {
				slog.Error("sweep: slot query failed", "order", order.ID, "error", err)
				continue
			}
			if funded {
				slog.Info("sweep: repairing funded order", "order", order.ID)
				e.handleSlotFunded(ctx, *order.EscrowSlotID)
				continue
			}
			slog.Warn("order stuck in transitory state", "order", order.ID, "state", order.State,
				"since", order.StateChangedAt)
		case model.StateSettlingEscrow:
			value, err := e.ledger.EscrowedValue(ctx, *order.EscrowSlotID)
			if err != nil {
				slog.Error("sweep: slot query failed", "order", order.ID, "error", err)
				continue
			}
			// A settling slot was funded; zero escrowed value means the
			// distribution already happened.
			if value.Sign() == 0 {
				slog.Info("sweep: repairing settled order", "order", order.ID)
				e.handleSlotSettled(ctx, *order.EscrowSlotID)
				continue
			}
			slog.Warn("order stuck in transitory state", "order", order.ID, "state", order.State,
				"since", order.StateChangedAt)
		default:
			slog.Warn("order stuck in transitory state", "order", order.ID, "state", order.State,
				"since", order.StateChangedAt)
		}
	}
	return nil
}
