package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"supplyhub/internal/engine"
	"supplyhub/internal/ledger"
	"supplyhub/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses: validation
// failures never reached the ledger (4xx), ledger failures are upstream
// problems (502), anything else is internal.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownOrder),
		errors.Is(err, store.ErrUnknownCustomer),
		errors.Is(err, store.ErrUnknownSupplier),
		errors.Is(err, store.ErrUnknownSlot),
		errors.Is(err, store.ErrNoNomination),
		errors.Is(err, engine.ErrUnknownItem):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrCustomerExists),
		errors.Is(err, store.ErrStateConflict),
		errors.Is(err, store.ErrSlotAssigned),
		errors.Is(err, engine.ErrOrderNotFundable),
		errors.Is(err, engine.ErrFundingInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrSupplierUnregistered):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, engine.ErrNotCustomerOrder):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ledger.ErrUnreachable),
		errors.Is(err, ledger.ErrGasEstimation),
		errors.Is(err, ledger.ErrReverted),
		errors.Is(err, ledger.ErrCallReverted):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
