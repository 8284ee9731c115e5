package handler

import (
	"encoding/json"
	"net/http"

	"supplyhub/internal/engine"
)

type nominateFundingRequest struct {
	Address string `json:"address"`
	OrderID int64  `json:"order_id"`
}

// NominateFundingHandler marks an order as the customer's next order to
// fund. Any previously nominated order is superseded, last nominee wins.
func NominateFundingHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req nominateFundingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Address == "" || req.OrderID == 0 {
			http.Error(w, "address and order_id required", http.StatusBadRequest)
			return
		}

		if err := eng.NominateFundingTarget(r.Context(), req.Address, req.OrderID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type cancelFundingRequest struct {
	Address string `json:"address"`
}

func CancelFundingHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req cancelFundingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Address == "" {
			http.Error(w, "address required", http.StatusBadRequest)
			return
		}

		if err := eng.CancelFundingNomination(r.Context(), req.Address); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
