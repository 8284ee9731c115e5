package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"supplyhub/internal/engine"
)

type mintRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// MintHandler credits an address with freshly minted units of account.
// Demo/test facility backed by the operator's mint privilege.
func MintHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req mintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Address == "" {
			http.Error(w, "address required", http.StatusBadRequest)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			http.Error(w, "invalid amount", http.StatusUnprocessableEntity)
			return
		}

		if err := eng.Mint(r.Context(), req.Address, amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
