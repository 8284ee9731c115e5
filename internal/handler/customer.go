package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"supplyhub/internal/store"
)

type registerCustomerRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func RegisterCustomerHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req registerCustomerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Address == "" || req.Name == "" {
			http.Error(w, "address and name required", http.StatusBadRequest)
			return
		}

		if err := st.CreateCustomer(r.Context(), req.Address, req.Name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func GetCustomerHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := st.Customer(r.Context(), chi.URLParam(r, "address"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	}
}
