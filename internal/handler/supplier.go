package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"supplyhub/internal/catalog"
	"supplyhub/internal/store"
)

type registerSupplierRequest struct {
	SupplierID int64  `json:"supplier_id"`
	Address    string `json:"address"`
}

// RegisterSupplierHandler binds a settlement address to a catalog supplier.
// Orders touching the supplier cannot be confirmed until this happened.
func RegisterSupplierHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req registerSupplierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.SupplierID <= 0 || req.Address == "" {
			http.Error(w, "supplier_id and address required", http.StatusBadRequest)
			return
		}

		if err := st.SetSupplierAddress(r.Context(), req.SupplierID, req.Address); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func GetSupplierHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplier, err := st.SupplierByAddress(r.Context(), chi.URLParam(r, "address"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, supplier)
	}
}

// SupplierPartsHandler lists the catalog parts a supplier contributes.
func SupplierPartsHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "supplierID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid supplier id", http.StatusBadRequest)
			return
		}
		parts := cat.SupplierParts(id)
		if parts == nil {
			http.Error(w, "unknown supplier", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, parts)
	}
}

// SupplierOrdersHandler lists orders whose escrow splits include the supplier.
func SupplierOrdersHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplier, err := st.SupplierByAddress(r.Context(), chi.URLParam(r, "address"))
		if err != nil {
			writeError(w, err)
			return
		}
		orders, err := st.SupplierOrders(r.Context(), supplier.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}
