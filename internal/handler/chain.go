package handler

import (
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"supplyhub/internal/catalog"
	"supplyhub/internal/ledger"
	"supplyhub/internal/store"
)

// LedgerInfo is the read-only ledger metadata browser and CLI clients need
// to talk to the contracts themselves.
type LedgerInfo interface {
	ChainID() *big.Int
	OperatorAddress() string
	Metadata(name string) (ledger.ContractMetadata, bool)
}

func ChainHandler(info LedgerInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"chain_id": info.ChainID().String(),
			"operator": info.OperatorAddress(),
		})
	}
}

func ContractHandler(info LedgerInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, ok := info.Metadata(chi.URLParam(r, "name"))
		if !ok {
			http.Error(w, "contract unknown", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, md)
	}
}

// AddressLabelsHandler maps payout addresses to display names so clients can
// render a readable payment-splitting definition.
func AddressLabelsHandler(st store.Store, cat *catalog.Catalog, info LedgerInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels := make(map[string]string)
		for _, s := range cat.Suppliers() {
			addr, err := st.SupplierAddress(r.Context(), s.ID)
			if err != nil || addr == "" {
				continue
			}
			labels[addr] = s.Name
		}
		labels[info.OperatorAddress()] = "Supply consolidation service"
		writeJSON(w, http.StatusOK, labels)
	}
}

func ListItemsHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.Items())
	}
}
