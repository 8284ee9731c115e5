package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"supplyhub/internal/engine"
	"supplyhub/internal/model"
	"supplyhub/internal/store"
	"supplyhub/internal/token"
)

// orderView is an order plus its escrow amount in token base units, which
// clients need to drive the allowance approval from their wallet.
type orderView struct {
	model.Order
	EscrowAmount string `json:"escrow_amount,omitempty"`
}

func viewOrder(r *http.Request, reb *token.Rebaser, o model.Order) orderView {
	v := orderView{Order: o}
	if base, err := reb.Rebase(r.Context(), o.EscrowTotal()); err == nil {
		v.EscrowAmount = base.String()
	}
	return v
}

func viewOrders(r *http.Request, reb *token.Rebaser, orders []model.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOrder(r, reb, o))
	}
	return views
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type createOrderRequest struct {
	Address  string `json:"address"`
	ItemID   int64  `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

func CreateOrderHandler(eng *engine.Engine, reb *token.Rebaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Address == "" {
			http.Error(w, "address required", http.StatusBadRequest)
			return
		}

		order, err := eng.CreateOrder(r.Context(), req.Address, req.ItemID, req.Quantity)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOrder(r, reb, *order))
	}
}

func GetOrderHandler(st store.Store, reb *token.Rebaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderID(r)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		order, err := st.Order(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOrder(r, reb, *order))
	}
}

func ListCustomerOrdersHandler(st store.Store, reb *token.Rebaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := st.CustomerOrders(r.Context(), chi.URLParam(r, "address"))
		if err != nil {
			writeError(w, err)
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, viewOrders(r, reb, orders))
	}
}

type orderActionRequest struct {
	Address string `json:"address"`
}

// requireOwnership loads the order and checks it belongs to the requesting
// customer, mirroring the visibility rule: an order is visible only to its
// customer and its suppliers.
func requireOwnership(r *http.Request, st store.Store, id int64, address string) (*model.Order, error) {
	order, err := st.Order(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if order.CustomerAddress != model.CanonicalAddress(address) {
		return nil, engine.ErrNotCustomerOrder
	}
	return order, nil
}

func ConfirmOrderHandler(eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := orderID(r)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		var req orderActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if _, err := requireOwnership(r, st, id, req.Address); err != nil {
			writeError(w, err)
			return
		}

		if err := eng.RequestConfirmation(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func SettleOrderHandler(eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := orderID(r)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		var req orderActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if _, err := requireOwnership(r, st, id, req.Address); err != nil {
			writeError(w, err)
			return
		}

		if err := eng.RequestSettlement(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
