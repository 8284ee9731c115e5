package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyhub/internal/catalog"
	"supplyhub/internal/engine"
	"supplyhub/internal/model"
	"supplyhub/internal/store"
	"supplyhub/internal/token"
)

const aliceAddr = "0xaaaa000000000000000000000000000000000001"

// The handlers under test never reach the ledger, so the engine runs
// without one; the rebaser reads a fixed decimal count.
func newTestRouter(t *testing.T) (*chi.Mux, *store.Memory) {
	t.Helper()
	cat := catalog.Load()
	st := store.NewMemory(cat.Suppliers())
	reb := token.NewRebaser(2, func(context.Context) (uint8, error) { return 2, nil })
	eng := engine.New(st, nil, cat, reb, engine.Config{
		Operator:         "0xfeed000000000000000000000000000000000001",
		FeeRate:          decimal.RequireFromString("0.05"),
		CurrencyDecimals: 2,
		SubmitTimeout:    time.Second,
	})
	require.NoError(t, st.CreateCustomer(context.Background(), aliceAddr, "Alice"))

	r := chi.NewRouter()
	r.Post("/api/customers", RegisterCustomerHandler(st))
	r.Get("/api/customers/{address}", GetCustomerHandler(st))
	r.Get("/api/customers/{address}/orders", ListCustomerOrdersHandler(st, reb))
	r.Get("/api/items", ListItemsHandler(cat))
	r.Post("/api/orders", CreateOrderHandler(eng, reb))
	r.Get("/api/orders/{id}", GetOrderHandler(st, reb))
	r.Post("/api/orders/{id}/confirm", ConfirmOrderHandler(eng, st))
	r.Post("/api/suppliers", RegisterSupplierHandler(st))
	r.Get("/api/suppliers/{address}", GetSupplierHandler(st))
	r.Get("/api/suppliers/id/{supplierID}/parts", SupplierPartsHandler(cat))
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterCustomer(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/customers",
		`{"address":"0xbbbb000000000000000000000000000000000002","name":"Bob"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Re-registration conflicts.
	rec = doJSON(t, r, http.MethodPost, "/api/customers",
		`{"address":"0xBBBB000000000000000000000000000000000002","name":"Bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/customers", `{"name":"nobody"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/customers", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCustomer(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/customers/"+aliceAddr, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var c model.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Alice", c.Name)

	rec = doJSON(t, r, http.MethodGet, "/api/customers/0x0000000000000000000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListItems(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []catalog.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestCreateOrder(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":1,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var v struct {
		model.Order
		EscrowAmount string `json:"escrow_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, int64(1), v.ID)
	assert.Equal(t, model.StateUnconfirmed, v.State)
	assert.Equal(t, "67956", v.EscrowAmount)
}

func TestCreateOrderErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":1,"quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":99,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"0x0000000000000000000000000000000000000000","item_id":1,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":2,"quantity":1}`)

	rec := doJSON(t, r, http.MethodGet, "/api/orders/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCustomerOrders(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/customers/"+aliceAddr+"/orders", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":1,"quantity":1}`)

	rec = doJSON(t, r, http.MethodGet, "/api/customers/"+aliceAddr+"/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}

func TestConfirmOrderOwnership(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/orders",
		`{"address":"`+aliceAddr+`","item_id":1,"quantity":1}`)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/1/confirm",
		`{"address":"0xbbbb000000000000000000000000000000000002"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/orders/99/confirm",
		`{"address":"`+aliceAddr+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupplierEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	newAddr := "0x1111000000000000000000000000000000000001"
	rec := doJSON(t, r, http.MethodPost, "/api/suppliers",
		`{"supplier_id":1,"address":"`+newAddr+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/suppliers/"+newAddr, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s model.Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, int64(1), s.ID)

	rec = doJSON(t, r, http.MethodPost, "/api/suppliers",
		`{"supplier_id":42,"address":"`+newAddr+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/suppliers/id/2/parts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var parts []catalog.Part
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parts))
	assert.Len(t, parts, 3)

	rec = doJSON(t, r, http.MethodGet, "/api/suppliers/id/42/parts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
