package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyhub/internal/model"
)

const (
	customerA = "0xAAaa000000000000000000000000000000000001"
	customerB = "0xBBbb000000000000000000000000000000000002"
)

func seededMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory([]model.Supplier{
		{ID: 1, Name: "RPM joy Inc.", Address: "0x0E5658fd000000000000000000000000000000aa"},
		{ID: 2, Name: "Screwed Up Inc.", Address: "0x69d796a1000000000000000000000000000000bb"},
	})
	require.NoError(t, m.CreateCustomer(context.Background(), customerA, "Alice"))
	return m
}

func newOrder(t *testing.T, m *Memory, customer string, supplierIDs []int64) int64 {
	t.Helper()
	id, err := m.CreateOrder(context.Background(), &model.Order{
		CustomerAddress: customer,
		ItemID:          1,
		Quantity:        2,
		PartsTotal:      decimal.RequireFromString("647.2"),
		Fee:             decimal.RequireFromString("32.36"),
	}, supplierIDs)
	require.NoError(t, err)
	return id
}

func TestCreateCustomerDuplicate(t *testing.T) {
	m := seededMemory(t)
	err := m.CreateCustomer(context.Background(), "  "+customerA+" ", "Alice again")
	assert.ErrorIs(t, err, ErrCustomerExists)
}

func TestCustomerLookupIsCaseInsensitive(t *testing.T) {
	m := seededMemory(t)
	c, err := m.Customer(context.Background(), customerA)
	require.NoError(t, err)
	assert.Equal(t, model.CanonicalAddress(customerA), c.Address)

	ok, err := m.IsCustomer(context.Background(), customerA)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateOrderAssignsMonotonicIDs(t *testing.T) {
	m := seededMemory(t)
	first := newOrder(t, m, customerA, []int64{1, 2})
	second := newOrder(t, m, customerA, []int64{1})
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	o, err := m.Order(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnconfirmed, o.State)
	assert.Nil(t, o.EscrowSlotID)
}

func TestCreateOrderFailsFast(t *testing.T) {
	m := seededMemory(t)

	_, err := m.CreateOrder(context.Background(), &model.Order{CustomerAddress: customerB}, nil)
	assert.ErrorIs(t, err, ErrUnknownCustomer)

	_, err = m.CreateOrder(context.Background(), &model.Order{CustomerAddress: customerA}, []int64{99})
	assert.ErrorIs(t, err, ErrUnknownSupplier)
}

func TestOrderIndices(t *testing.T) {
	m := seededMemory(t)
	require.NoError(t, m.CreateCustomer(context.Background(), customerB, "Bob"))

	shared := newOrder(t, m, customerA, []int64{1, 2})
	motorOnly := newOrder(t, m, customerB, []int64{1})

	aliceOrders, err := m.CustomerOrders(context.Background(), customerA)
	require.NoError(t, err)
	require.Len(t, aliceOrders, 1)
	assert.Equal(t, shared, aliceOrders[0].ID)

	supplier1Orders, err := m.SupplierOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, supplier1Orders, 2)
	assert.Equal(t, shared, supplier1Orders[0].ID)
	assert.Equal(t, motorOnly, supplier1Orders[1].ID)

	supplier2Orders, err := m.SupplierOrders(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, supplier2Orders, 1)
	assert.Equal(t, shared, supplier2Orders[0].ID)

	_, err = m.CustomerOrders(context.Background(), "0xcccc000000000000000000000000000000000003")
	assert.ErrorIs(t, err, ErrUnknownCustomer)
	_, err = m.SupplierOrders(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnknownSupplier)
}

func TestTransitionOrderCompareAndSet(t *testing.T) {
	m := seededMemory(t)
	id := newOrder(t, m, customerA, []int64{1})
	ctx := context.Background()

	require.NoError(t, m.TransitionOrder(ctx, id, model.StateUnconfirmed, model.StateConfirming))

	// Replaying the same transition is rejected, not silently applied.
	err := m.TransitionOrder(ctx, id, model.StateUnconfirmed, model.StateConfirming)
	assert.ErrorIs(t, err, ErrStateConflict)

	err = m.TransitionOrder(ctx, 99, model.StateUnconfirmed, model.StateConfirming)
	assert.ErrorIs(t, err, ErrUnknownOrder)

	o, err := m.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StateConfirming, o.State)
}

func TestSetEscrowSlotOnce(t *testing.T) {
	m := seededMemory(t)
	id := newOrder(t, m, customerA, []int64{1})
	ctx := context.Background()

	require.NoError(t, m.SetEscrowSlot(ctx, id, 7))
	assert.ErrorIs(t, m.SetEscrowSlot(ctx, id, 8), ErrSlotAssigned)
	assert.ErrorIs(t, m.SetEscrowSlot(ctx, 99, 9), ErrUnknownOrder)

	o, err := m.OrderByEscrowSlot(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)

	_, err = m.OrderByEscrowSlot(ctx, 8)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestOrdersInStateSince(t *testing.T) {
	m := seededMemory(t)
	stuckID := newOrder(t, m, customerA, []int64{1})
	freshID := newOrder(t, m, customerA, []int64{1})
	ctx := context.Background()

	require.NoError(t, m.TransitionOrder(ctx, stuckID, model.StateUnconfirmed, model.StateConfirming))
	require.NoError(t, m.TransitionOrder(ctx, freshID, model.StateUnconfirmed, model.StateConfirming))

	// Cutoff in the future catches both, cutoff in the past catches none.
	stuck, err := m.OrdersInStateSince(ctx, model.TransitoryStates(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stuck, 2)

	stuck, err = m.OrdersInStateSince(ctx, model.TransitoryStates(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stuck)

	stuck, err = m.OrdersInStateSince(ctx, []model.OrderState{model.StateSettlingEscrow}, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestNominationLifecycle(t *testing.T) {
	m := seededMemory(t)
	id := newOrder(t, m, customerA, []int64{1})
	ctx := context.Background()

	_, err := m.Nomination(ctx, customerA)
	assert.ErrorIs(t, err, ErrNoNomination)

	assert.ErrorIs(t, m.SetNomination(ctx, customerB, id), ErrUnknownCustomer)
	assert.ErrorIs(t, m.SetNomination(ctx, customerA, 99), ErrUnknownOrder)

	require.NoError(t, m.SetNomination(ctx, customerA, id))
	got, err := m.Nomination(ctx, customerA)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// A later nomination replaces the pointer, it does not accumulate.
	other := newOrder(t, m, customerA, []int64{1})
	require.NoError(t, m.SetNomination(ctx, customerA, other))
	got, err = m.Nomination(ctx, customerA)
	require.NoError(t, err)
	assert.Equal(t, other, got)

	require.NoError(t, m.ClearNomination(ctx, customerA))
	assert.ErrorIs(t, m.ClearNomination(ctx, customerA), ErrNoNomination)
}

func TestSupplierAddressReRegistration(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	old, err := m.SupplierAddress(ctx, 1)
	require.NoError(t, err)

	newAddr := "0x1111000000000000000000000000000000000001"
	require.NoError(t, m.SetSupplierAddress(ctx, 1, newAddr))

	s, err := m.SupplierByAddress(ctx, newAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ID)

	_, err = m.SupplierByAddress(ctx, old)
	assert.ErrorIs(t, err, ErrUnknownSupplier)

	assert.ErrorIs(t, m.SetSupplierAddress(ctx, 42, newAddr), ErrUnknownSupplier)
}

func TestOrderReturnsCopies(t *testing.T) {
	m := seededMemory(t)
	id := newOrder(t, m, customerA, []int64{1})
	ctx := context.Background()

	o, err := m.Order(ctx, id)
	require.NoError(t, err)
	o.State = model.StateConcluded

	again, err := m.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnconfirmed, again.State)
}
