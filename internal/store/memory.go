package store

import (
	"context"
	"sync"
	"time"

	"supplyhub/internal/model"
)

// Memory is the reference Store: everything in maps behind one mutex.
// Durability is a replaceable concern; the Postgres implementation in
// internal/database offers it behind the same interface.
type Memory struct {
	mu sync.RWMutex

	nextOrderID int64
	orders      map[int64]*model.Order
	customers   map[string]*model.Customer
	suppliers   map[int64]*model.Supplier

	customerOrders  map[string][]int64
	supplierOrders  map[int64][]int64
	slotIndex       map[int64]int64 // escrow slot id -> order id
	supplierAddrIdx map[string]int64
	nominations     map[string]int64 // customer address -> order id
}

// NewMemory seeds the store with the catalog's suppliers; their default
// payout addresses are indexed immediately.
func NewMemory(suppliers []model.Supplier) *Memory {
	m := &Memory{
		nextOrderID:     1,
		orders:          make(map[int64]*model.Order),
		customers:       make(map[string]*model.Customer),
		suppliers:       make(map[int64]*model.Supplier),
		customerOrders:  make(map[string][]int64),
		supplierOrders:  make(map[int64][]int64),
		slotIndex:       make(map[int64]int64),
		supplierAddrIdx: make(map[string]int64),
		nominations:     make(map[string]int64),
	}
	for _, s := range suppliers {
		sc := s
		sc.Address = model.CanonicalAddress(sc.Address)
		m.suppliers[sc.ID] = &sc
		if sc.Address != "" {
			m.supplierAddrIdx[sc.Address] = sc.ID
		}
	}
	return m
}

func (m *Memory) CreateCustomer(_ context.Context, address, name string) error {
	addr := model.CanonicalAddress(address)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[addr]; ok {
		return ErrCustomerExists
	}
	m.customers[addr] = &model.Customer{Address: addr, Name: name, CreatedAt: time.Now()}
	m.customerOrders[addr] = nil
	return nil
}

func (m *Memory) Customer(_ context.Context, address string) (*model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[model.CanonicalAddress(address)]
	if !ok {
		return nil, ErrUnknownCustomer
	}
	cc := *c
	return &cc, nil
}

func (m *Memory) IsCustomer(_ context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.customers[model.CanonicalAddress(address)]
	return ok, nil
}

func (m *Memory) CreateOrder(_ context.Context, order *model.Order, supplierIDs []int64) (int64, error) {
	addr := model.CanonicalAddress(order.CustomerAddress)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[addr]; !ok {
		return 0, ErrUnknownCustomer
	}
	for _, sid := range supplierIDs {
		if _, ok := m.suppliers[sid]; !ok {
			return 0, ErrUnknownSupplier
		}
	}

	id := m.nextOrderID
	m.nextOrderID++

	now := time.Now()
	o := *order
	o.ID = id
	o.CustomerAddress = addr
	o.State = model.StateUnconfirmed
	o.CreatedAt = now
	o.StateChangedAt = now
	m.orders[id] = &o

	m.customerOrders[addr] = append(m.customerOrders[addr], id)
	for _, sid := range supplierIDs {
		m.supplierOrders[sid] = append(m.supplierOrders[sid], id)
	}
	return id, nil
}

func (m *Memory) Order(_ context.Context, id int64) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderLocked(id)
}

func (m *Memory) orderLocked(id int64) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrUnknownOrder
	}
	oc := *o
	if o.EscrowSlotID != nil {
		slot := *o.EscrowSlotID
		oc.EscrowSlotID = &slot
	}
	return &oc, nil
}

func (m *Memory) OrderByEscrowSlot(_ context.Context, slotID int64) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slotIndex[slotID]
	if !ok {
		return nil, ErrUnknownSlot
	}
	return m.orderLocked(id)
}

func (m *Memory) CustomerOrders(_ context.Context, address string) ([]model.Order, error) {
	addr := model.CanonicalAddress(address)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, ok := m.customerOrders[addr]
	if !ok {
		return nil, ErrUnknownCustomer
	}
	return m.collectLocked(ids), nil
}

func (m *Memory) SupplierOrders(_ context.Context, supplierID int64) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.suppliers[supplierID]; !ok {
		return nil, ErrUnknownSupplier
	}
	return m.collectLocked(m.supplierOrders[supplierID]), nil
}

func (m *Memory) collectLocked(ids []int64) []model.Order {
	orders := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		if o, err := m.orderLocked(id); err == nil {
			orders = append(orders, *o)
		}
	}
	return orders
}

func (m *Memory) TransitionOrder(_ context.Context, id int64, from, to model.OrderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	if o.State != from {
		return ErrStateConflict
	}
	o.State = to
	o.StateChangedAt = time.Now()
	return nil
}

func (m *Memory) SetEscrowSlot(_ context.Context, id, slotID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	if o.EscrowSlotID != nil {
		return ErrSlotAssigned
	}
	slot := slotID
	o.EscrowSlotID = &slot
	m.slotIndex[slotID] = id
	return nil
}

func (m *Memory) OrdersInStateSince(_ context.Context, states []model.OrderState, before time.Time) ([]model.Order, error) {
	wanted := make(map[model.OrderState]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stuck []model.Order
	for id, o := range m.orders {
		if wanted[o.State] && o.StateChangedAt.Before(before) {
			oc, _ := m.orderLocked(id)
			stuck = append(stuck, *oc)
		}
	}
	return stuck, nil
}

func (m *Memory) SetNomination(_ context.Context, address string, orderID int64) error {
	addr := model.CanonicalAddress(address)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[addr]; !ok {
		return ErrUnknownCustomer
	}
	if _, ok := m.orders[orderID]; !ok {
		return ErrUnknownOrder
	}
	m.nominations[addr] = orderID
	return nil
}

func (m *Memory) Nomination(_ context.Context, address string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.nominations[model.CanonicalAddress(address)]
	if !ok {
		return 0, ErrNoNomination
	}
	return id, nil
}

func (m *Memory) ClearNomination(_ context.Context, address string) error {
	addr := model.CanonicalAddress(address)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nominations[addr]; !ok {
		return ErrNoNomination
	}
	delete(m.nominations, addr)
	return nil
}

func (m *Memory) SetSupplierAddress(_ context.Context, supplierID int64, address string) error {
	addr := model.CanonicalAddress(address)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[supplierID]
	if !ok {
		return ErrUnknownSupplier
	}
	// Re-registration invalidates the previous address index entry.
	if s.Address != "" {
		delete(m.supplierAddrIdx, s.Address)
	}
	s.Address = addr
	m.supplierAddrIdx[addr] = supplierID
	return nil
}

func (m *Memory) SupplierAddress(_ context.Context, supplierID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suppliers[supplierID]
	if !ok {
		return "", ErrUnknownSupplier
	}
	return s.Address, nil
}

func (m *Memory) SupplierByAddress(_ context.Context, address string) (*model.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.supplierAddrIdx[model.CanonicalAddress(address)]
	if !ok {
		return nil, ErrUnknownSupplier
	}
	sc := *m.suppliers[id]
	return &sc, nil
}
