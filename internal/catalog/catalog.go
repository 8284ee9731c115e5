package catalog

import (
	"sort"

	"github.com/shopspring/decimal"

	"supplyhub/internal/model"
)

// Part is a single supplier-provided component.
type Part struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	SupplierID int64           `json:"supplier_id"`
	Price      decimal.Decimal `json:"price"`
}

// Component is one position of an item's composition.
type Component struct {
	Part  *Part `json:"part"`
	Count int64 `json:"count"`
}

// Item is a sellable composition of parts from one or more suppliers.
type Item struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Composition []Component `json:"composition"`
}

// UnitPrice is the parts total for a single unit of the item.
func (i *Item) UnitPrice() decimal.Decimal {
	total := decimal.Zero
	for _, c := range i.Composition {
		total = total.Add(c.Part.Price.Mul(decimal.NewFromInt(c.Count)))
	}
	return total
}

// OrderPrice is the parts total for quantity units.
func (i *Item) OrderPrice(quantity int64) decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(quantity))
}

// SupplierAmounts returns the per-unit amount owed to each supplier whose
// parts compose the item.
func (i *Item) SupplierAmounts() map[int64]decimal.Decimal {
	amounts := make(map[int64]decimal.Decimal)
	for _, c := range i.Composition {
		line := c.Part.Price.Mul(decimal.NewFromInt(c.Count))
		amounts[c.Part.SupplierID] = amounts[c.Part.SupplierID].Add(line)
	}
	return amounts
}

// SupplierIDs returns the distinct supplier ids touched by the item, in
// ascending order so the payment-splitting definition is deterministic.
func (i *Item) SupplierIDs() []int64 {
	amounts := i.SupplierAmounts()
	ids := make([]int64, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Catalog is the read-only reference data: suppliers, parts and items.
type Catalog struct {
	suppliers     map[int64]model.Supplier
	parts         map[int64]*Part
	items         map[int64]*Item
	supplierParts map[int64][]*Part
}

func New(suppliers []model.Supplier, parts []*Part, items []*Item) *Catalog {
	c := &Catalog{
		suppliers:     make(map[int64]model.Supplier),
		parts:         make(map[int64]*Part),
		items:         make(map[int64]*Item),
		supplierParts: make(map[int64][]*Part),
	}
	for _, s := range suppliers {
		s.Address = model.CanonicalAddress(s.Address)
		c.suppliers[s.ID] = s
	}
	for _, p := range parts {
		c.parts[p.ID] = p
		c.supplierParts[p.SupplierID] = append(c.supplierParts[p.SupplierID], p)
	}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *Catalog) Item(id int64) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *Catalog) Items() []*Item {
	items := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, it)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return items
}

func (c *Catalog) Suppliers() []model.Supplier {
	suppliers := make([]model.Supplier, 0, len(c.suppliers))
	for _, s := range c.suppliers {
		suppliers = append(suppliers, s)
	}
	sort.Slice(suppliers, func(a, b int) bool { return suppliers[a].ID < suppliers[b].ID })
	return suppliers
}

func (c *Catalog) SupplierParts(supplierID int64) []*Part {
	return c.supplierParts[supplierID]
}
