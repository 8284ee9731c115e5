package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"supplyhub/internal/model"
	"supplyhub/internal/store"
)

// Postgres implements store.Store on top of a pgx-driven *sql.DB. It exists
// so deployments that want durability can swap it in for the in-memory
// reference store without touching the engine.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// SeedSuppliers inserts the catalog's suppliers, keeping any payout address
// already registered in a previous run.
func (p *Postgres) SeedSuppliers(ctx context.Context, suppliers []model.Supplier) error {
	for _, s := range suppliers {
		_, err := p.db.ExecContext(ctx,
			`INSERT INTO suppliers (id, name, address) VALUES ($1, $2, NULLIF($3, ''))
			 ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, model.CanonicalAddress(s.Address),
		)
		if err != nil {
			return fmt.Errorf("seed supplier %d: %w", s.ID, err)
		}
	}
	return nil
}

func (p *Postgres) CreateCustomer(ctx context.Context, address, name string) error {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO customers (address, name) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`,
		model.CanonicalAddress(address), name,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	if n == 0 {
		return store.ErrCustomerExists
	}
	return nil
}

func (p *Postgres) Customer(ctx context.Context, address string) (*model.Customer, error) {
	var c model.Customer
	err := p.db.QueryRowContext(ctx,
		`SELECT address, name, created_at FROM customers WHERE address = $1`,
		model.CanonicalAddress(address),
	).Scan(&c.Address, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownCustomer
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (p *Postgres) IsCustomer(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE address = $1)`,
		model.CanonicalAddress(address),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer: %w", err)
	}
	return exists, nil
}

func (p *Postgres) CreateOrder(ctx context.Context, order *model.Order, supplierIDs []int64) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	addr := model.CanonicalAddress(order.CustomerAddress)
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE address = $1)`, addr,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return 0, store.ErrUnknownCustomer
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_address, item_id, quantity, parts_total, fee, state)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		addr, order.ItemID, order.Quantity, order.PartsTotal, order.Fee, model.StateUnconfirmed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, sid := range supplierIDs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO order_suppliers (order_id, supplier_id)
			 SELECT $1, id FROM suppliers WHERE id = $2`,
			id, sid,
		)
		if err != nil {
			return 0, fmt.Errorf("index order supplier: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, store.ErrUnknownSupplier
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

const orderColumns = `id, customer_address, item_id, quantity, parts_total, fee, escrow_slot_id, state, created_at, state_changed_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var slot sql.NullInt64
	err := row.Scan(&o.ID, &o.CustomerAddress, &o.ItemID, &o.Quantity, &o.PartsTotal,
		&o.Fee, &slot, &o.State, &o.CreatedAt, &o.StateChangedAt)
	if err != nil {
		return nil, err
	}
	if slot.Valid {
		o.EscrowSlotID = &slot.Int64
	}
	return &o, nil
}

func (p *Postgres) Order(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownOrder
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (p *Postgres) OrderByEscrowSlot(ctx context.Context, slotID int64) (*model.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE escrow_slot_id = $1`, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownSlot
	}
	if err != nil {
		return nil, fmt.Errorf("get order by slot: %w", err)
	}
	return o, nil
}

func (p *Postgres) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return orders, nil
}

func (p *Postgres) CustomerOrders(ctx context.Context, address string) ([]model.Order, error) {
	addr := model.CanonicalAddress(address)
	exists, err := p.IsCustomer(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrUnknownCustomer
	}
	return p.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_address = $1 ORDER BY id ASC`, addr)
}

func (p *Postgres) SupplierOrders(ctx context.Context, supplierID int64) ([]model.Order, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)`, supplierID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check supplier: %w", err)
	}
	if !exists {
		return nil, store.ErrUnknownSupplier
	}
	return p.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE id IN (SELECT order_id FROM order_suppliers WHERE supplier_id = $1)
		 ORDER BY id ASC`, supplierID)
}

func (p *Postgres) TransitionOrder(ctx context.Context, id int64, from, to model.OrderState) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE orders SET state = $1, state_changed_at = NOW() WHERE id = $2 AND state = $3`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	// Distinguish an unknown id from a wrong source state.
	if _, err := p.Order(ctx, id); err != nil {
		return err
	}
	return store.ErrStateConflict
}

func (p *Postgres) SetEscrowSlot(ctx context.Context, id, slotID int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE orders SET escrow_slot_id = $1 WHERE id = $2 AND escrow_slot_id IS NULL`,
		slotID, id,
	)
	if err != nil {
		return fmt.Errorf("set escrow slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := p.Order(ctx, id); err != nil {
		return err
	}
	return store.ErrSlotAssigned
}

func (p *Postgres) OrdersInStateSince(ctx context.Context, states []model.OrderState, before time.Time) ([]model.Order, error) {
	if len(states) == 0 {
		return nil, nil
	}
	args := []any{before}
	in := ""
	for i, s := range states {
		if i > 0 {
			in += ", "
		}
		in += fmt.Sprintf("$%d", i+2)
		args = append(args, s)
	}
	return p.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE state_changed_at < $1 AND state IN (`+in+`) ORDER BY id ASC`, args...)
}

func (p *Postgres) SetNomination(ctx context.Context, address string, orderID int64) error {
	if _, err := p.Order(ctx, orderID); err != nil {
		return err
	}
	addr := model.CanonicalAddress(address)
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO nominations (customer_address, order_id)
		 SELECT address, $2 FROM customers WHERE address = $1
		 ON CONFLICT (customer_address) DO UPDATE SET order_id = EXCLUDED.order_id`,
		addr, orderID,
	)
	if err != nil {
		return fmt.Errorf("set nomination: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrUnknownCustomer
	}
	return nil
}

func (p *Postgres) Nomination(ctx context.Context, address string) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		`SELECT order_id FROM nominations WHERE customer_address = $1`,
		model.CanonicalAddress(address),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNoNomination
	}
	if err != nil {
		return 0, fmt.Errorf("get nomination: %w", err)
	}
	return id, nil
}

func (p *Postgres) ClearNomination(ctx context.Context, address string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM nominations WHERE customer_address = $1`,
		model.CanonicalAddress(address),
	)
	if err != nil {
		return fmt.Errorf("clear nomination: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNoNomination
	}
	return nil
}

func (p *Postgres) SetSupplierAddress(ctx context.Context, supplierID int64, address string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE suppliers SET address = $1 WHERE id = $2`,
		model.CanonicalAddress(address), supplierID,
	)
	if err != nil {
		return fmt.Errorf("set supplier address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrUnknownSupplier
	}
	return nil
}

func (p *Postgres) SupplierAddress(ctx context.Context, supplierID int64) (string, error) {
	var addr sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT address FROM suppliers WHERE id = $1`, supplierID,
	).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrUnknownSupplier
	}
	if err != nil {
		return "", fmt.Errorf("get supplier address: %w", err)
	}
	return addr.String, nil
}

func (p *Postgres) SupplierByAddress(ctx context.Context, address string) (*model.Supplier, error) {
	var s model.Supplier
	var addr sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, address FROM suppliers WHERE address = $1`,
		model.CanonicalAddress(address),
	).Scan(&s.ID, &s.Name, &addr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownSupplier
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	s.Address = addr.String
	return &s, nil
}
