package database

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS customers (
    address TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS suppliers (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    address TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    customer_address TEXT NOT NULL REFERENCES customers(address),
    item_id BIGINT NOT NULL,
    quantity BIGINT NOT NULL,
    parts_total NUMERIC(18,2) NOT NULL,
    fee NUMERIC(18,2) NOT NULL,
    escrow_slot_id BIGINT UNIQUE,
    state TEXT NOT NULL DEFAULT 'unconfirmed',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    state_changed_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_suppliers (
    order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    supplier_id BIGINT NOT NULL REFERENCES suppliers(id),
    PRIMARY KEY (order_id, supplier_id)
);

CREATE TABLE IF NOT EXISTS nominations (
    customer_address TEXT PRIMARY KEY REFERENCES customers(address),
    order_id BIGINT NOT NULL REFERENCES orders(id)
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_address);
CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
