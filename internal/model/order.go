package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64           `json:"id"`
	CustomerAddress string          `json:"customer_address"`
	ItemID          int64           `json:"item_id"`
	Quantity        int64           `json:"quantity"`
	PartsTotal      decimal.Decimal `json:"parts_total"`
	Fee             decimal.Decimal `json:"fee"`
	EscrowSlotID    *int64          `json:"escrow_slot_id,omitempty"`
	State           OrderState      `json:"state"`
	CreatedAt       time.Time       `json:"created_at"`
	StateChangedAt  time.Time       `json:"state_changed_at"`
}

// EscrowTotal is the amount the customer must escrow: parts plus service fee.
func (o *Order) EscrowTotal() decimal.Decimal {
	return o.PartsTotal.Add(o.Fee)
}

// CanonicalAddress normalizes a ledger address for use as a map or index key.
// Addresses are compared case-insensitively everywhere.
func CanonicalAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
