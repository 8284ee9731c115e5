package model

// Supplier identity comes from catalog load; the payout address is mutable and
// re-registration overwrites the previous one.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
