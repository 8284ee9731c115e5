package ledger

// EventKind discriminates the contract events the engine reconciles on.
type EventKind string

const (
	// EventSlotOpened carries the ledger-assigned slot id for the order
	// whose id was passed as the slot's external id.
	EventSlotOpened EventKind = "escrow_slot_opened"
	// EventSlotFunded confirms the slot received its full escrow amount.
	EventSlotFunded EventKind = "escrow_slot_funded"
	// EventSlotSettled confirms the slot's funds were distributed.
	EventSlotSettled EventKind = "escrow_slot_settled"
	// EventApproval is a token allowance granted to the escrow contract.
	EventApproval EventKind = "approval"
	// EventTransfer is a token transfer crediting an address.
	EventTransfer EventKind = "transfer"
)

// Event is a decoded, confirmed contract event. Delivery is at-least-once;
// consumers must treat re-delivery as a no-op.
type Event struct {
	Kind    EventKind
	OrderID int64  // external id, set for EventSlotOpened
	SlotID  int64  // set for the three escrow slot events
	Address string // canonical customer address for EventApproval/EventTransfer
}
