package model

// OrderState is the order lifecycle state. Transitory states represent an
// in-flight ledger operation and always define a revert target so a failed
// transaction never strands the order.
type OrderState string

const (
	StateUnconfirmed       OrderState = "unconfirmed"
	StateConfirming        OrderState = "confirming"
	StateOpeningEscrowSlot OrderState = "opening escrow slot"
	StateAwaitingAllowance OrderState = "awaiting funding allowance"
	StateGivingAllowance   OrderState = "giving funding allowance"
	StateEscrowingFunds    OrderState = "escrowing funds"
	StateAwaitingGoods     OrderState = "awaiting goods"
	StateSettlingEscrow    OrderState = "settling escrow"
	StateConcluded         OrderState = "concluded"
)

var transitions = map[OrderState][]OrderState{
	StateUnconfirmed:       {StateConfirming},
	StateConfirming:        {StateOpeningEscrowSlot, StateUnconfirmed},
	StateOpeningEscrowSlot: {StateAwaitingAllowance, StateUnconfirmed},
	StateAwaitingAllowance: {StateGivingAllowance},
	StateGivingAllowance:   {StateEscrowingFunds, StateAwaitingAllowance},
	StateEscrowingFunds:    {StateAwaitingGoods, StateAwaitingAllowance},
	StateAwaitingGoods:     {StateSettlingEscrow},
	StateSettlingEscrow:    {StateConcluded, StateAwaitingGoods},
	StateConcluded:         {},
}

var revertTargets = map[OrderState]OrderState{
	StateConfirming:        StateUnconfirmed,
	StateOpeningEscrowSlot: StateUnconfirmed,
	StateGivingAllowance:   StateAwaitingAllowance,
	StateEscrowingFunds:    StateAwaitingAllowance,
	StateSettlingEscrow:    StateAwaitingGoods,
}

// Valid reports whether s is one of the defined lifecycle states.
func (s OrderState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether s→next is an edge of the state machine.
func (s OrderState) CanTransitionTo(next OrderState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transitory reports whether s represents an in-flight ledger operation.
func (s OrderState) Transitory() bool {
	_, ok := revertTargets[s]
	return ok
}

// RevertTarget returns the state a failed ledger operation reverts to.
func (s OrderState) RevertTarget() (OrderState, bool) {
	t, ok := revertTargets[s]
	return t, ok
}

// TransitoryStates lists every state with a revert target, for the
// stuck-order sweep.
func TransitoryStates() []OrderState {
	return []OrderState{
		StateConfirming,
		StateOpeningEscrowSlot,
		StateGivingAllowance,
		StateEscrowingFunds,
		StateSettlingEscrow,
	}
}
