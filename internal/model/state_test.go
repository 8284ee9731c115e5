package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineEdges(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderState
		to      OrderState
		allowed bool
	}{
		{"confirm", StateUnconfirmed, StateConfirming, true},
		{"open slot", StateConfirming, StateOpeningEscrowSlot, true},
		{"slot opened", StateOpeningEscrowSlot, StateAwaitingAllowance, true},
		{"give allowance", StateAwaitingAllowance, StateGivingAllowance, true},
		{"escrow funds", StateGivingAllowance, StateEscrowingFunds, true},
		{"funded", StateEscrowingFunds, StateAwaitingGoods, true},
		{"settle", StateAwaitingGoods, StateSettlingEscrow, true},
		{"settled", StateSettlingEscrow, StateConcluded, true},

		{"confirm revert", StateConfirming, StateUnconfirmed, true},
		{"open slot revert", StateOpeningEscrowSlot, StateUnconfirmed, true},
		{"allowance revert", StateGivingAllowance, StateAwaitingAllowance, true},
		{"escrow revert", StateEscrowingFunds, StateAwaitingAllowance, true},
		{"settle revert", StateSettlingEscrow, StateAwaitingGoods, true},

		{"skip confirmation", StateUnconfirmed, StateAwaitingAllowance, false},
		{"skip allowance", StateAwaitingAllowance, StateEscrowingFunds, false},
		{"skip escrow", StateAwaitingAllowance, StateAwaitingGoods, false},
		{"settle backwards", StateConcluded, StateAwaitingGoods, false},
		{"concluded is final", StateConcluded, StateUnconfirmed, false},
		{"funded cannot unconfirm", StateAwaitingGoods, StateUnconfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRevertTargets(t *testing.T) {
	tests := []struct {
		state  OrderState
		target OrderState
	}{
		{StateConfirming, StateUnconfirmed},
		{StateOpeningEscrowSlot, StateUnconfirmed},
		{StateGivingAllowance, StateAwaitingAllowance},
		{StateEscrowingFunds, StateAwaitingAllowance},
		{StateSettlingEscrow, StateAwaitingGoods},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			require.True(t, tt.state.Transitory())
			target, ok := tt.state.RevertTarget()
			require.True(t, ok)
			assert.Equal(t, tt.target, target)
			assert.True(t, tt.state.CanTransitionTo(target))
		})
	}
}

func TestStableStatesHaveNoRevert(t *testing.T) {
	for _, s := range []OrderState{
		StateUnconfirmed,
		StateAwaitingAllowance,
		StateAwaitingGoods,
		StateConcluded,
	} {
		assert.False(t, s.Transitory(), "state %q", s)
		_, ok := s.RevertTarget()
		assert.False(t, ok, "state %q", s)
	}
}

func TestTransitoryStatesMatchRevertTable(t *testing.T) {
	for _, s := range TransitoryStates() {
		assert.True(t, s.Transitory(), "state %q", s)
	}
	assert.Len(t, TransitoryStates(), 5)
}

func TestValid(t *testing.T) {
	assert.True(t, StateEscrowingFunds.Valid())
	assert.False(t, OrderState("shipped").Valid())
	assert.False(t, OrderState("").Valid())
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t,
		"0x0e5658fd94bd9f37f07bdcfbafc29a53476687b9",
		CanonicalAddress("  0x0E5658FD94bd9F37F07BdcfbAfc29A53476687b9 "),
	)
}
