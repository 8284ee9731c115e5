package ledger

// Minimal ABI fragments for the two contracts the service drives. The
// contracts themselves are opaque; only the methods and events below form
// the gateway's wire contract.

const escrowABI = `[
	{"type":"function","name":"openEscrowSlot","stateMutability":"nonpayable","inputs":[
		{"name":"externalId","type":"uint256"},
		{"name":"splittingDefinition","type":"tuple","components":[
			{"name":"recipients","type":"address[]"},
			{"name":"amounts","type":"uint256[]"}
		]}
	],"outputs":[]},
	{"type":"function","name":"fundEscrowSlot","stateMutability":"nonpayable","inputs":[
		{"name":"slotId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"fundEscrowSlotFrom","stateMutability":"nonpayable","inputs":[
		{"name":"slotId","type":"uint256"},{"name":"payer","type":"address"}],"outputs":[]},
	{"type":"function","name":"settleEscrowSlot","stateMutability":"nonpayable","inputs":[
		{"name":"slotId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getEscrowedValue","stateMutability":"view","inputs":[
		{"name":"slotId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"isEscrowSlotFunded","stateMutability":"view","inputs":[
		{"name":"slotId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getPaymentSplittingDefinition","stateMutability":"view","inputs":[
		{"name":"slotId","type":"uint256"}],"outputs":[
		{"name":"","type":"tuple","components":[
			{"name":"recipients","type":"address[]"},
			{"name":"amounts","type":"uint256[]"}
		]}]},
	{"type":"function","name":"withdrawReceivedFunds","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"EscrowSlotOpened","anonymous":false,"inputs":[
		{"name":"externalId","type":"uint256","indexed":false},
		{"name":"slotId","type":"uint256","indexed":false}]},
	{"type":"event","name":"EscrowSlotFunded","anonymous":false,"inputs":[
		{"name":"slotId","type":"uint256","indexed":false}]},
	{"type":"event","name":"EscrowSlotSettled","anonymous":false,"inputs":[
		{"name":"slotId","type":"uint256","indexed":false}]},
	{"type":"event","name":"WithdrawalAllowance","anonymous":false,"inputs":[
		{"name":"recipient","type":"address","indexed":false},
		{"name":"balance","type":"uint256","indexed":false}]}
]`

const tokenABI = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"spender","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]}
]`
