package ledger

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Contract ids as exposed to API clients.
const (
	ContractEscrow = "escrowPaymentSplitter"
	ContractToken  = "uoa"
)

// ContractMetadata is what browser/CLI clients need to talk to a contract
// directly: its address and ABI.
type ContractMetadata struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

type Config struct {
	RPCURL        string
	OperatorKey   string // hex-encoded private key of the operator account
	EscrowAddress string
	TokenAddress  string
	// GasMargin pads the node's gas estimate to absorb estimation drift
	// between estimation and inclusion. Must be > 1.
	GasMargin float64
}

// Client implements Ledger over a go-ethereum RPC connection. All outbound
// transactions are signed with the single operator key; nonce assignment is
// serialized while submissions for independent orders may overlap.
type Client struct {
	eth      *ethclient.Client
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	operator common.Address

	escrowAddr common.Address
	tokenAddr  common.Address
	escrow     abi.ABI
	token      abi.ABI
	gasMargin  float64

	nonceMu sync.Mutex
	events  chan Event
}

func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.GasMargin <= 1 {
		return nil, fmt.Errorf("gas margin must be > 1, got %v", cfg.GasMargin)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", ErrUnreachable, err)
	}

	escrow, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("parse escrow ABI: %w", err)
	}
	token, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token ABI: %w", err)
	}

	return &Client{
		eth:        eth,
		chainID:    chainID,
		key:        key,
		operator:   crypto.PubkeyToAddress(key.PublicKey),
		escrowAddr: common.HexToAddress(cfg.EscrowAddress),
		tokenAddr:  common.HexToAddress(cfg.TokenAddress),
		escrow:     escrow,
		token:      token,
		gasMargin:  cfg.GasMargin,
		events:     make(chan Event, 128),
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// ChainID is read once at dial time; ledger chain ids do not change.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// OperatorAddress is the service account that signs every outbound
// transaction and receives the service fee on settlement.
func (c *Client) OperatorAddress() string {
	return strings.ToLower(c.operator.Hex())
}

func (c *Client) Metadata(name string) (ContractMetadata, bool) {
	switch name {
	case ContractEscrow:
		return ContractMetadata{Address: strings.ToLower(c.escrowAddr.Hex()), ABI: json.RawMessage(escrowABI)}, true
	case ContractToken:
		return ContractMetadata{Address: strings.ToLower(c.tokenAddr.Hex()), ABI: json.RawMessage(tokenABI)}, true
	}
	return ContractMetadata{}, false
}

func (c *Client) Events() <-chan Event {
	return c.events
}

// splitDefArg mirrors the splittingDefinition tuple for ABI packing.
type splitDefArg struct {
	Recipients []common.Address
	Amounts    []*big.Int
}

func (c *Client) OpenEscrowSlot(ctx context.Context, orderID int64, def SplitDef) error {
	arg := splitDefArg{Amounts: def.Amounts}
	for _, r := range def.Recipients {
		arg.Recipients = append(arg.Recipients, common.HexToAddress(r))
	}
	return c.send(ctx, c.escrowAddr, c.escrow, "openEscrowSlot", big.NewInt(orderID), arg)
}

func (c *Client) FundEscrowSlotFrom(ctx context.Context, slotID int64, payer string) error {
	return c.send(ctx, c.escrowAddr, c.escrow, "fundEscrowSlotFrom", big.NewInt(slotID), common.HexToAddress(payer))
}

func (c *Client) SettleEscrowSlot(ctx context.Context, slotID int64) error {
	return c.send(ctx, c.escrowAddr, c.escrow, "settleEscrowSlot", big.NewInt(slotID))
}

func (c *Client) Mint(ctx context.Context, address string, amount *big.Int) error {
	return c.send(ctx, c.tokenAddr, c.token, "mint", common.HexToAddress(address), amount)
}

func (c *Client) TokenDecimals(ctx context.Context) (uint8, error) {
	vals, err := c.call(ctx, c.tokenAddr, c.token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", vals[0])
	}
	return decimals, nil
}

func (c *Client) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	vals, err := c.call(ctx, c.tokenAddr, c.token, "allowance", common.HexToAddress(owner), c.escrowAddr)
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

func (c *Client) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	vals, err := c.call(ctx, c.tokenAddr, c.token, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

func (c *Client) IsEscrowSlotFunded(ctx context.Context, slotID int64) (bool, error) {
	vals, err := c.call(ctx, c.escrowAddr, c.escrow, "isEscrowSlotFunded", big.NewInt(slotID))
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

func (c *Client) EscrowedValue(ctx context.Context, slotID int64) (*big.Int, error) {
	vals, err := c.call(ctx, c.escrowAddr, c.escrow, "getEscrowedValue", big.NewInt(slotID))
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

func (c *Client) call(ctx context.Context, to common.Address, cabi abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := cabi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{From: c.operator, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCallReverted, method, err)
	}
	vals, err := cabi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// send estimates gas, pads the estimate with the configured margin, signs
// with the operator key, submits and waits for the receipt.
func (c *Client) send(ctx context.Context, to common.Address, cabi abi.ABI, method string, args ...interface{}) error {
	data, err := cabi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: c.operator, To: &to, Data: data})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGasEstimation, method, err)
	}
	gas = uint64(float64(gas) * c.gasMargin)

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("%w: gas price: %v", ErrUnreachable, err)
	}

	c.nonceMu.Lock()
	nonce, err := c.eth.PendingNonceAt(ctx, c.operator)
	if err != nil {
		c.nonceMu.Unlock()
		return fmt.Errorf("%w: nonce: %v", ErrUnreachable, err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		c.nonceMu.Unlock()
		return fmt.Errorf("sign %s: %w", method, err)
	}
	err = c.eth.SendTransaction(ctx, signed)
	c.nonceMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: send %s: %v", ErrUnreachable, method, err)
	}

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s tx %s", ErrReverted, method, signed.Hash())
	}
	return nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: receipt %s: %v", ErrUnreachable, hash, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: receipt %s: %v", ErrUnreachable, hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Run subscribes to both contracts' logs and streams decoded events until
// ctx is cancelled, resubscribing with backoff on subscription errors.
func (c *Client) Run(ctx context.Context) {
	defer close(c.events)
	for {
		if err := c.streamLogs(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("ledger subscription failed, retrying", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Client) streamLogs(ctx context.Context) error {
	logs := make(chan types.Log, 64)
	query := ethereum.FilterQuery{Addresses: []common.Address{c.escrowAddr, c.tokenAddr}}
	sub, err := c.eth.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("%w: subscribe: %v", ErrUnreachable, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("%w: subscription: %v", ErrUnreachable, err)
		case log := <-logs:
			if ev, ok := c.decode(log); ok {
				select {
				case c.events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (c *Client) decode(log types.Log) (Event, bool) {
	if len(log.Topics) == 0 || log.Removed {
		return Event{}, false
	}
	switch log.Address {
	case c.escrowAddr:
		return c.decodeEscrow(log)
	case c.tokenAddr:
		return c.decodeToken(log)
	}
	return Event{}, false
}

func (c *Client) decodeEscrow(log types.Log) (Event, bool) {
	switch log.Topics[0] {
	case c.escrow.Events["EscrowSlotOpened"].ID:
		vals, err := c.escrow.Unpack("EscrowSlotOpened", log.Data)
		if err != nil {
			slog.Error("failed to decode EscrowSlotOpened", "error", err)
			return Event{}, false
		}
		return Event{
			Kind:    EventSlotOpened,
			OrderID: vals[0].(*big.Int).Int64(),
			SlotID:  vals[1].(*big.Int).Int64(),
		}, true
	case c.escrow.Events["EscrowSlotFunded"].ID:
		vals, err := c.escrow.Unpack("EscrowSlotFunded", log.Data)
		if err != nil {
			slog.Error("failed to decode EscrowSlotFunded", "error", err)
			return Event{}, false
		}
		return Event{Kind: EventSlotFunded, SlotID: vals[0].(*big.Int).Int64()}, true
	case c.escrow.Events["EscrowSlotSettled"].ID:
		vals, err := c.escrow.Unpack("EscrowSlotSettled", log.Data)
		if err != nil {
			slog.Error("failed to decode EscrowSlotSettled", "error", err)
			return Event{}, false
		}
		return Event{Kind: EventSlotSettled, SlotID: vals[0].(*big.Int).Int64()}, true
	}
	return Event{}, false
}

func (c *Client) decodeToken(log types.Log) (Event, bool) {
	switch log.Topics[0] {
	case c.token.Events["Approval"].ID:
		if len(log.Topics) < 3 {
			return Event{}, false
		}
		spender := common.BytesToAddress(log.Topics[2].Bytes())
		if spender != c.escrowAddr {
			// Allowances granted to anyone else cannot fund a slot.
			return Event{}, false
		}
		owner := common.BytesToAddress(log.Topics[1].Bytes())
		return Event{Kind: EventApproval, Address: strings.ToLower(owner.Hex())}, true
	case c.token.Events["Transfer"].ID:
		if len(log.Topics) < 3 {
			return Event{}, false
		}
		to := common.BytesToAddress(log.Topics[2].Bytes())
		return Event{Kind: EventTransfer, Address: strings.ToLower(to.Hex())}, true
	}
	return Event{}, false
}
