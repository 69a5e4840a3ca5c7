package chainlog

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Contract describes a deployed contract whose events or methods are read.
type Contract struct {
	Name    string
	Address common.Address
	ABI     *abi.ABI
}

// Entry is one decoded contract event log.
type Entry struct {
	ID               string         `json:"id"`
	Event            string         `json:"event"`
	Signature        common.Hash    `json:"signature"`
	Address          common.Address `json:"address"`
	BlockNumber      uint64         `json:"blockNumber"`
	BlockHash        common.Hash    `json:"blockHash"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex uint           `json:"transactionIndex"`
	LogIndex         uint           `json:"logIndex"`
	ReturnValues     map[string]any `json:"returnValues"`
}

// GetBlockNumber returns the block the event was emitted in.
func (e *Entry) GetBlockNumber() uint64 {
	return e.BlockNumber
}

// AddressValue returns the named address argument.
func (e *Entry) AddressValue(name string) (common.Address, error) {
	v, ok := e.ReturnValues[name]
	if !ok {
		return common.Address{}, fmt.Errorf("event %s (%s) has no argument %q", e.Event, e.ID, name)
	}

	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("event %s (%s) argument %q is %T, not an address", e.Event, e.ID, name, v)
	}

	return addr, nil
}

// StringValue returns the named string argument.
func (e *Entry) StringValue(name string) (string, error) {
	v, ok := e.ReturnValues[name]
	if !ok {
		return "", fmt.Errorf("event %s (%s) has no argument %q", e.Event, e.ID, name)
	}

	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("event %s (%s) argument %q is %T, not a string", e.Event, e.ID, name, v)
	}

	return str, nil
}

// DecimalValue returns the named integer argument as a decimal.
func (e *Entry) DecimalValue(name string) (decimal.Decimal, error) {
	v, ok := e.ReturnValues[name]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("event %s (%s) has no argument %q", e.Event, e.ID, name)
	}

	n, ok := v.(*big.Int)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("event %s (%s) argument %q is %T, not an integer", e.Event, e.ID, name, v)
	}

	return decimal.NewFromBigInt(n, 0), nil
}

// RawJSON renders the whole entry as the raw payload stored next to the decoded columns.
func (e *Entry) RawJSON() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}

	return string(raw), nil
}

// EventID derives the web3-compatible log id: "log_" followed by the first
// 8 hex chars of keccak256 over the concatenated hex of block hash, tx hash and log index.
func EventID(blockHash, txHash common.Hash, logIndex uint) string {
	preimage := blockHash.Hex()[2:] + txHash.Hex()[2:] + fmt.Sprintf("%x", logIndex)
	digest := crypto.Keccak256Hash([]byte(preimage))

	return "log_" + digest.Hex()[2:10]
}
