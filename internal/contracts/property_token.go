package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
	"github.com/shopspring/decimal"
)

// EventSource fetches decoded contract events.
type EventSource interface {
	GetEvents(ctx context.Context, contract chainlog.Contract, eventName string, fromBlock, toBlock uint64) ([]chainlog.Entry, error)
}

// PropertyToken reads state and history of individual property tokens.
type PropertyToken struct {
	client pkgrpc.ContractCaller
	source EventSource
	abi    *abi.ABI
}

// NewPropertyToken creates a reader for property token contracts.
func NewPropertyToken(client pkgrpc.ContractCaller, source EventSource) (*PropertyToken, error) {
	parsed, err := LoadABI(Property)
	if err != nil {
		return nil, err
	}

	return &PropertyToken{client: client, source: source, abi: parsed}, nil
}

func (p *PropertyToken) contract(property common.Address) chainlog.Contract {
	return chainlog.Contract{Name: Property, Address: property, ABI: p.abi}
}

// Author returns the current author of the property.
func (p *PropertyToken) Author(ctx context.Context, property common.Address) (common.Address, error) {
	values, err := call(ctx, p.client, p.contract(property), nil, "author")
	if err != nil {
		return common.Address{}, err
	}

	author, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("author returned %T, not address", values[0])
	}

	return author, nil
}

// BalanceOf returns the property token balance of account.
func (p *PropertyToken) BalanceOf(ctx context.Context, property, account common.Address) (decimal.Decimal, error) {
	return p.uintCall(ctx, property, "balanceOf", account)
}

// TotalSupply returns the total supply of the property token.
func (p *PropertyToken) TotalSupply(ctx context.Context, property common.Address) (decimal.Decimal, error) {
	return p.uintCall(ctx, property, "totalSupply")
}

// Name returns the token name.
func (p *PropertyToken) Name(ctx context.Context, property common.Address) (string, error) {
	return p.stringCall(ctx, property, "name")
}

// Symbol returns the token symbol.
func (p *PropertyToken) Symbol(ctx context.Context, property common.Address) (string, error) {
	return p.stringCall(ctx, property, "symbol")
}

// Transfers returns the Transfer events of the property token in [fromBlock, toBlock].
func (p *PropertyToken) Transfers(
	ctx context.Context,
	property common.Address,
	fromBlock, toBlock uint64,
) ([]chainlog.Entry, error) {
	return p.source.GetEvents(ctx, p.contract(property), "Transfer", fromBlock, toBlock)
}

func (p *PropertyToken) uintCall(
	ctx context.Context,
	property common.Address,
	method string,
	args ...any,
) (decimal.Decimal, error) {
	values, err := call(ctx, p.client, p.contract(property), nil, method, args...)
	if err != nil {
		return decimal.Decimal{}, err
	}

	n, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s returned %T, not uint256", method, values[0])
	}

	return decimal.NewFromBigInt(n, 0), nil
}

func (p *PropertyToken) stringCall(ctx context.Context, property common.Address, method string) (string, error) {
	values, err := call(ctx, p.client, p.contract(property), nil, method)
	if err != nil {
		return "", err
	}

	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%s returned %T, not string", method, values[0])
	}

	return s, nil
}
