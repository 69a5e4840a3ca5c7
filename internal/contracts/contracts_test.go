package contracts

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/rpc/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	groupAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	propertyAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	authorAddr   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	otherAddr    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// callTo matches a call of method on the contract at addr.
func callTo(parsed *abi.ABI, addr common.Address, method string) any {
	id := parsed.Methods[method].ID

	return mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return msg.To != nil && *msg.To == addr && bytes.HasPrefix(msg.Data, id)
	})
}

func packed(t *testing.T, parsed *abi.ABI, method string, values ...any) []byte {
	t.Helper()

	out, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)

	return out
}

func loadABI(t *testing.T, name string) *abi.ABI {
	t.Helper()

	parsed, err := LoadABI(name)
	require.NoError(t, err)

	return parsed
}

func TestLoadABI(t *testing.T) {
	for _, name := range []string{Dev, Lockup, Withdraw, PropertyFactory, PropertyGroup, MetricsFactory, Pair, Property, PropertyDirectoryFactory} {
		_, err := LoadABI(name)
		require.NoError(t, err, name)
	}

	_, err := LoadABI("Unknown")
	require.ErrorContains(t, err, "no embedded ABI for contract Unknown")
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry([]config.ContractConfig{
		{Name: Lockup, Address: "0x00000000000000000000000000000000000000d2"},
		{Name: PropertyGroup, Address: groupAddr.Hex()},
	})
	require.NoError(t, err)

	lockup, err := r.Contract(Lockup)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xd2"), lockup.Address)
	require.Contains(t, lockup.ABI.Events, "Lockedup")

	require.True(t, r.Has(PropertyGroup))
	require.False(t, r.Has(Dev))

	_, err = r.Contract(Dev)
	require.ErrorContains(t, err, "contract Dev is not configured")
}

func TestRegistry_ABIPath(t *testing.T) {
	dir := t.TempDir()

	custom := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(custom, []byte(`[{"anonymous":false,"inputs":[],"name":"Ping","type":"event"}]`), 0o600))

	r, err := NewRegistry([]config.ContractConfig{{Name: "Custom", Address: "0x01", ABIPath: custom}})
	require.NoError(t, err)

	c, err := r.Contract("Custom")
	require.NoError(t, err)
	require.Contains(t, c.ABI.Events, "Ping")

	_, err = NewRegistry([]config.ContractConfig{{Name: "Custom", ABIPath: filepath.Join(dir, "missing.json")}})
	require.ErrorContains(t, err, "failed to open ABI file")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o600))

	_, err = NewRegistry([]config.ContractConfig{{Name: "Custom", ABIPath: broken}})
	require.ErrorContains(t, err, "failed to parse ABI file")

	_, err = NewRegistry([]config.ContractConfig{{Name: "NotAContract"}})
	require.ErrorContains(t, err, "no embedded ABI")
}

func TestPropertyDirectory(t *testing.T) {
	groupABI := loadABI(t, PropertyGroup)
	group := chainlog.Contract{Name: PropertyGroup, Address: groupAddr, ABI: groupABI}

	client := mocks.NewEthClient(t)
	client.On("CallContract", mock.Anything, callTo(groupABI, groupAddr, "isGroup"), (*uint64)(nil)).
		Return(packed(t, groupABI, "isGroup", true), nil).Once()
	client.On("CallContract", mock.Anything, callTo(groupABI, groupAddr, "isGroup"), (*uint64)(nil)).
		Return(packed(t, groupABI, "isGroup", false), nil).Twice()

	d := NewPropertyDirectory(client, group, logger.NewNopLogger())
	ctx := context.Background()

	ok, err := d.IsProperty(ctx, propertyAddr)
	require.NoError(t, err)
	require.True(t, ok)

	// cached, no further call
	ok, err = d.IsProperty(ctx, propertyAddr)
	require.NoError(t, err)
	require.True(t, ok)

	// negative answers are asked again
	for range 2 {
		ok, err = d.IsProperty(ctx, otherAddr)
		require.NoError(t, err)
		require.False(t, ok)
	}

	known := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	d.Remember(known)

	ok, err = d.IsProperty(ctx, known)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPropertyDirectory_CallError(t *testing.T) {
	groupABI := loadABI(t, PropertyGroup)
	group := chainlog.Contract{Name: PropertyGroup, Address: groupAddr, ABI: groupABI}

	client := mocks.NewEthClient(t)
	client.On("CallContract", mock.Anything, mock.Anything, (*uint64)(nil)).
		Return(nil, errors.New("execution reverted")).Once()

	d := NewPropertyDirectory(client, group, logger.NewNopLogger())

	_, err := d.IsProperty(context.Background(), otherAddr)
	require.ErrorContains(t, err, "PropertyGroup.isGroup call on")
	require.ErrorContains(t, err, "execution reverted")
}

type fakeSource struct {
	contract chainlog.Contract
	event    string
	from, to uint64
	entries  []chainlog.Entry
}

func (f *fakeSource) GetEvents(
	ctx context.Context,
	contract chainlog.Contract,
	eventName string,
	fromBlock, toBlock uint64,
) ([]chainlog.Entry, error) {
	f.contract, f.event, f.from, f.to = contract, eventName, fromBlock, toBlock
	return f.entries, nil
}

func TestPropertyToken(t *testing.T) {
	propertyABI := loadABI(t, Property)
	ctx := context.Background()

	client := mocks.NewEthClient(t)
	client.On("CallContract", mock.Anything, callTo(propertyABI, propertyAddr, "author"), (*uint64)(nil)).
		Return(packed(t, propertyABI, "author", authorAddr), nil).Once()
	client.On("CallContract", mock.Anything, callTo(propertyABI, propertyAddr, "balanceOf"), (*uint64)(nil)).
		Return(packed(t, propertyABI, "balanceOf", big.NewInt(9_000_000)), nil).Once()
	client.On("CallContract", mock.Anything, callTo(propertyABI, propertyAddr, "totalSupply"), (*uint64)(nil)).
		Return(packed(t, propertyABI, "totalSupply", big.NewInt(10_000_000)), nil).Once()
	client.On("CallContract", mock.Anything, callTo(propertyABI, propertyAddr, "name"), (*uint64)(nil)).
		Return(packed(t, propertyABI, "name", "Example"), nil).Once()
	client.On("CallContract", mock.Anything, callTo(propertyABI, propertyAddr, "symbol"), (*uint64)(nil)).
		Return(packed(t, propertyABI, "symbol", "EXM"), nil).Once()

	source := &fakeSource{entries: []chainlog.Entry{{ID: "log_1", Event: "Transfer"}}}

	token, err := NewPropertyToken(client, source)
	require.NoError(t, err)

	author, err := token.Author(ctx, propertyAddr)
	require.NoError(t, err)
	require.Equal(t, authorAddr, author)

	balance, err := token.BalanceOf(ctx, propertyAddr, authorAddr)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(9_000_000).Equal(balance))

	supply, err := token.TotalSupply(ctx, propertyAddr)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(10_000_000).Equal(supply))

	name, err := token.Name(ctx, propertyAddr)
	require.NoError(t, err)
	require.Equal(t, "Example", name)

	symbol, err := token.Symbol(ctx, propertyAddr)
	require.NoError(t, err)
	require.Equal(t, "EXM", symbol)

	transfers, err := token.Transfers(ctx, propertyAddr, 99, 201)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, propertyAddr, source.contract.Address)
	require.Equal(t, Property, source.contract.Name)
	require.Equal(t, "Transfer", source.event)
	require.Equal(t, uint64(99), source.from)
	require.Equal(t, uint64(201), source.to)
}

func TestPropertyToken_UnpackError(t *testing.T) {
	client := mocks.NewEthClient(t)
	client.On("CallContract", mock.Anything, mock.Anything, (*uint64)(nil)).Return([]byte{0x01}, nil).Once()

	token, err := NewPropertyToken(client, &fakeSource{})
	require.NoError(t, err)

	_, err = token.TotalSupply(context.Background(), propertyAddr)
	require.ErrorContains(t, err, "failed to unpack Property.totalSupply")
}
