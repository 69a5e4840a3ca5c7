package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	"github.com/goran-ethernal/ChainLedger/internal/contracts"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/testutil"
	"github.com/goran-ethernal/ChainLedger/internal/watermark"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
	"github.com/stretchr/testify/require"
)

var (
	alice    = common.HexToAddress("0xA11CE00000000000000000000000000000000001")
	bob      = common.HexToAddress("0xB0B0000000000000000000000000000000000002")
	carol    = common.HexToAddress("0xCA70100000000000000000000000000000000003")
	property = common.HexToAddress("0x7000000000000000000000000000000000000007")

	testContracts = []config.ContractConfig{
		{Name: contracts.Dev, Address: "0x00000000000000000000000000000000000000d1"},
		{Name: contracts.Lockup, Address: "0x00000000000000000000000000000000000000d2"},
		{Name: contracts.Withdraw, Address: "0x00000000000000000000000000000000000000d3"},
		{Name: contracts.PropertyFactory, Address: "0x00000000000000000000000000000000000000d4"},
		{Name: contracts.PropertyGroup, Address: "0x00000000000000000000000000000000000000d5"},
		{Name: contracts.MetricsFactory, Address: "0x00000000000000000000000000000000000000d6"},
		{Name: contracts.Pair, Address: "0x00000000000000000000000000000000000000d7"},
		{Name: contracts.PropertyDirectoryFactory, Address: "0x00000000000000000000000000000000000000d8"},
	}
)

type fixedHead uint64

func (h fixedHead) SafeHead(context.Context) (uint64, error) {
	return uint64(h), nil
}

type eventsCall struct {
	contract common.Address
	event    string
	from, to uint64
}

// memorySource serves events by contract address, event name and block range.
type memorySource struct {
	entries []chainlog.Entry
	calls   []eventsCall
}

func (s *memorySource) GetEvents(
	_ context.Context,
	contract chainlog.Contract,
	eventName string,
	from, to uint64,
) ([]chainlog.Entry, error) {
	s.calls = append(s.calls, eventsCall{contract: contract.Address, event: eventName, from: from, to: to})

	var out []chainlog.Entry
	for _, e := range s.entries {
		if e.Address == contract.Address && e.Event == eventName && e.BlockNumber >= from && e.BlockNumber <= to {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memorySource) add(contract common.Address, event string, block uint64, values map[string]any) {
	logIndex := uint(len(s.entries))
	blockHash := common.BigToHash(new(big.Int).SetUint64(block))
	txHash := common.BigToHash(big.NewInt(int64(block)<<8 + int64(logIndex)))

	s.entries = append(s.entries, chainlog.Entry{
		ID:              chainlog.EventID(blockHash, txHash, logIndex),
		Event:           event,
		Address:         contract,
		BlockNumber:     block,
		BlockHash:       blockHash,
		TransactionHash: txHash,
		LogIndex:        logIndex,
		ReturnValues:    values,
	})
}

// fakeChain answers PropertyGroup and Property view calls from in-memory state.
type fakeChain struct {
	pkgrpc.EthClient

	groupABI    *abi.ABI
	propertyABI *abi.ABI
	group       common.Address

	properties map[common.Address]bool
	authors    map[common.Address]common.Address
	balances   map[common.Address]map[common.Address]int64
	supply     map[common.Address]int64
	calls      map[string]int
}

func newFakeChain(t *testing.T, group common.Address) *fakeChain {
	t.Helper()

	groupABI, err := contracts.LoadABI(contracts.PropertyGroup)
	require.NoError(t, err)
	propertyABI, err := contracts.LoadABI(contracts.Property)
	require.NoError(t, err)

	return &fakeChain{
		groupABI:    groupABI,
		propertyABI: propertyABI,
		group:       group,
		properties:  make(map[common.Address]bool),
		authors:     make(map[common.Address]common.Address),
		balances:    make(map[common.Address]map[common.Address]int64),
		supply:      make(map[common.Address]int64),
		calls:       make(map[string]int),
	}
}

func (c *fakeChain) setBalance(property, account common.Address, value int64) {
	if c.balances[property] == nil {
		c.balances[property] = make(map[common.Address]int64)
	}
	c.balances[property][account] = value
}

func (c *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *uint64) ([]byte, error) {
	contractABI := c.propertyABI
	if *msg.To == c.group {
		contractABI = c.groupABI
	}

	method, err := contractABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	c.calls[method.Name]++

	target := *msg.To
	switch method.Name {
	case "isGroup":
		return method.Outputs.Pack(c.properties[args[0].(common.Address)])
	case "author":
		return method.Outputs.Pack(c.authors[target])
	case "balanceOf":
		return method.Outputs.Pack(big.NewInt(c.balances[target][args[0].(common.Address)]))
	case "totalSupply":
		return method.Outputs.Pack(big.NewInt(c.supply[target]))
	case "name":
		return method.Outputs.Pack("Property " + target.Hex()[2:6])
	case "symbol":
		return method.Outputs.Pack("P" + target.Hex()[2:4])
	default:
		return nil, fmt.Errorf("unexpected call %s", method.Name)
	}
}

type testEnv struct {
	db        *sql.DB
	chain     *fakeChain
	source    *memorySource
	contracts *contracts.Registry
	deps      job.Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := testutil.NewTestDB(t)
	log := logger.NewNopLogger()

	registry, err := contracts.NewRegistry(testContracts)
	require.NoError(t, err)

	group, err := registry.Contract(contracts.PropertyGroup)
	require.NoError(t, err)

	chain := newFakeChain(t, group.Address)
	source := &memorySource{}

	tokens, err := contracts.NewPropertyToken(chain, source)
	require.NoError(t, err)

	return &testEnv{
		db:        database,
		chain:     chain,
		source:    source,
		contracts: registry,
		deps: job.Deps{
			DB:         database,
			Contracts:  registry,
			Head:       fixedHead(1_000_000),
			Source:     source,
			Properties: contracts.NewPropertyDirectory(chain, group, log),
			Tokens:     tokens,
			Log:        log,
		},
	}
}

func (e *testEnv) address(t *testing.T, name string) common.Address {
	t.Helper()

	c, err := e.contracts.Contract(name)
	require.NoError(t, err)

	return c.Address
}

func (e *testEnv) run(t *testing.T, jobType string, mutate ...func(*config.JobConfig)) error {
	t.Helper()

	cfg := config.JobConfig{Type: jobType}
	for _, m := range mutate {
		m(&cfg)
	}
	cfg.ApplyDefaults()

	j, err := job.Create(cfg, e.deps)
	require.NoError(t, err)
	require.Equal(t, cfg.Name, j.Name())

	return j.Run(context.Background())
}

func (e *testEnv) watermark(t *testing.T, name string) uint64 {
	t.Helper()

	w, err := watermark.Get(context.Background(), e.db, name)
	require.NoError(t, err)

	return w
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()

	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}
