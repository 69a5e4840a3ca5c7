package contracts

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	icommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
)

// PropertyDirectory answers whether an address is a property contract.
// Known properties are cached; unknown addresses are resolved with PropertyGroup.isGroup.
type PropertyDirectory struct {
	client pkgrpc.ContractCaller
	group  chainlog.Contract
	log    *logger.Logger

	mu    sync.RWMutex
	known map[common.Address]struct{}
}

// NewPropertyDirectory creates a directory backed by the PropertyGroup contract.
func NewPropertyDirectory(client pkgrpc.ContractCaller, group chainlog.Contract, log *logger.Logger) *PropertyDirectory {
	return &PropertyDirectory{
		client: client,
		group:  group,
		log:    log.WithComponent(icommon.ComponentContracts),
		known:  make(map[common.Address]struct{}),
	}
}

// Remember adds addresses already known to be properties.
func (d *PropertyDirectory) Remember(addrs ...common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, addr := range addrs {
		d.known[addr] = struct{}{}
	}
}

// IsProperty reports whether addr is a property contract.
// Only positive answers are cached: an address may become a property later.
func (d *PropertyDirectory) IsProperty(ctx context.Context, addr common.Address) (bool, error) {
	d.mu.RLock()
	_, ok := d.known[addr]
	d.mu.RUnlock()

	if ok {
		return true, nil
	}

	values, err := call(ctx, d.client, d.group, nil, "isGroup", addr)
	if err != nil {
		return false, err
	}

	isGroup, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("isGroup returned %T, not bool", values[0])
	}

	if isGroup {
		d.Remember(addr)
		d.log.Debugw("discovered property", "address", addr.Hex())
	}

	return isGroup, nil
}
