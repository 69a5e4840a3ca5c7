package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
)

// call executes a view method and returns its unpacked outputs.
func call(
	ctx context.Context,
	client pkgrpc.ContractCaller,
	contract chainlog.Contract,
	blockNum *uint64,
	method string,
	args ...any,
) ([]any, error) {
	data, err := contract.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", contract.Name, method, err)
	}

	to := contract.Address
	resp, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, blockNum)
	if err != nil {
		return nil, fmt.Errorf("%s.%s call on %s failed: %w", contract.Name, method, to.Hex(), err)
	}

	values, err := contract.ABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s: %w", contract.Name, method, err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%s.%s returned no values", contract.Name, method)
	}

	return values, nil
}
