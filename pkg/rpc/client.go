package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogReader fetches contract event logs.
type LogReader interface {
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// HeadReader reports the chain tip under the three block tags the head oracle supports.
type HeadReader interface {
	GetLatestBlockHeader(ctx context.Context) (*types.Header, error)
	GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error)
	GetSafeBlockHeader(ctx context.Context) (*types.Header, error)
}

// ContractCaller runs read-only calls. A nil blockNum calls against the latest state.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *uint64) ([]byte, error)
}

// EthClient is everything the jobs need from a chain node.
type EthClient interface {
	LogReader
	HeadReader
	ContractCaller
	Close()
}
