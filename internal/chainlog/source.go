package chainlog

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	irpc "github.com/goran-ethernal/ChainLedger/internal/rpc"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
)

// Source fetches and decodes contract event logs from the chain node.
type Source struct {
	client    pkgrpc.LogReader
	chunkSize uint64
	log       *logger.Logger
}

// NewSource creates a Source that queries at most chunkSize blocks per eth_getLogs call.
func NewSource(client pkgrpc.LogReader, chunkSize uint64, log *logger.Logger) *Source {
	if chunkSize == 0 {
		chunkSize = 5000
	}

	return &Source{
		client:    client,
		chunkSize: chunkSize,
		log:       log.WithComponent(icommon.ComponentChainLog),
	}
}

// GetEvents returns every eventName log emitted by the contract in [fromBlock, toBlock],
// ordered by block number and log index. Removed logs are dropped.
func (s *Source) GetEvents(
	ctx context.Context,
	contract Contract,
	eventName string,
	fromBlock, toBlock uint64,
) ([]Entry, error) {
	event, ok := contract.ABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("contract %s has no event %s", contract.Name, eventName)
	}

	if fromBlock > toBlock {
		return nil, nil
	}

	addresses := []common.Address{contract.Address}
	topics := [][]common.Hash{{event.ID}}

	var entries []Entry
	for from := fromBlock; from <= toBlock; {
		to := min(from+s.chunkSize-1, toBlock)

		logs, coveredFrom, coveredTo, err := s.fetchLogsWithRetry(ctx, from, to, addresses, topics)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s.%s logs in [%d, %d]: %w",
				contract.Name, eventName, from, to, err)
		}

		for i := range logs {
			if logs[i].Removed {
				continue
			}

			entry, err := decodeLog(event, &logs[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s.%s log: %w", contract.Name, eventName, err)
			}

			entries = append(entries, entry)
		}

		s.log.Debugw("fetched logs",
			"contract", contract.Name,
			"event", eventName,
			"from", coveredFrom,
			"to", coveredTo,
			"count", len(logs),
		)

		if coveredTo == ^uint64(0) {
			break
		}
		from = coveredTo + 1
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].BlockNumber != entries[j].BlockNumber {
			return entries[i].BlockNumber < entries[j].BlockNumber
		}
		return entries[i].LogIndex < entries[j].LogIndex
	})

	return entries, nil
}

// fetchLogsWithRetry fetches logs, narrowing the range while the node answers with "too many results".
// It returns the sub-range [from, to] that was actually covered; it always starts at fromBlock.
func (s *Source) fetchLogsWithRetry(
	ctx context.Context,
	fromBlock, toBlock uint64,
	addresses []common.Address,
	topics [][]common.Hash,
) ([]types.Log, uint64, uint64, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
		Topics:    topics,
	}

	logs, err := s.client.GetLogs(ctx, query)
	if err == nil {
		return logs, fromBlock, toBlock, nil
	}

	tooMany, ok := irpc.AsTooManyResults(err)
	if !ok {
		return nil, 0, 0, err
	}

	if tooMany.Suggested && tooMany.From == fromBlock && tooMany.To >= fromBlock && tooMany.To < toBlock {
		s.log.Infof("too many logs, retrying with suggested block range from %d to %d (original range %d to %d)",
			tooMany.From, tooMany.To, fromBlock, toBlock)

		return s.fetchLogsWithRetry(ctx, tooMany.From, tooMany.To, addresses, topics)
	}

	mid := fromBlock + (toBlock-fromBlock)/2 //nolint:mnd
	if fromBlock == toBlock {
		return nil, 0, 0, fmt.Errorf("cannot split range further, single block %d has too many logs", fromBlock)
	}

	s.log.Infof("too many logs, retrying with range %d to %d (original range %d to %d)",
		fromBlock, mid, fromBlock, toBlock)

	return s.fetchLogsWithRetry(ctx, fromBlock, mid, addresses, topics)
}

// decodeLog decodes indexed and data arguments of a log into an Entry.
func decodeLog(event abi.Event, log *types.Log) (Entry, error) {
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return Entry{}, fmt.Errorf("log %s/%d is not a %s event", log.TxHash.Hex(), log.Index, event.Name)
	}

	values := make(map[string]any, len(event.Inputs))

	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
		return Entry{}, fmt.Errorf("failed to unpack data of %s: %w", event.Name, err)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return Entry{}, fmt.Errorf("failed to parse topics of %s: %w", event.Name, err)
	}

	return Entry{
		ID:               EventID(log.BlockHash, log.TxHash, log.Index),
		Event:            event.Name,
		Signature:        event.ID,
		Address:          log.Address,
		BlockNumber:      log.BlockNumber,
		BlockHash:        log.BlockHash,
		TransactionHash:  log.TxHash,
		TransactionIndex: log.TxIndex,
		LogIndex:         log.Index,
		ReturnValues:     values,
	}, nil
}
