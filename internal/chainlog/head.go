package chainlog

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	pkgrpc "github.com/goran-ethernal/ChainLedger/pkg/rpc"
)

// HeadOracle reports the highest block considered safe from reorganization.
type HeadOracle struct {
	client       pkgrpc.HeadReader
	finality     Finality
	finalizedLag uint64
}

// NewHeadOracle creates a HeadOracle for the given finality mode.
// finalizedLag only applies to the "latest" mode.
func NewHeadOracle(client pkgrpc.HeadReader, finality Finality, finalizedLag uint64) *HeadOracle {
	return &HeadOracle{
		client:       client,
		finality:     finality,
		finalizedLag: finalizedLag,
	}
}

// SafeHead returns the number of the highest confirmed block.
func (h *HeadOracle) SafeHead(ctx context.Context) (uint64, error) {
	var (
		header *types.Header
		err    error
	)

	switch h.finality {
	case Finalized:
		header, err = h.client.GetFinalizedBlockHeader(ctx)
	case Safe:
		header, err = h.client.GetSafeBlockHeader(ctx)
	case Latest:
		header, err = h.client.GetLatestBlockHeader(ctx)
		if err != nil {
			break
		}

		latest := header.Number.Uint64()
		if latest < h.finalizedLag {
			return 0, nil
		}

		return latest - h.finalizedLag, nil
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", h.finality)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get %s block header: %w", h.finality, err)
	}

	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("node returned no %s block header", h.finality)
	}

	return header.Number.Uint64(), nil
}
