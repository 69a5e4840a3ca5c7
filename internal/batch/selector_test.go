package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	id    int
	block uint64
}

func (r record) GetBlockNumber() uint64 { return r.block }

func records(blocks ...uint64) []record {
	out := make([]record, len(blocks))
	for i, b := range blocks {
		out[i] = record{id: i, block: b}
	}
	return out
}

func TestSelectByBlock(t *testing.T) {
	tests := []struct {
		name    string
		records []record
		limit   int
		wantLen int
	}{
		{name: "extends to finish the block", records: records(1, 2, 3, 3, 3, 4), limit: 3, wantLen: 5},
		{name: "cut on block boundary", records: records(1, 2, 3, 3, 3, 4), limit: 2, wantLen: 2},
		{name: "limit equals length", records: records(1, 2, 3, 3, 3, 4), limit: 6, wantLen: 6},
		{name: "limit above length", records: records(1, 2, 3), limit: 100, wantLen: 3},
		{name: "zero limit", records: records(1, 2, 3), limit: 0, wantLen: 0},
		{name: "zero limit takes block zero", records: records(0, 0, 1), limit: 0, wantLen: 2},
		{name: "single block larger than limit", records: records(7, 7, 7, 7, 8), limit: 1, wantLen: 4},
		{name: "empty input", records: nil, limit: 3, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectByBlock(tt.records, tt.limit)
			require.Len(t, got, tt.wantLen)
			require.Equal(t, tt.records[:tt.wantLen], got)
		})
	}
}

func TestSelectByBlock_NeverSplitsBlock(t *testing.T) {
	input := records(1, 1, 2, 2, 2, 3, 4, 4, 5, 5, 5, 5, 6)

	for limit := 0; limit <= len(input); limit++ {
		got := SelectByBlock(input, limit)

		require.GreaterOrEqual(t, len(got), min(limit, len(input)), "limit %d", limit)
		if len(got) > 0 && len(got) < len(input) {
			require.NotEqual(t, got[len(got)-1].block, input[len(got)].block,
				"limit %d split block %d", limit, got[len(got)-1].block)
		}
	}
}

func TestMaxBlockNumber(t *testing.T) {
	require.Equal(t, uint64(0), MaxBlockNumber[record](nil))
	require.Equal(t, uint64(9), MaxBlockNumber(records(3, 9, 4)))
}
