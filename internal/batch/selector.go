package batch

// BlockNumbered is a record that belongs to a block.
type BlockNumbered interface {
	GetBlockNumber() uint64
}

// SelectByBlock returns the longest prefix of records holding at least limit
// records (or all of them) that never ends in the middle of a block: once limit
// records are taken, records are still appended while they share the block of
// the last appended record. records must be ordered by block number.
func SelectByBlock[T BlockNumbered](records []T, limit int) []T {
	var lastBlock uint64

	for i, r := range records {
		if i >= limit && r.GetBlockNumber() != lastBlock {
			return records[:i]
		}
		lastBlock = r.GetBlockNumber()
	}

	return records
}

// MaxBlockNumber returns the highest block number in records, or 0 for none.
func MaxBlockNumber[T BlockNumbered](records []T) uint64 {
	var maxBlock uint64
	for _, r := range records {
		maxBlock = max(maxBlock, r.GetBlockNumber())
	}

	return maxBlock
}
