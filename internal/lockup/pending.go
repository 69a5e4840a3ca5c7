package lockup

import (
	"context"
	"fmt"

	"github.com/russross/meddler"
)

const transferColumns = `event_id, block_number, log_index, transaction_index,
	from_address, to_address, value, is_lockup, raw_data`

// PendingTransfers returns the transfers recorded after block, in chain order.
func PendingTransfers(ctx context.Context, db meddler.DB, after uint64) ([]*Transfer, error) {
	var transfers []*Transfer
	if err := meddler.QueryAll(db, &transfers,
		`SELECT `+transferColumns+` FROM dev_property_transfer
		WHERE block_number > ? ORDER BY block_number, log_index`, after); err != nil {
		return nil, fmt.Errorf("failed to load transfers after block %d: %w", after, err)
	}

	return transfers, nil
}
