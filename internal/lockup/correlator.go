package lockup

import (
	"context"
	"database/sql"
	"fmt"

	icommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/russross/meddler"
	"github.com/shopspring/decimal"
)

// Correlator applies account/property transfers to a lockup ledger.
// Deposits are correlated to the lock event emitted in the same transaction.
type Correlator struct {
	job        string
	ledger     *Ledger
	unresolved UnresolvedMode
	mismatch   MismatchMode
	log        *logger.Logger

	// lowest block of any recorded lock event, loaded by Prepare
	minLockBlock sql.NullInt64
}

// NewCorrelator creates a Correlator for job writing into ledger.
func NewCorrelator(
	job string,
	ledger *Ledger,
	unresolved UnresolvedMode,
	mismatch MismatchMode,
	log *logger.Logger,
) *Correlator {
	return &Correlator{
		job:        job,
		ledger:     ledger,
		unresolved: unresolved,
		mismatch:   mismatch,
		log:        log.WithComponent(icommon.ComponentCorrelator),
	}
}

// Prepare loads the start of lock event history. It must run on the batch transaction before Apply.
func (c *Correlator) Prepare(ctx context.Context, tx *sql.Tx) error {
	if err := tx.QueryRowContext(ctx,
		`SELECT MIN(block_number) FROM lockup_lockedup`).Scan(&c.minLockBlock); err != nil {
		return fmt.Errorf("failed to read first lock event block: %w", err)
	}

	return nil
}

// Apply folds one transfer into the ledger.
func (c *Correlator) Apply(ctx context.Context, tx *sql.Tx, t *Transfer) error {
	if t.IsLockup {
		return c.deposit(ctx, tx, t)
	}

	return c.withdraw(ctx, tx, t)
}

func (c *Correlator) deposit(ctx context.Context, tx *sql.Tx, t *Transfer) error {
	holder, counterparty := t.Parties()

	lockID, resolved, err := c.correlate(ctx, tx, t)
	if err != nil {
		return err
	}

	if !resolved {
		if c.unresolved == UnresolvedFail {
			return fmt.Errorf("%w: event %s (block %d, tx index %d, %s -> %s, value %s)",
				ErrUnresolvedCorrelation, t.EventID, t.BlockNumber, t.TransactionIndex,
				holder.Hex(), counterparty.Hex(), t.Value)
		}

		c.log.Warnw("skipping deposit without lock event",
			"job", c.job,
			"event_id", t.EventID,
			"block", t.BlockNumber,
		)

		return meddler.Insert(tx, "ignored_lockup_event", &IgnoredEvent{
			JobName:     c.job,
			EventID:     t.EventID,
			BlockNumber: t.BlockNumber,
			Reason:      ErrUnresolvedCorrelation.Error(),
			RawData:     t.RawData,
		})
	}

	entry, err := c.ledger.Get(ctx, tx, holder, counterparty)
	if err != nil {
		return err
	}

	value := decimal.Zero
	if entry != nil {
		value = entry.Value
	}

	return c.ledger.Put(ctx, tx, &Entry{
		AccountAddress:  holder,
		PropertyAddress: counterparty,
		Value:           value.Add(t.Value),
		LockedUpEventID: lockID,
		BlockNumber:     t.BlockNumber,
	})
}

// correlate finds the lock event matching a deposit by block, transaction index,
// parties and value. resolved is false when no match exists after lock history began.
func (c *Correlator) correlate(ctx context.Context, tx *sql.Tx, t *Transfer) (string, bool, error) {
	holder, counterparty := t.Parties()

	rows, err := tx.QueryContext(ctx, `
		SELECT event_id FROM lockup_lockedup
		WHERE block_number = ? AND transaction_index = ? AND from_address = ? AND property = ? AND token_value = ?`,
		t.BlockNumber, t.TransactionIndex, holder.Hex(), counterparty.Hex(), t.Value.String())
	if err != nil {
		return "", false, fmt.Errorf("failed to look up lock event of %s: %w", t.EventID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", false, fmt.Errorf("failed to scan lock event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", false, fmt.Errorf("failed to look up lock event of %s: %w", t.EventID, err)
	}

	switch len(ids) {
	case 0:
		if c.minLockBlock.Valid && t.BlockNumber < uint64(c.minLockBlock.Int64) {
			return PreHistoryEventID, true, nil
		}
		return "", false, nil
	case 1:
		return ids[0], true, nil
	default:
		return "", false, fmt.Errorf("%w: event %s matches %v", ErrAmbiguousCorrelation, t.EventID, ids)
	}
}

func (c *Correlator) withdraw(ctx context.Context, tx *sql.Tx, t *Transfer) error {
	holder, counterparty := t.Parties()

	entry, err := c.ledger.Get(ctx, tx, holder, counterparty)
	if err != nil {
		return err
	}

	if entry == nil {
		c.log.Debugw("withdrawal without lockup entry",
			"job", c.job,
			"event_id", t.EventID,
			"holder", holder.Hex(),
			"counterparty", counterparty.Hex(),
		)
		return nil
	}

	if entry.Value.Equal(t.Value) {
		return c.ledger.Delete(ctx, tx, holder, counterparty)
	}

	if c.mismatch == MismatchFail {
		return fmt.Errorf("%w: event %s withdraws %s, %s/%s holds %s", ErrLockupMismatch,
			t.EventID, t.Value, holder.Hex(), counterparty.Hex(), entry.Value)
	}

	entry.Value = entry.Value.Sub(t.Value)
	entry.BlockNumber = t.BlockNumber

	return c.ledger.Put(ctx, tx, entry)
}
