package lockup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// Ledger tables.
const (
	AccountLockupTable  = "account_lockup"
	PropertyLockupTable = "property_lockup"
)

// Ledger reads and writes lockup entries of one ledger table on the caller's transaction.
type Ledger struct {
	table string
}

// NewLedger creates a Ledger over one of the ledger tables.
func NewLedger(table string) (*Ledger, error) {
	if table != AccountLockupTable && table != PropertyLockupTable {
		return nil, fmt.Errorf("unknown lockup ledger table %q", table)
	}

	return &Ledger{table: table}, nil
}

// Table returns the ledger table name.
func (l *Ledger) Table() string {
	return l.table
}

// Get returns the entry of (holder, counterparty), or nil when none exists.
func (l *Ledger) Get(ctx context.Context, tx *sql.Tx, holder, counterparty common.Address) (*Entry, error) {
	var entry Entry
	err := meddler.QueryRow(tx, &entry,
		"SELECT * FROM "+l.table+" WHERE account_address = ? AND property_address = ?",
		holder.Hex(), counterparty.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entry %s/%s: %w", l.table, holder.Hex(), counterparty.Hex(), err)
	}

	return &entry, nil
}

// Put inserts or replaces the entry.
func (l *Ledger) Put(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	if entry.Value.IsNegative() {
		return fmt.Errorf("%w: %s entry %s/%s would hold %s", ErrNegativeLockup,
			l.table, entry.AccountAddress.Hex(), entry.PropertyAddress.Hex(), entry.Value)
	}

	//nolint:gosec
	_, err := tx.ExecContext(ctx, `
		INSERT INTO `+l.table+` (account_address, property_address, value, locked_up_event_id, block_number)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_address, property_address) DO UPDATE SET
			value = excluded.value,
			locked_up_event_id = excluded.locked_up_event_id,
			block_number = excluded.block_number`,
		entry.AccountAddress.Hex(), entry.PropertyAddress.Hex(), entry.Value.String(),
		entry.LockedUpEventID, entry.BlockNumber)
	if err != nil {
		return fmt.Errorf("failed to upsert %s entry %s/%s: %w", l.table,
			entry.AccountAddress.Hex(), entry.PropertyAddress.Hex(), err)
	}

	return nil
}

// Delete removes the entry of (holder, counterparty).
func (l *Ledger) Delete(ctx context.Context, tx *sql.Tx, holder, counterparty common.Address) error {
	//nolint:gosec
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM "+l.table+" WHERE account_address = ? AND property_address = ?",
		holder.Hex(), counterparty.Hex()); err != nil {
		return fmt.Errorf("failed to delete %s entry %s/%s: %w", l.table, holder.Hex(), counterparty.Hex(), err)
	}

	return nil
}

// Entries returns every entry of the ledger.
func (l *Ledger) Entries(db meddler.DB) ([]*Entry, error) {
	var entries []*Entry
	if err := meddler.QueryAll(db, &entries,
		"SELECT * FROM "+l.table+" ORDER BY account_address, property_address"); err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", l.table, err)
	}

	return entries, nil
}
