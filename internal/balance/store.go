package balance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/shopspring/decimal"
)

const snapshotTable = "property_balance"

// ErrNoTransfers is returned when a balance snapshot is regenerated from an empty history.
var ErrNoTransfers = errors.New("property balance record is 0")

// Snapshot is the materialized balance of one account in one property.
type Snapshot struct {
	PropertyAddress common.Address  `meddler:"property_address,address"`
	AccountAddress  common.Address  `meddler:"account_address,address"`
	Balance         decimal.Decimal `meddler:"balance"`
	IsAuthor        bool            `meddler:"is_author"`
	BlockNumber     uint64          `meddler:"block_number"`
}

// Store regenerates balance snapshots. Every method runs on the caller's transaction.
type Store struct {
	mintSender common.Address
}

// NewStore creates a Store that treats transfers from mintSender as mints.
func NewStore(mintSender common.Address) *Store {
	return &Store{mintSender: mintSender}
}

// Regenerate replaces every snapshot of property with the balances folded from transfers.
func (s *Store) Regenerate(
	ctx context.Context,
	tx *sql.Tx,
	property, author common.Address,
	transfers []Transfer,
) ([]Snapshot, error) {
	if len(transfers) == 0 {
		return nil, fmt.Errorf("%w: property %s", ErrNoTransfers, property.Hex())
	}

	if err := s.Clear(ctx, tx, property); err != nil {
		return nil, err
	}

	res := Fold(transfers, s.mintSender)

	accounts := make([]common.Address, 0, len(res.Balances))
	for account := range res.Balances {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
	})

	snapshots := make([]Snapshot, 0, len(accounts))
	for _, account := range accounts {
		snapshot := Snapshot{
			PropertyAddress: property,
			AccountAddress:  account,
			Balance:         res.Balances[account],
			IsAuthor:        account == author,
			BlockNumber:     res.LastBlocks[account],
		}

		if err := meddler.Insert(tx, snapshotTable, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to insert balance of %s in %s: %w", account.Hex(), property.Hex(), err)
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// Clear deletes every snapshot of property.
func (s *Store) Clear(ctx context.Context, tx *sql.Tx, property common.Address) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM property_balance WHERE property_address = ?`, property.Hex()); err != nil {
		return fmt.Errorf("failed to delete balances of %s: %w", property.Hex(), err)
	}

	return nil
}

// Snapshots returns the stored snapshots of property ordered by account.
func Snapshots(db meddler.DB, property common.Address) ([]*Snapshot, error) {
	var snapshots []*Snapshot
	if err := meddler.QueryAll(db, &snapshots,
		`SELECT * FROM property_balance WHERE property_address = ? ORDER BY account_address`,
		property.Hex()); err != nil {
		return nil, fmt.Errorf("failed to load balances of %s: %w", property.Hex(), err)
	}

	return snapshots, nil
}
