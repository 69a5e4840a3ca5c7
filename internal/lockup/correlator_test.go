package lockup

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	holder   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	property = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func insertLock(t *testing.T, database *sql.DB, id string, block uint64, txIndex uint, value int64) {
	t.Helper()

	_, err := database.Exec(`INSERT INTO lockup_lockedup
		(event_id, block_number, log_index, transaction_index, transaction_hash, from_address, property, token_value, raw_data)
		VALUES (?, ?, 0, ?, '0x', ?, ?, ?, '{}')`,
		id, block, txIndex, holder.Hex(), property.Hex(), decimal.NewFromInt(value).String())
	require.NoError(t, err)
}

func deposit(id string, block uint64, txIndex uint, value int64) *Transfer {
	return &Transfer{
		EventID:          id,
		BlockNumber:      block,
		TransactionIndex: txIndex,
		From:             holder,
		To:               property,
		Value:            decimal.NewFromInt(value),
		IsLockup:         true,
		RawData:          "{}",
	}
}

func withdrawal(id string, block uint64, value int64) *Transfer {
	return &Transfer{
		EventID:     id,
		BlockNumber: block,
		From:        property,
		To:          holder,
		Value:       decimal.NewFromInt(value),
		RawData:     "{}",
	}
}

func newTestCorrelator(t *testing.T, unresolved UnresolvedMode, mismatch MismatchMode) *Correlator {
	t.Helper()

	ledger, err := NewLedger(AccountLockupTable)
	require.NoError(t, err)

	return NewCorrelator("account-lockup", ledger, unresolved, mismatch, logger.NewNopLogger())
}

func apply(t *testing.T, database *sql.DB, c *Correlator, transfers ...*Transfer) error {
	t.Helper()

	ctx := context.Background()
	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer db.Rollback(tx, logger.NewNopLogger())

	if err := c.Prepare(ctx, tx); err != nil {
		return err
	}
	for _, transfer := range transfers {
		if err := c.Apply(ctx, tx, transfer); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func entries(t *testing.T, database *sql.DB) []*Entry {
	t.Helper()

	ledger, err := NewLedger(AccountLockupTable)
	require.NoError(t, err)

	all, err := ledger.Entries(database)
	require.NoError(t, err)

	return all
}

func TestNewLedger_UnknownTable(t *testing.T) {
	_, err := NewLedger("property_balance")
	require.ErrorContains(t, err, "unknown lockup ledger table")
}

func TestCorrelator_DepositsAccumulate(t *testing.T) {
	database := testutil.NewTestDB(t)
	c := newTestCorrelator(t, UnresolvedFail, MismatchFail)

	insertLock(t, database, "log_lock1", 300000, 31, 30000)
	insertLock(t, database, "log_lock2", 310000, 4, 10)

	require.NoError(t, apply(t, database, c,
		deposit("log_dep1", 300000, 31, 30000),
		deposit("log_dep2", 310000, 4, 10),
	))

	all := entries(t, database)
	require.Len(t, all, 1)
	require.Equal(t, holder, all[0].AccountAddress)
	require.Equal(t, property, all[0].PropertyAddress)
	require.True(t, decimal.NewFromInt(30010).Equal(all[0].Value))
	require.Equal(t, "log_lock2", all[0].LockedUpEventID)
	require.Equal(t, uint64(310000), all[0].BlockNumber)
}

func TestCorrelator_PreHistoryDeposit(t *testing.T) {
	database := testutil.NewTestDB(t)
	c := newTestCorrelator(t, UnresolvedFail, MismatchFail)

	insertLock(t, database, "log_lock1", 500, 0, 1)

	require.NoError(t, apply(t, database, c, deposit("log_dep1", 100, 2, 7)))

	all := entries(t, database)
	require.Len(t, all, 1)
	require.Equal(t, PreHistoryEventID, all[0].LockedUpEventID)
	require.True(t, decimal.NewFromInt(7).Equal(all[0].Value))
}

func TestCorrelator_UnresolvedDeposit(t *testing.T) {
	t.Run("fail", func(t *testing.T) {
		database := testutil.NewTestDB(t)
		c := newTestCorrelator(t, UnresolvedFail, MismatchFail)

		insertLock(t, database, "log_lock1", 100, 0, 1)

		err := apply(t, database, c, deposit("log_dep1", 200, 0, 5))
		require.ErrorIs(t, err, ErrUnresolvedCorrelation)
		require.Empty(t, entries(t, database))
	})

	t.Run("no lock history", func(t *testing.T) {
		database := testutil.NewTestDB(t)
		c := newTestCorrelator(t, UnresolvedFail, MismatchFail)

		err := apply(t, database, c, deposit("log_dep1", 200, 0, 5))
		require.ErrorIs(t, err, ErrUnresolvedCorrelation)
	})

	t.Run("ignore", func(t *testing.T) {
		database := testutil.NewTestDB(t)
		c := newTestCorrelator(t, UnresolvedIgnore, MismatchFail)

		insertLock(t, database, "log_lock1", 100, 0, 1)

		require.NoError(t, apply(t, database, c, deposit("log_dep1", 200, 0, 5)))
		require.Empty(t, entries(t, database))

		var jobName, reason string
		require.NoError(t, database.QueryRow(
			`SELECT job_name, reason FROM ignored_lockup_event WHERE event_id = ?`, "log_dep1").
			Scan(&jobName, &reason))
		require.Equal(t, "account-lockup", jobName)
		require.Equal(t, ErrUnresolvedCorrelation.Error(), reason)
	})
}

func TestCorrelator_AmbiguousDeposit(t *testing.T) {
	database := testutil.NewTestDB(t)
	c := newTestCorrelator(t, UnresolvedIgnore, MismatchFail)

	insertLock(t, database, "log_lock1", 100, 3, 5)
	insertLock(t, database, "log_lock2", 100, 3, 5)

	err := apply(t, database, c, deposit("log_dep1", 100, 3, 5))
	require.ErrorIs(t, err, ErrAmbiguousCorrelation)
}

func TestCorrelator_Withdrawals(t *testing.T) {
	tests := []struct {
		name      string
		mismatch  MismatchMode
		withdraw  int64
		expectErr error
		remaining *int64
	}{
		{name: "full withdrawal deletes entry", mismatch: MismatchFail, withdraw: 50},
		{name: "partial withdrawal fails", mismatch: MismatchFail, withdraw: 20, expectErr: ErrLockupMismatch},
		{name: "partial withdrawal subtracts", mismatch: MismatchSubtract, withdraw: 20, remaining: ptr(int64(30))},
		{name: "over withdrawal fails", mismatch: MismatchSubtract, withdraw: 80, expectErr: ErrNegativeLockup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := testutil.NewTestDB(t)
			c := newTestCorrelator(t, UnresolvedFail, tt.mismatch)

			insertLock(t, database, "log_lock1", 100, 0, 50)
			require.NoError(t, apply(t, database, c, deposit("log_dep1", 100, 0, 50)))

			err := apply(t, database, c, withdrawal("log_wd1", 200, tt.withdraw))
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				all := entries(t, database)
				require.Len(t, all, 1)
				require.True(t, decimal.NewFromInt(50).Equal(all[0].Value))
				return
			}
			require.NoError(t, err)

			all := entries(t, database)
			if tt.remaining == nil {
				require.Empty(t, all)
				return
			}
			require.Len(t, all, 1)
			require.True(t, decimal.NewFromInt(*tt.remaining).Equal(all[0].Value))
			require.Equal(t, uint64(200), all[0].BlockNumber)
		})
	}
}

func TestCorrelator_WithdrawalWithoutEntry(t *testing.T) {
	database := testutil.NewTestDB(t)
	c := newTestCorrelator(t, UnresolvedFail, MismatchFail)

	require.NoError(t, apply(t, database, c, withdrawal("log_wd1", 200, 10)))
	require.Empty(t, entries(t, database))
}

func TestPendingTransfers(t *testing.T) {
	database := testutil.NewTestDB(t)

	for i, block := range []uint64{5, 3, 9} {
		_, err := database.Exec(`INSERT INTO dev_property_transfer
			(event_id, block_number, log_index, transaction_index, transaction_hash,
			 from_address, to_address, value, is_lockup, raw_data)
			VALUES (?, ?, 0, 0, '0x', ?, ?, '12', 1, '{}')`,
			fmt.Sprintf("log_%d", i), block, holder.Hex(), property.Hex())
		require.NoError(t, err)
	}

	transfers, err := PendingTransfers(context.Background(), database, 3)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	require.Equal(t, uint64(5), transfers[0].BlockNumber)
	require.Equal(t, uint64(9), transfers[1].BlockNumber)
	require.True(t, transfers[0].IsLockup)
	require.Equal(t, holder, transfers[0].From)
	require.True(t, decimal.NewFromInt(12).Equal(transfers[0].Value))
}

func ptr[T any](v T) *T {
	return &v
}
