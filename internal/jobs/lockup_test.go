package jobs

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/lockup"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/russross/meddler"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) insertLock(t *testing.T, block uint64, txIndex uint, from, prop common.Address, value int64) string {
	t.Helper()

	id := fmt.Sprintf("log_lock_%d_%d", block, txIndex)
	require.NoError(t, meddler.Insert(e.db, "lockup_lockedup", &LockupLockedup{
		EventID:          id,
		BlockNumber:      block,
		TransactionIndex: txIndex,
		From:             from,
		Property:         prop,
		TokenValue:       decimal.NewFromInt(value),
		RawData:          "{}",
	}))

	return id
}

func (e *testEnv) insertTransfer(t *testing.T, block uint64, txIndex uint, from, to common.Address, value int64, isLockup bool) {
	t.Helper()

	require.NoError(t, meddler.Insert(e.db, "dev_property_transfer", &DevPropertyTransfer{
		EventID:          fmt.Sprintf("log_transfer_%d_%d", block, txIndex),
		BlockNumber:      block,
		TransactionIndex: txIndex,
		From:             from,
		To:               to,
		Value:            decimal.NewFromInt(value),
		IsLockup:         isLockup,
		RawData:          "{}",
	}))
}

func ledgerEntries(t *testing.T, env *testEnv, table string) []*lockup.Entry {
	t.Helper()

	ledger, err := lockup.NewLedger(table)
	require.NoError(t, err)

	entries, err := ledger.Entries(env.db)
	require.NoError(t, err)

	return entries
}

func TestLockupJobs_DepositsAndWithdrawals(t *testing.T) {
	for _, tc := range []struct {
		jobType string
		table   string
	}{
		{jobType: TypeAccountLockup, table: lockup.AccountLockupTable},
		{jobType: TypePropertyLockup, table: lockup.PropertyLockupTable},
	} {
		t.Run(tc.jobType, func(t *testing.T) {
			env := newTestEnv(t)

			env.insertLock(t, 300000, 31, alice, property, 30000)
			env.insertTransfer(t, 300000, 31, alice, property, 30000, true)

			require.NoError(t, env.run(t, tc.jobType))

			entries := ledgerEntries(t, env, tc.table)
			require.Len(t, entries, 1)
			require.True(t, decimal.NewFromInt(30000).Equal(entries[0].Value))
			require.Equal(t, uint64(300000), env.watermark(t, tc.jobType))

			lockID := env.insertLock(t, 310000, 2, alice, property, 10)
			env.insertTransfer(t, 310000, 2, alice, property, 10, true)

			require.NoError(t, env.run(t, tc.jobType))

			entries = ledgerEntries(t, env, tc.table)
			require.Len(t, entries, 1)
			require.Equal(t, alice, entries[0].AccountAddress)
			require.Equal(t, property, entries[0].PropertyAddress)
			require.True(t, decimal.NewFromInt(30010).Equal(entries[0].Value))
			require.Equal(t, lockID, entries[0].LockedUpEventID)
			require.Equal(t, uint64(310000), env.watermark(t, tc.jobType))

			env.insertTransfer(t, 320000, 0, property, alice, 30010, false)

			require.NoError(t, env.run(t, tc.jobType))
			require.Empty(t, ledgerEntries(t, env, tc.table))
			require.Equal(t, uint64(320000), env.watermark(t, tc.jobType))
		})
	}
}

func TestLockupJobs_UnresolvedModes(t *testing.T) {
	t.Run("fail keeps watermark", func(t *testing.T) {
		env := newTestEnv(t)

		env.insertLock(t, 100, 0, alice, property, 1)
		env.insertTransfer(t, 200, 0, bob, property, 5, true)

		err := env.run(t, TypeAccountLockup)
		require.ErrorIs(t, err, lockup.ErrUnresolvedCorrelation)
		require.Zero(t, env.watermark(t, TypeAccountLockup))
	})

	t.Run("ignore records the event", func(t *testing.T) {
		env := newTestEnv(t)

		env.insertLock(t, 100, 0, alice, property, 1)
		env.insertTransfer(t, 200, 0, bob, property, 5, true)

		require.NoError(t, env.run(t, TypeAccountLockup, func(cfg *config.JobConfig) {
			cfg.UnresolvedMode = config.UnresolvedModeIgnore
		}))

		require.Empty(t, ledgerEntries(t, env, lockup.AccountLockupTable))
		require.Equal(t, 1, env.count(t, "ignored_lockup_event"))
		require.Equal(t, uint64(200), env.watermark(t, TypeAccountLockup))
	})
}

func TestLockupJobs_MismatchSubtract(t *testing.T) {
	env := newTestEnv(t)

	env.insertLock(t, 100, 0, alice, property, 50)
	env.insertTransfer(t, 100, 0, alice, property, 50, true)
	env.insertTransfer(t, 150, 0, property, alice, 20, false)

	subtract := func(cfg *config.JobConfig) {
		cfg.MismatchMode = config.MismatchModeSubtract
	}

	require.NoError(t, env.run(t, TypePropertyLockup, subtract))

	entries := ledgerEntries(t, env, lockup.PropertyLockupTable)
	require.Len(t, entries, 1)
	require.True(t, decimal.NewFromInt(30).Equal(entries[0].Value))
	require.Equal(t, uint64(150), entries[0].BlockNumber)
}

func TestLockupJobs_InvalidMode(t *testing.T) {
	env := newTestEnv(t)

	cfg := config.JobConfig{Type: TypeAccountLockup, MismatchMode: "drop"}
	cfg.ApplyDefaults()

	_, err := newLockupJob(lockup.AccountLockupTable)(cfg, env.deps)
	require.ErrorContains(t, err, `unknown mismatch mode "drop"`)
}
