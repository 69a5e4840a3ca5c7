package migrations

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "schema.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	applied, err := db.Migrate(database, Source(), logger.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, 4, applied)

	for _, table := range []string{
		"processed_block_number",
		"dev_property_transfer",
		"lockup_lockedup",
		"account_lockup",
		"property_balance",
		"ignored_lockup_event",
		"property_directory_factory_create",
		"property_directory_factory_recreate",
	} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	applied, err = db.Migrate(database, Source(), logger.NewNopLogger())
	require.NoError(t, err)
	require.Zero(t, applied)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sqlite")

	require.NoError(t, RunMigrations(path, logger.NewNopLogger()))
	require.NoError(t, RunMigrations(path, logger.NewNopLogger()))
}
