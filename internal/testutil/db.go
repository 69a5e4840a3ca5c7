package testutil

import (
	"database/sql"
	"path"
	"testing"

	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/migrations"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated temporary SQLite database that is closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbConfig := config.DatabaseConfig{Path: path.Join(t.TempDir(), "chainledger.sqlite")}
	dbConfig.ApplyDefaults()

	require.NoError(t, migrations.RunMigrations(dbConfig.Path, logger.NewNopLogger()))

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database
}
