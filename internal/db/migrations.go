package db

import (
	"database/sql"
	"fmt"

	"github.com/goran-ethernal/ChainLedger/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const dialect = "sqlite3"

// Migrate applies the pending up migrations of source and returns how many ran.
// Migration files carry "-- +migrate Up" and "-- +migrate Down" sections.
func Migrate(db *sql.DB, source migrate.MigrationSource, log *logger.Logger) (int, error) {
	applied, err := migrate.Exec(db, dialect, source, migrate.Up)
	if err != nil {
		return applied, fmt.Errorf("failed to apply migrations (%d applied): %w", applied, err)
	}

	if applied > 0 {
		log.Infof("applied %d schema migrations", applied)
	} else {
		log.Debug("schema is up to date")
	}

	return applied, nil
}

// RunMigrations opens the store at dbPath just long enough to migrate it.
func RunMigrations(dbPath string, source migrate.MigrationSource, log *logger.Logger) error {
	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer db.Close()

	_, err = Migrate(db, source, log)

	return err
}
