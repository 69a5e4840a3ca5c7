package migrations

import (
	"embed"

	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed *.sql
var files embed.FS

// Source returns the store schema, applied in file name order.
func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: files, Root: "."}
}

// RunMigrations brings the store at dbPath up to the current schema.
func RunMigrations(dbPath string, log *logger.Logger) error {
	return db.RunMigrations(dbPath, Source(), log)
}
