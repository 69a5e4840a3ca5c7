package config

import (
	"errors"
	"time"

	internalcommon "github.com/goran-ethernal/ChainLedger/internal/common"
)

// DatabaseConfig is the SQLite store shared by every job.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" toml:"path"`

	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode" jsonschema:"enum=WAL,enum=DELETE,enum=TRUNCATE,enum=PERSIST,enum=MEMORY,default=WAL"` //nolint:lll
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous" jsonschema:"enum=FULL,enum=NORMAL,enum=OFF,default=NORMAL"`          //nolint:lll

	// BusyTimeout is how long, in milliseconds, a writer waits for the lock.
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout" jsonschema:"default=5000"`

	// CacheSize follows PRAGMA cache_size: pages when positive, KiB when negative.
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	MaxOpenConnections int  `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`
	MaxIdleConnections int  `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
	EnableForeignKeys  bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return errors.New("path is required")
	}

	if d.JournalMode != "" {
		if err := oneOf("journal_mode", d.JournalMode, "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"); err != nil {
			return err
		}
	}

	if d.Synchronous != "" {
		return oneOf("synchronous", d.Synchronous, "FULL", "NORMAL", "OFF")
	}

	return nil
}

// MaintenanceConfig schedules WAL checkpoints and VACUUM between job runs.
type MaintenanceConfig struct {
	Enabled       bool                    `yaml:"enabled" json:"enabled" toml:"enabled"`
	CheckInterval internalcommon.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs one pass before the first tick.
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode" jsonschema:"enum=PASSIVE,enum=FULL,enum=RESTART,enum=TRUNCATE,default=TRUNCATE"` //nolint:lll
}

func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = internalcommon.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode == "" {
		return nil
	}

	return oneOf("wal_checkpoint_mode", m.WALCheckpointMode, "PASSIVE", "FULL", "RESTART", "TRUNCATE")
}
