package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
)

// Maintenance serializes database housekeeping against job runs.
type Maintenance interface {
	Start(ctx context.Context) error
	Stop() error
	// AcquireOperationLock is held by a job for the length of one run.
	// The returned function releases it.
	AcquireOperationLock() func()
	GetMetrics() MaintenanceMetrics
	RunMaintenance(ctx context.Context) error
}

// MaintenanceMetrics is a snapshot of the coordinator's run history.
type MaintenanceMetrics struct {
	LastMaintenanceTime  time.Time
	MaintenanceCount     uint64
	LastMaintenanceError error
}

// NoOpMaintenance is used when maintenance is not configured.
type NoOpMaintenance struct{}

func (*NoOpMaintenance) Start(context.Context) error          { return nil }
func (*NoOpMaintenance) Stop() error                          { return nil }
func (*NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (*NoOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (*NoOpMaintenance) GetMetrics() MaintenanceMetrics       { return MaintenanceMetrics{} }

type maintenanceStep struct {
	name string
	run  func(ctx context.Context) error
}

// MaintenanceCoordinator checkpoints the WAL and vacuums the store between job runs.
// Jobs share the read side of gate; a maintenance pass takes the write side.
type MaintenanceCoordinator struct {
	db     *sql.DB
	dbPath string
	cfg    config.MaintenanceConfig
	log    *logger.Logger

	// row counts of these tables are published after every pass
	trackedTables []string

	gate sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}

	statsMu sync.Mutex
	stats   MaintenanceMetrics
}

// NewMaintenanceCoordinator returns a NoOpMaintenance when cfg is nil.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
	trackedTables ...string,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	m := newMaintenanceCoordinator(dbPath, db, *cfg, log)
	m.trackedTables = trackedTables

	return m
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		dbPath: dbPath,
		cfg:    cfg,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start launches the periodic pass when maintenance is enabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("background maintenance disabled")
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	if m.cfg.VacuumOnStartup {
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnw("startup maintenance failed", "error", err)
		}
	}

	go m.loop(ctx, m.cfg.CheckInterval.Duration)

	m.log.Infow("background maintenance started",
		"interval", m.cfg.CheckInterval.Duration,
		"checkpoint_mode", m.cfg.WALCheckpointMode,
	)

	return nil
}

// Stop cancels the periodic pass and waits for a running one to finish.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	<-m.done
	m.log.Info("background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) loop(ctx context.Context, every time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnw("periodic maintenance failed", "error", err)
			}
		}
	}
}

// RunMaintenance waits for in-flight job runs, then checkpoints the WAL and vacuums.
// Every step runs even if an earlier one fails; their errors are joined.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	started := time.Now()
	maintenanceRuns.Inc()

	m.gate.Lock()
	defer m.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	sizeBefore, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnw("failed to stat database", "error", err)
	}

	var errs []error
	for _, step := range []maintenanceStep{
		{name: "wal checkpoint", run: m.checkpoint},
		{name: "vacuum", run: m.vacuum},
	} {
		if err := step.run(ctx); err != nil {
			m.log.Warnw("maintenance step failed", "step", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	runErr := errors.Join(errs...)

	sizeAfter, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnw("failed to stat database", "error", err)
	}

	m.statsMu.Lock()
	m.stats.LastMaintenanceTime = time.Now().UTC()
	m.stats.MaintenanceCount++
	m.stats.LastMaintenanceError = runErr
	m.statsMu.Unlock()

	elapsed := time.Since(started)
	recordMaintenance(elapsed, runErr)

	if runErr != nil {
		return runErr
	}

	reclaimed := max(sizeBefore-sizeAfter, 0)
	recordDBSize(sizeAfter, reclaimed)
	m.publishTableRows(ctx)

	m.log.Infow("maintenance finished",
		"took", elapsed,
		"size_bytes", sizeAfter,
		"reclaimed_bytes", reclaimed,
	)

	return nil
}

func (m *MaintenanceCoordinator) publishTableRows(ctx context.Context) {
	for _, table := range m.trackedTables {
		var rows int64
		//nolint:gosec
		if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&rows); err != nil {
			m.log.Warnw("failed to count table rows", "table", table, "error", err)
			continue
		}

		tableRows.WithLabelValues(table).Set(float64(rows))
	}
}

// checkpoint is skipped unless the store runs in WAL mode.
func (m *MaintenanceCoordinator) checkpoint(ctx context.Context) error {
	var journal string
	if err := m.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}

	if !strings.EqualFold(journal, "wal") {
		return nil
	}

	var busy, frames, moved int
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.cfg.WALCheckpointMode)
	if err := m.db.QueryRowContext(ctx, query).Scan(&busy, &frames, &moved); err != nil {
		return err
	}

	walCheckpoints.WithLabelValues(strings.ToLower(m.cfg.WALCheckpointMode)).Inc()
	m.log.Debugw("wal checkpoint",
		"mode", m.cfg.WALCheckpointMode,
		"busy", busy,
		"frames", frames,
		"checkpointed", moved,
	)

	if busy > 0 {
		m.log.Warnf("wal checkpoint left %d busy pages", busy)
	}

	return nil
}

// vacuum reclaims pages freed by balance regeneration and ledger deletes.
func (m *MaintenanceCoordinator) vacuum(context.Context) error {
	if err := Vacuum(m.db); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return errors.New("database is locked, retry later")
		}
		return err
	}

	vacuumRuns.Inc()

	return nil
}

// AcquireOperationLock takes the shared side of the maintenance gate.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.gate.RLock()
	return m.gate.RUnlock
}

// GetMetrics returns a snapshot of the run history.
func (m *MaintenanceCoordinator) GetMetrics() MaintenanceMetrics {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	return m.stats
}
