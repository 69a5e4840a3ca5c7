package materializer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainLedger/internal/batch"
	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/metrics"
	"github.com/goran-ethernal/ChainLedger/internal/watermark"
)

const defaultBatchSize = 100

// Handler folds raw records of one kind into a derived table.
type Handler[T batch.BlockNumbered] interface {
	// Pending returns the records recorded after block, ordered by block number.
	Pending(ctx context.Context, db *sql.DB, after uint64) ([]T, error)
	// Prepare runs once per batch on the batch transaction, before any Apply.
	Prepare(ctx context.Context, tx *sql.Tx) error
	// Apply folds one record into the derived table.
	Apply(ctx context.Context, tx *sql.Tx, record T) error
}

// Result summarizes one materializer run.
type Result struct {
	Records   int
	FromBlock uint64
	ToBlock   uint64
}

// Materializer applies batches of raw records to a derived table, advancing the job
// watermark in the same transaction.
type Materializer[T batch.BlockNumbered] struct {
	job         string
	db          *sql.DB
	handler     Handler[T]
	batchSize   int
	maintenance db.Maintenance
	log         *logger.Logger
}

// New creates a Materializer for job. maintenance may be nil.
func New[T batch.BlockNumbered](
	job string,
	database *sql.DB,
	handler Handler[T],
	batchSize int,
	maintenance db.Maintenance,
	log *logger.Logger,
) *Materializer[T] {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Materializer[T]{
		job:         job,
		db:          database,
		handler:     handler,
		batchSize:   batchSize,
		maintenance: maintenance,
		log:         log.WithComponent(common.ComponentMaterializer),
	}
}

// Name returns the job name.
func (m *Materializer[T]) Name() string {
	return m.job
}

// Run processes one batch. A run without pending records changes nothing.
func (m *Materializer[T]) Run(ctx context.Context) (res Result, err error) {
	unlock := m.maintenance.AcquireOperationLock()
	defer unlock()

	start := time.Now()

	from, err := watermark.Get(ctx, m.db, m.job)
	if err != nil {
		return res, err
	}
	res.FromBlock = from
	res.ToBlock = from

	pending, err := m.handler.Pending(ctx, m.db, from)
	if err != nil {
		return res, err
	}

	records := batch.SelectByBlock(pending, m.batchSize)
	if len(records) == 0 {
		m.log.Debugw("no pending records", "job", m.job, "watermark", from)
		return res, nil
	}

	to := batch.MaxBlockNumber(records)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.Rollback(tx, m.log)

	if err := m.handler.Prepare(ctx, tx); err != nil {
		return res, fmt.Errorf("%s: failed to prepare batch: %w", m.job, err)
	}

	for _, record := range records {
		if err := m.handler.Apply(ctx, tx, record); err != nil {
			return res, fmt.Errorf("%s: failed to apply record at block %d: %w", m.job, record.GetBlockNumber(), err)
		}
	}

	if err := watermark.Advance(ctx, tx, m.job, to); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit transaction: %w", err)
	}

	res.Records = len(records)
	res.ToBlock = to

	metrics.RecordProgress(m.job, from, to, len(records))

	m.log.Infow("materialized batch",
		"job", m.job,
		"records", len(records),
		"pending", len(pending),
		"from", from,
		"to", to,
		"duration", time.Since(start),
	)

	return res, nil
}
