package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	icommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/metrics"
	"github.com/goran-ethernal/ChainLedger/internal/watermark"
	"github.com/russross/meddler"
)

const defaultWindowSize = 50000

// ErrEventExists is returned when a fetched event is already stored.
var ErrEventExists = errors.New("already exists")

// HeadSource reports the highest block that is safe to ingest.
type HeadSource interface {
	SafeHead(ctx context.Context) (uint64, error)
}

// EventSource fetches decoded contract events in a block range.
type EventSource interface {
	GetEvents(ctx context.Context, contract chainlog.Contract, eventName string, from, to uint64) ([]chainlog.Entry, error)
}

// EventHeader holds the columns every raw event table shares.
type EventHeader struct {
	EventID          string
	BlockNumber      uint64
	LogIndex         uint
	TransactionIndex uint
	TransactionHash  common.Hash
	RawData          string
}

// EventSpec describes one contract event and the table it is copied into.
type EventSpec struct {
	JobName    string
	Contract   chainlog.Contract
	EventName  string
	Table      string
	StartBlock uint64
	WindowSize uint64

	// Decode builds the meddler row stored for entry.
	Decode func(ctx context.Context, entry *chainlog.Entry, header EventHeader) (any, error)
	// IsTarget, when set, drops the entries it rejects.
	IsTarget func(ctx context.Context, entry *chainlog.Entry) (bool, error)
}

// Result summarizes one ingestor run.
type Result struct {
	Events    int
	FromBlock uint64
	ToBlock   uint64
}

// Ingestor copies one event kind from the chain into its raw table, one block window per run.
type Ingestor struct {
	spec        EventSpec
	db          *sql.DB
	head        HeadSource
	source      EventSource
	maintenance db.Maintenance
	log         *logger.Logger
}

// NewIngestor creates an Ingestor. maintenance may be nil.
func NewIngestor(
	spec EventSpec,
	database *sql.DB,
	head HeadSource,
	source EventSource,
	maintenance db.Maintenance,
	log *logger.Logger,
) (*Ingestor, error) {
	if spec.JobName == "" || spec.Table == "" || spec.EventName == "" {
		return nil, fmt.Errorf("event spec needs a job name, table and event name")
	}
	if spec.Decode == nil {
		return nil, fmt.Errorf("event spec %s has no decoder", spec.JobName)
	}
	if spec.WindowSize == 0 {
		spec.WindowSize = defaultWindowSize
	}
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &Ingestor{
		spec:        spec,
		db:          database,
		head:        head,
		source:      source,
		maintenance: maintenance,
		log:         log.WithComponent(icommon.ComponentIngestor),
	}, nil
}

// Name returns the job name.
func (i *Ingestor) Name() string {
	return i.spec.JobName
}

// Run ingests the next block window. The window never passes the safe head.
func (i *Ingestor) Run(ctx context.Context) (res Result, err error) {
	startTime := time.Now()

	current, err := watermark.Get(ctx, i.db, i.spec.JobName)
	if err != nil {
		return res, err
	}

	start := current
	if i.spec.StartBlock > 0 {
		start = max(start, i.spec.StartBlock-1)
	}
	res.FromBlock = start
	res.ToBlock = start

	head, err := i.head.SafeHead(ctx)
	if err != nil {
		return res, err
	}

	end := min(start+i.spec.WindowSize, head)
	if end <= start {
		i.log.Debugw("no new safe blocks", "job", i.spec.JobName, "watermark", current, "safe_head", head)
		return res, nil
	}

	entries, err := i.source.GetEvents(ctx, i.spec.Contract, i.spec.EventName, start+1, end)
	if err != nil {
		return res, err
	}

	rows, err := i.decode(ctx, entries)
	if err != nil {
		return res, err
	}

	unlock := i.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.Rollback(tx, i.log)

	for _, r := range rows {
		if err := i.ensureNew(ctx, tx, r.id); err != nil {
			return res, err
		}

		if err := meddler.Insert(tx, i.spec.Table, r.row); err != nil {
			return res, fmt.Errorf("failed to insert %s event %s: %w", i.spec.Table, r.id, err)
		}
	}

	if err := watermark.Advance(ctx, tx, i.spec.JobName, end); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit transaction: %w", err)
	}

	res.Events = len(rows)
	res.ToBlock = end

	metrics.RecordProgress(i.spec.JobName, start, end, len(rows))

	i.log.Infow("ingested events",
		"job", i.spec.JobName,
		"event", i.spec.EventName,
		"fetched", len(entries),
		"stored", len(rows),
		"from", start+1,
		"to", end,
		"safe_head", head,
		"duration", time.Since(startTime),
	)

	return res, nil
}

type decodedRow struct {
	id  string
	row any
}

func (i *Ingestor) decode(ctx context.Context, entries []chainlog.Entry) ([]decodedRow, error) {
	rows := make([]decodedRow, 0, len(entries))

	for idx := range entries {
		entry := &entries[idx]

		if i.spec.IsTarget != nil {
			ok, err := i.spec.IsTarget(ctx, entry)
			if err != nil {
				return nil, fmt.Errorf("failed to filter %s event %s: %w", i.spec.EventName, entry.ID, err)
			}
			if !ok {
				continue
			}
		}

		raw, err := entry.RawJSON()
		if err != nil {
			return nil, err
		}

		row, err := i.spec.Decode(ctx, entry, EventHeader{
			EventID:          entry.ID,
			BlockNumber:      entry.BlockNumber,
			LogIndex:         entry.LogIndex,
			TransactionIndex: entry.TransactionIndex,
			TransactionHash:  entry.TransactionHash,
			RawData:          raw,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s event %s: %w", i.spec.EventName, entry.ID, err)
		}

		rows = append(rows, decodedRow{id: entry.ID, row: row})
	}

	return rows, nil
}

func (i *Ingestor) ensureNew(ctx context.Context, tx *sql.Tx, eventID string) error {
	var n int
	//nolint:gosec
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+i.spec.Table+" WHERE event_id = ?", eventID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up %s event %s: %w", i.spec.Table, eventID, err)
	}

	if n > 0 {
		return fmt.Errorf("%s event %s: %w", i.spec.Table, eventID, ErrEventExists)
	}

	return nil
}
