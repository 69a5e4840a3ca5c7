package jobs

import (
	"context"
	"database/sql"

	"github.com/goran-ethernal/ChainLedger/internal/batch"
	"github.com/goran-ethernal/ChainLedger/internal/lockup"
	"github.com/goran-ethernal/ChainLedger/internal/materializer"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
)

// Lockup ledger job types.
const (
	TypeAccountLockup  = "account-lockup"
	TypePropertyLockup = "property-lockup"
)

// lockupHandler feeds Dev property transfers to a correlator.
type lockupHandler struct {
	*lockup.Correlator
}

func (h lockupHandler) Pending(ctx context.Context, db *sql.DB, after uint64) ([]*lockup.Transfer, error) {
	return lockup.PendingTransfers(ctx, db, after)
}

// newLockupJob builds the factory of a lockup ledger job writing into table.
func newLockupJob(table string) job.Factory {
	return func(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
		ledger, err := lockup.NewLedger(table)
		if err != nil {
			return nil, err
		}

		unresolved, err := lockup.ParseUnresolvedMode(cfg.UnresolvedMode)
		if err != nil {
			return nil, err
		}

		mismatch, err := lockup.ParseMismatchMode(cfg.MismatchMode)
		if err != nil {
			return nil, err
		}

		correlator := lockup.NewCorrelator(cfg.Name, ledger, unresolved, mismatch, deps.Log)
		m := materializer.New[*lockup.Transfer](cfg.Name, deps.DB, lockupHandler{correlator},
			cfg.BatchSize, deps.Maintenance, deps.Log)

		return materialize(m), nil
	}
}

// materialize adapts a materializer to a Job.
func materialize[T batch.BlockNumbered](m *materializer.Materializer[T]) job.Job {
	return job.New(m.Name(), func(ctx context.Context) error {
		_, err := m.Run(ctx)
		return err
	})
}
