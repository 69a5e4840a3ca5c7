package job

import (
	"context"
	"database/sql"

	"github.com/goran-ethernal/ChainLedger/internal/contracts"
	"github.com/goran-ethernal/ChainLedger/internal/db"
	"github.com/goran-ethernal/ChainLedger/internal/ingest"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
)

// Job is one independently scheduled unit of work: an ingestor or a materializer.
// A run processes at most one batch and either commits it together with the
// job's watermark or changes nothing.
type Job interface {
	// Name returns the configured job name, which is also its watermark key.
	Name() string
	// Run performs one invocation of the job.
	Run(ctx context.Context) error
}

// Deps bundles the shared collaborators jobs are built from.
type Deps struct {
	DB          *sql.DB
	Contracts   *contracts.Registry
	Head        ingest.HeadSource
	Source      ingest.EventSource
	Properties  *contracts.PropertyDirectory
	Tokens      *contracts.PropertyToken
	Maintenance db.Maintenance
	Log         *logger.Logger
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

// New returns a Job that calls run on every invocation.
func New(name string, run func(ctx context.Context) error) Job {
	return &funcJob{name: name, run: run}
}

func (j *funcJob) Name() string {
	return j.name
}

func (j *funcJob) Run(ctx context.Context) error {
	return j.run(ctx)
}
