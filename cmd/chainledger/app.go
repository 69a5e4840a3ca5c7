package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/contracts"
	"github.com/goran-ethernal/ChainLedger/internal/db"
	// also registers the built-in job types
	"github.com/goran-ethernal/ChainLedger/internal/jobs"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/migrations"
	"github.com/goran-ethernal/ChainLedger/internal/rpc"
	"github.com/goran-ethernal/ChainLedger/internal/scheduler"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
)

// tables whose sizes the maintenance coordinator reports
var trackedTables = []string{
	"dev_property_transfer",
	"lockup_lockedup",
	"account_lockup",
	"property_lockup",
	"property_meta",
	"property_balance",
	"ignored_lockup_event",
}

// app holds the wired collaborators of one process.
type app struct {
	cfg         *config.Config
	db          *sql.DB
	client      *rpc.Client
	maintenance db.Maintenance
	scheduler   *scheduler.Scheduler
	log         *logger.Logger
}

// openDatabase migrates and opens the configured database.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	log := logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging)
	if err := migrations.RunMigrations(cfg.Database.Path, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	root, err := logger.NewLogger(cfg.Logging.GetDefaultLevel(), cfg.Logging.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefaultLogger(root)

	log := logger.NewComponentLoggerFromConfig(common.ComponentScheduler, cfg.Logging)

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: database, log: log}

	a.client, err = rpc.NewClient(ctx, cfg.Chain.RPCURL, cfg.Chain.Retry,
		logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	registry, err := contracts.NewRegistry(cfg.Contracts)
	if err != nil {
		a.Close()
		return nil, err
	}

	finality, err := chainlog.ParseFinality(cfg.Chain.Finality)
	if err != nil {
		a.Close()
		return nil, err
	}

	source := chainlog.NewSource(a.client, cfg.Chain.ChunkSize,
		logger.NewComponentLoggerFromConfig(common.ComponentChainLog, cfg.Logging))

	tokens, err := contracts.NewPropertyToken(a.client, source)
	if err != nil {
		a.Close()
		return nil, err
	}

	properties, err := newPropertyDirectory(database, a.client, registry, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.maintenance = db.NewMaintenanceCoordinator(
		cfg.Database.Path,
		database,
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
		trackedTables...,
	)

	deps := job.Deps{
		DB:          database,
		Contracts:   registry,
		Head:        chainlog.NewHeadOracle(a.client, finality, cfg.Chain.FinalizedLag),
		Source:      source,
		Properties:  properties,
		Tokens:      tokens,
		Maintenance: a.maintenance,
	}

	a.scheduler = scheduler.New(log)
	for _, jobCfg := range cfg.Jobs {
		deps.Log = logger.NewComponentLoggerFromConfig(componentOf(jobCfg.Type), cfg.Logging).WithJob(jobCfg.Name)

		j, err := job.Create(jobCfg, deps)
		if err != nil {
			a.Close()
			return nil, err
		}

		if err := a.scheduler.Add(j, jobCfg.Interval.Duration); err != nil {
			a.Close()
			return nil, err
		}

		log.Infow("registered job", "job", jobCfg.Name, "type", jobCfg.Type, "interval", jobCfg.Interval.String())
	}

	return a, nil
}

// newPropertyDirectory builds the property directory, seeded with the properties already known.
func newPropertyDirectory(
	database *sql.DB,
	client *rpc.Client,
	registry *contracts.Registry,
	cfg *config.Config,
) (*contracts.PropertyDirectory, error) {
	if !registry.Has(contracts.PropertyGroup) {
		// only dev-property-transfer needs membership answers
		return nil, nil
	}

	group, err := registry.Contract(contracts.PropertyGroup)
	if err != nil {
		return nil, err
	}

	directory := contracts.NewPropertyDirectory(client, group,
		logger.NewComponentLoggerFromConfig(common.ComponentContracts, cfg.Logging))

	known, err := jobs.PropertyAddresses(database)
	if err != nil {
		return nil, err
	}
	directory.Remember(known...)

	return directory, nil
}

// componentOf maps a job type to the logging component of its work.
func componentOf(jobType string) string {
	switch jobType {
	case jobs.TypeAccountLockup, jobs.TypePropertyLockup:
		return common.ComponentCorrelator
	case jobs.TypePropertyBalance, jobs.TypePropertyBalanceByTransfer, jobs.TypePropertyAuthorUpdate:
		return common.ComponentBalance
	case jobs.TypePropertyMeta:
		return common.ComponentMaterializer
	default:
		return common.ComponentIngestor
	}
}

// Close releases the database and the RPC connection.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warnw("failed to close database", "error", err)
		}
	}
}
