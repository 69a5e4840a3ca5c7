package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/config"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/metrics"
	"github.com/goran-ethernal/ChainLedger/internal/migrations"
	"github.com/goran-ethernal/ChainLedger/internal/watermark"
	pkgconfig "github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          ChainLedger v%s               ║
║   Incremental Event Materialization       ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chainledger",
	Short: "ChainLedger - incremental blockchain event materialization",
	Long: `ChainLedger ingests contract events into a relational store and folds them
into derived tables (lockup ledgers, property balances) on fixed intervals.
Every job keeps its own watermark, so a restart resumes where it stopped.`,
	Version: version,
	RunE:    runScheduler,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured job on its interval",
	RunE:  runScheduler,
}

var jobCmd = &cobra.Command{
	Use:   "job <name>",
	Short: "Run one configured job once and exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runSingleJob,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available job types and configured job watermarks",
	Long:  `List all registered job types, and when a configuration file is readable, the watermark of every configured job.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available job types:")
		types := job.ListRegistered()
		if len(types) == 0 {
			fmt.Println("  (no jobs registered)")
			return
		}
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}

		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return
		}

		database, err := openDatabase(cfg)
		if err != nil {
			fmt.Printf("\nWatermarks unavailable: %v\n", err)
			return
		}
		defer database.Close()

		watermarks, err := watermark.All(database)
		if err != nil {
			fmt.Printf("\nWatermarks unavailable: %v\n", err)
			return
		}

		fmt.Println("\nConfigured jobs:")
		for _, j := range cfg.Jobs {
			fmt.Printf("  - %s (%s) watermark=%d\n", j.Name, j.Type, watermarks[j.Name])
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log := logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging)
		if err := migrations.RunMigrations(cfg.Database.Path, log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Printf("Migrations applied to %s\n", cfg.Database.Path)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := jsonschema.Reflect(&pkgconfig.Config{})

		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, jobCmd, listCmd, migrateCmd, schemaCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentScheduler, cfg.Logging)

	if len(cfg.Jobs) == 0 {
		log.Warn("No jobs configured. Exiting.")
		return nil
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		status := func(ctx context.Context) (map[string]uint64, error) {
			return watermark.All(a.db)
		}

		metricsServer := metrics.NewServer(cfg.Metrics, status,
			logger.NewComponentLoggerFromConfig(common.ComponentMetrics, cfg.Logging))
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	if err := a.maintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := a.maintenance.Stop(); err != nil {
			log.Warnf("Failed to stop database maintenance: %v", err)
		}
	}()

	log.Infof("Starting ChainLedger with %d job(s)...", len(cfg.Jobs))

	if err := a.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}

	log.Info("ChainLedger stopped successfully")
	return nil
}

func runSingleJob(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.scheduler.RunOnce(ctx, args[0]); err != nil {
		return err
	}

	watermarks, err := watermark.All(a.db)
	if err != nil {
		return err
	}

	fmt.Printf("%s: watermark=%d\n", args[0], watermarks[args[0]])
	return nil
}
