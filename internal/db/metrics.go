package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainledger_maintenance_runs_total",
		Help: "Maintenance passes started",
	})

	maintenanceOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_maintenance_outcomes_total",
		Help: "Finished maintenance passes by outcome",
	}, []string{"status"})

	maintenanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chainledger_maintenance_duration_seconds",
		Help:    "Duration of a maintenance pass, including the wait for running jobs",
		Buckets: prometheus.DefBuckets,
	})

	maintenanceLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chainledger_maintenance_last_run_timestamp",
		Help: "Unix time of the last finished maintenance pass",
	})

	walCheckpoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_wal_checkpoint_total",
		Help: "WAL checkpoints by mode",
	}, []string{"mode"})

	vacuumRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainledger_vacuum_total",
		Help: "Successful VACUUM runs",
	})

	dbBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chainledger_db_size_bytes",
		Help: "Store size after the last maintenance pass; reclaimed is the shrink it achieved",
	}, []string{"type"})

	tableRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chainledger_table_rows",
		Help: "Row count of ledger and raw event tables at the last maintenance pass",
	}, []string{"table"})
)

func recordMaintenance(took time.Duration, err error) {
	maintenanceDuration.Observe(took.Seconds())
	maintenanceLastRun.SetToCurrentTime()

	status := "success"
	if err != nil {
		status = "error"
	}
	maintenanceOutcomes.WithLabelValues(status).Inc()
}

func recordDBSize(total, reclaimed int64) {
	dbBytes.WithLabelValues("total").Set(float64(total))
	dbBytes.WithLabelValues("reclaimed").Set(float64(reclaimed))
}
