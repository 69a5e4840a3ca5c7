package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Go runtime and process metrics come from the collectors of the default registry.
var (
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_job_runs_total",
		Help: "Job invocations by the scheduler",
	}, []string{"job"})

	JobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_job_failures_total",
		Help: "Job invocations that returned an error",
	}, []string{"job"})

	// JobHealth is 1 when the last invocation of a job succeeded, 0 otherwise.
	JobHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chainledger_job_healthy",
		Help: "Whether the last invocation of a job succeeded",
	}, []string{"job"})

	jobRunTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chainledger_job_run_duration_seconds",
		Help:    "Duration of job invocations",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
	}, []string{"job"})

	Watermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chainledger_watermark_block",
		Help: "Processed block watermark of a job",
	}, []string{"job"})

	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_records_processed_total",
		Help: "Raw events stored or records materialized",
	}, []string{"job"})

	BlocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainledger_blocks_processed_total",
		Help: "Blocks the watermark of a job advanced by",
	}, []string{"job"})

	startTime = time.Now()

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chainledger_uptime_seconds",
		Help: "Seconds since the process started",
	}, func() float64 { return time.Since(startTime).Seconds() })
)

// RecordRun accounts one scheduler invocation of job.
func RecordRun(job string, took time.Duration, err error) {
	JobRuns.WithLabelValues(job).Inc()
	jobRunTime.WithLabelValues(job).Observe(took.Seconds())

	if err != nil {
		JobFailures.WithLabelValues(job).Inc()
		JobHealth.WithLabelValues(job).Set(0)
		return
	}

	JobHealth.WithLabelValues(job).Set(1)
}

// RecordProgress accounts a committed run that moved the watermark from `from` to `to`.
func RecordProgress(job string, from, to uint64, records int) {
	Watermark.WithLabelValues(job).Set(float64(to))
	RecordsProcessed.WithLabelValues(job).Add(float64(records))
	if to > from {
		BlocksProcessed.WithLabelValues(job).Add(float64(to - from))
	}
}
