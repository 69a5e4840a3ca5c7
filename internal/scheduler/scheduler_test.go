package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/metrics"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Add(t *testing.T) {
	s := New(logger.NewNopLogger())
	noop := job.New("noop", func(context.Context) error { return nil })

	require.NoError(t, s.Add(noop, time.Second))
	require.ErrorContains(t, s.Add(noop, time.Second), "already scheduled")
	require.ErrorContains(t, s.Add(job.New("zero", nil), 0), "interval must be positive")
	require.Equal(t, []string{"noop"}, s.Names())
}

func TestScheduler_RunsImmediatelyAndPeriodically(t *testing.T) {
	s := New(logger.NewNopLogger())

	var runs atomic.Int32
	require.NoError(t, s.Add(job.New("periodic", func(context.Context) error {
		runs.Add(1)
		return nil
	}), 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_InvocationsNeverOverlap(t *testing.T) {
	s := New(logger.NewNopLogger())

	var active, maxActive, runs atomic.Int32
	require.NoError(t, s.Add(job.New("slow", func(context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		runs.Add(1)
		return nil
	}), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_FailuresAreRetried(t *testing.T) {
	s := New(logger.NewNopLogger())

	var runs atomic.Int32
	require.NoError(t, s.Add(job.New("flaky", func(context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("rpc unavailable")
		}
		return nil
	}), 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.InDelta(t, 2, testutil.ToFloat64(metrics.JobFailures.WithLabelValues("flaky")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.JobHealth.WithLabelValues("flaky")), 0)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := New(logger.NewNopLogger())

	require.NoError(t, s.Add(job.New("once", func(context.Context) error {
		return errors.New("boom")
	}), time.Minute))

	require.ErrorContains(t, s.RunOnce(context.Background(), "once"), "boom")
	require.InDelta(t, 0, testutil.ToFloat64(metrics.JobHealth.WithLabelValues("once")), 0)
	require.ErrorIs(t, s.RunOnce(context.Background(), "missing"), ErrUnknownJob)
}
