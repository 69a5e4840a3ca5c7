package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
)

const jitterFactor = 0.25

// transientMarkers are lower-case fragments of node and proxy errors that clear up on their own.
var transientMarkers = []string{
	"timeout",
	"deadline exceeded",
	"too many requests",
	"rate limit",
	"bad gateway",
	"service unavailable",
	"connection pool",
	"no available connection",
}

// transient reports whether a failed request is worth repeating.
func transient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusBadGateway
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// newBackOff builds the exponential policy of cfg, bound to ctx.
// A nil config or a single attempt never retries.
func newBackOff(ctx context.Context, cfg *config.RetryConfig) backoff.BackOff {
	if cfg == nil || cfg.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialBackoff.Duration
	exp.MaxInterval = cfg.MaxBackoff.Duration
	exp.Multiplier = cfg.BackoffMultiplier
	exp.RandomizationFactor = jitterFactor
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.MaxAttempts-1)), ctx)
}

// retry runs fn until it succeeds, fails permanently, or the policy gives up.
func retry(ctx context.Context, cfg *config.RetryConfig, method string, fn func() error) error {
	attempts := 0

	operation := func() error {
		attempts++

		err := fn()
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, wait time.Duration) {
		RPCRetryInc(method)
	}

	err := backoff.RetryNotify(operation, newBackOff(ctx, cfg), notify)
	if err != nil && attempts > 1 {
		return fmt.Errorf("%s gave up after %d attempts: %w", method, attempts, err)
	}

	return err
}
