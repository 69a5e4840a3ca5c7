package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/russross/meddler"
)

// ErrWatermarkRegression is returned when a watermark would move backwards.
var ErrWatermarkRegression = errors.New("watermark cannot move backwards")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type row struct {
	KeyName     string `meddler:"key_name"`
	BlockNumber uint64 `meddler:"block_number"`
	UpdatedAt   int64  `meddler:"updated_at"`
}

// Get returns the last processed block of job, or 0 when the job never ran.
func Get(ctx context.Context, q Querier, job string) (uint64, error) {
	var block uint64
	err := q.QueryRowContext(ctx,
		`SELECT block_number FROM processed_block_number WHERE key_name = ?`, job).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read watermark of %s: %w", job, err)
	}

	return block, nil
}

// Advance sets the watermark of job to block inside tx, so it commits or rolls back
// together with the batch it certifies.
func Advance(ctx context.Context, tx *sql.Tx, job string, block uint64) error {
	current, err := Get(ctx, tx, job)
	if err != nil {
		return err
	}

	if block < current {
		return fmt.Errorf("%w: %s is at %d, got %d", ErrWatermarkRegression, job, current, block)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processed_block_number (key_name, block_number, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key_name) DO UPDATE SET block_number = excluded.block_number, updated_at = excluded.updated_at`,
		job, block, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("failed to advance watermark of %s to %d: %w", job, block, err)
	}

	return nil
}

// All returns every stored watermark keyed by job name.
func All(db meddler.DB) (map[string]uint64, error) {
	var rows []*row
	if err := meddler.QueryAll(db, &rows, `SELECT * FROM processed_block_number`); err != nil {
		return nil, fmt.Errorf("failed to list watermarks: %w", err)
	}

	out := make(map[string]uint64, len(rows))
	for _, r := range rows {
		out[r.KeyName] = r.BlockNumber
	}

	return out, nil
}
