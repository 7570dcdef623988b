package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/tanukilabs/questrun/internal/checkpoint"
)

// SweepStore defines the store operations needed by the checkpoint sweeper.
type SweepStore interface {
	DeleteExpiredCheckpoints(ctx context.Context, before time.Time) (int64, error)
}

// CheckpointSweeper periodically removes checkpoints older than the
// resume TTL so expired runs never accumulate in the database.
type CheckpointSweeper struct {
	store    SweepStore
	interval time.Duration
	ttl      time.Duration
}

// NewCheckpointSweeper creates a sweeper with the given store and interval.
// The TTL matches what the checkpoint codec enforces on load.
func NewCheckpointSweeper(store SweepStore, interval time.Duration) *CheckpointSweeper {
	return &CheckpointSweeper{
		store:    store,
		interval: interval,
		ttl:      checkpoint.TTL,
	}
}

// Run starts the sweeper loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start: the codec already discards expired
// checkpoints on load, so the sweep is housekeeping, not correctness.
func (w *CheckpointSweeper) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "checkpoint-sweeper",
		"interval", w.interval.String(),
		"ttl", w.ttl.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "checkpoint-sweeper",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

// runSweep executes a single sweep cycle.
func (w *CheckpointSweeper) runSweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-w.ttl)

	slog.Debug("sweep cycle started",
		"component", "worker",
		"action", "sweep_start",
		"cutoff", cutoff.Format(time.RFC3339),
	)

	removed, err := w.store.DeleteExpiredCheckpoints(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("sweep failed",
			"component", "worker",
			"action", "sweep_failed",
			"error", err,
		)
		return
	}

	slog.Info("sweep cycle completed",
		"component", "worker",
		"action", "sweep_complete",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
