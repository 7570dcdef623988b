package store

import (
	"context"
	"time"

	"github.com/tanukilabs/questrun/internal/types"
)

// Store defines the interface contract for all content storage operations.
type Store interface {
	UpsertActivities(ctx context.Context, activities []types.Activity) (*types.IngestResult, error)
	ListActivities(ctx context.Context) ([]types.Activity, error)
	UpsertFactSeeds(ctx context.Context, facts []types.FactSeed) (*types.IngestResult, error)
	ListFactSeeds(ctx context.Context) ([]types.FactSeed, error)
	RecentSeenKeys(ctx context.Context, childID string, limit int) ([]string, error)
	RecordSeenKeys(ctx context.Context, childID string, keys []string, seenAt time.Time) error
	SaveCheckpoint(ctx context.Context, childID string, payload []byte) error
	LoadCheckpoint(ctx context.Context, childID string) ([]byte, bool, error)
	DeleteCheckpoint(ctx context.Context, childID string) error
	DeleteExpiredCheckpoints(ctx context.Context, before time.Time) (int64, error)
	UpsertRunSummaries(ctx context.Context, rows []types.RunSummaryRow) error
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
