// Package checkpoint serializes in-flight quest runs for resume. A
// corrupt, expired, or foreign checkpoint is never an error condition:
// it simply reads back as absent, and the learner starts fresh.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tanukilabs/questrun/internal/planner"
	"github.com/tanukilabs/questrun/internal/types"
)

// Version is the structural version tag this codec writes and accepts.
const Version = 1

// TTL is how long a stored checkpoint remains resumable.
const TTL = 48 * time.Hour

// BlobStore is the durable keyed storage the codec writes through.
// Implemented by the SQLite store.
type BlobStore interface {
	SaveCheckpoint(ctx context.Context, childID string, payload []byte) error
	// LoadCheckpoint returns found=false when no record exists.
	LoadCheckpoint(ctx context.Context, childID string) (payload []byte, found bool, err error)
	DeleteCheckpoint(ctx context.Context, childID string) error
}

// Codec saves and restores checkpoints through a BlobStore.
type Codec struct {
	store BlobStore
	now   func() time.Time
}

// New creates a Codec using the wall clock.
func New(store BlobStore) *Codec {
	return &Codec{store: store, now: time.Now}
}

// NewWithClock creates a Codec with an injected clock for tests.
func NewWithClock(store BlobStore, now func() time.Time) *Codec {
	return &Codec{store: store, now: now}
}

// Save serializes the checkpoint verbatim and overwrites any previous
// record for the child. The version tag is stamped here; SavedAt is
// stamped only when the caller left it zero.
func (c *Codec) Save(ctx context.Context, cp types.Checkpoint) error {
	cp.Version = Version
	if cp.SavedAt.IsZero() {
		cp.SavedAt = c.now().UTC()
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := c.store.SaveCheckpoint(ctx, cp.ChildID, payload); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load returns the child's checkpoint, or nil when none is usable.
// Records that fail the version, ownership, or age checks are deleted on
// the way out. An accepted checkpoint has its plan re-sanitized and its
// current index clamped into the sanitized bounds; if sanitization leaves
// no interactive activity, the checkpoint is treated as absent.
func (c *Codec) Load(ctx context.Context, childID string) (*types.Checkpoint, error) {
	payload, found, err := c.store.LoadCheckpoint(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found {
		return nil, nil
	}

	var cp types.Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, c.discard(ctx, childID)
	}
	if cp.Version != Version || cp.ChildID != childID {
		return nil, c.discard(ctx, childID)
	}
	if c.now().Sub(cp.SavedAt) > TTL {
		return nil, c.discard(ctx, childID)
	}

	cp.Plan = planner.SanitizePlan(cp.Plan)
	if !planner.HasInteractive(cp.Plan) {
		return nil, c.discard(ctx, childID)
	}

	if cp.Progress.CurrentIndex < 0 {
		cp.Progress.CurrentIndex = 0
	}
	if cp.Progress.CurrentIndex >= len(cp.Plan.Activities) {
		cp.Progress.CurrentIndex = len(cp.Plan.Activities) - 1
	}

	return &cp, nil
}

// Delete removes the child's checkpoint, if any.
func (c *Codec) Delete(ctx context.Context, childID string) error {
	return c.store.DeleteCheckpoint(ctx, childID)
}

func (c *Codec) discard(ctx context.Context, childID string) error {
	if err := c.store.DeleteCheckpoint(ctx, childID); err != nil {
		return fmt.Errorf("discard checkpoint: %w", err)
	}
	return nil
}
