package snapshot

import (
	"context"
	"time"
)

// Repository describes snapshot persistence needs from use cases.
// ClaimFor* methods lease up to limit unprocessed snapshots; each row is
// claimed independently, so the result may be smaller than limit or empty.
type Repository interface {
	Insert(ctx context.Context, snap Snapshot) (int64, error)
	ClaimForRanking(ctx context.Context, now time.Time, limit int) ([]Snapshot, error)
	ClaimForPlaytime(ctx context.Context, now time.Time, limit int) ([]Snapshot, error)
	// PreviousOf returns the most recent snapshot of the same game server
	// created strictly before snap, clients included.
	PreviousOf(ctx context.Context, snap Snapshot) (Snapshot, bool, error)
	MarkRanked(ctx context.Context, id int64, at time.Time) error
	MarkPlayTimed(ctx context.Context, id int64, at time.Time) error
	ReleaseStuckRanking(ctx context.Context, heldBefore time.Time) (int64, error)
	ReleaseStuckPlaytime(ctx context.Context, heldBefore time.Time) (int64, error)
}
