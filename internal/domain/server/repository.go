package server

import (
	"context"
	"time"
)

// MasterRepository describes master server persistence needs from use cases.
// Claim methods implement the conditional-update lease: a claim that loses
// the race reports no work, never an error.
type MasterRepository interface {
	Upsert(ctx context.Context, hostname string, port int) error
	ClaimStale(ctx context.Context, staleBefore, now time.Time) (MasterServer, bool, error)
	CompletePoll(ctx context.Context, id int64, polledAt time.Time) error
	ReleaseStuck(ctx context.Context, heldBefore time.Time) (int64, error)
}

// GameRepository describes game server persistence needs from use cases.
type GameRepository interface {
	ClaimStaleBatch(ctx context.Context, staleBefore, now time.Time, limit int) ([]GameServer, error)
	// ReplaceForMaster swaps the master's association set wholesale:
	// endpoints not yet known are inserted, rows pointing at this master
	// but absent from the list are detached.
	ReplaceForMaster(ctx context.Context, masterID int64, endpoints []Endpoint) error
	Delete(ctx context.Context, id int64) error
	// MarkOffline records the first detected outage; it is a no-op when
	// offline_since is already set.
	MarkOffline(ctx context.Context, id int64, since time.Time) error
	ClearOffline(ctx context.Context, id int64) error
	CompletePoll(ctx context.Context, id int64, polledAt time.Time) error
	ReleaseStuck(ctx context.Context, heldBefore time.Time) (int64, error)
}
