package playtime

import (
	"context"
	"time"
)

// Repository maintains the playtime counters at every scope. All Add*
// methods upsert the row on first use and are plain monotonic increments.
type Repository interface {
	AddPlayerTime(ctx context.Context, player string, seconds int64) error
	AddPlayerMapTime(ctx context.Context, player, mapName string, seconds int64) error
	AddPlayerGameTypeTime(ctx context.Context, player, gameType string, seconds int64) error
	AddClanTime(ctx context.Context, clan string, seconds int64) error
	AddClanMapTime(ctx context.Context, clan, mapName string, seconds int64) error
	AddClanGameTypeTime(ctx context.Context, clan, gameType string, seconds int64) error
	AddClanPlayerTime(ctx context.Context, clan, player string, seconds int64) error
	AddMapTime(ctx context.Context, mapName string, seconds int64) error
	AddGameTypeTime(ctx context.Context, gameType string, seconds int64) error
	// ObserveClanMembership records the player's clan as of seenAt;
	// last-write-wins by snapshot time, not processing order.
	ObserveClanMembership(ctx context.Context, player, clan string, seenAt time.Time) error
}
