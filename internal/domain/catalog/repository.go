package catalog

import "context"

// Repository upserts the existence rows (maps, game types, players, clans)
// that aggregates hang off. All methods are idempotent upsert-on-first-use.
type Repository interface {
	EnsureMap(ctx context.Context, name string) error
	EnsureGameType(ctx context.Context, name string) error
	EnsurePlayers(ctx context.Context, names []string) error
	EnsureClans(ctx context.Context, names []string) error
}
