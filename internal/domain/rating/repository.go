package rating

import "context"

// Repository maintains the per-map and per-game-type rating aggregates.
// Ratings are lazily created at zero; reads of unknown players return 0.
type Repository interface {
	StrategyFor(ctx context.Context, gameType string) (Strategy, error)
	MapRatings(ctx context.Context, mapName string, players []string) (map[string]float64, error)
	GameTypeRatings(ctx context.Context, gameType string, players []string) (map[string]float64, error)
	ApplyMapDeltas(ctx context.Context, mapName string, deltas map[string]float64) error
	ApplyGameTypeDeltas(ctx context.Context, gameType string, deltas map[string]float64) error
	// ImproveMapRating upserts candidate only when it beats the stored
	// rating (ratings are negated times, larger is better).
	ImproveMapRating(ctx context.Context, player, mapName string, candidate float64) error
}
