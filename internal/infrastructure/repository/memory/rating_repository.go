package memory

import (
	"context"
	"sync"

	"github.com/teewatch/teewatch/internal/domain/rating"
)

type ratingKey struct {
	player string
	scope  string
}

type RatingRepository struct {
	mu      sync.Mutex
	catalog *CatalogRepository

	byMap      map[ratingKey]float64
	byGameType map[ratingKey]float64
}

func NewRatingRepository(catalog *CatalogRepository) *RatingRepository {
	return &RatingRepository{
		catalog:    catalog,
		byMap:      make(map[ratingKey]float64),
		byGameType: make(map[ratingKey]float64),
	}
}

func (r *RatingRepository) StrategyFor(_ context.Context, gameType string) (rating.Strategy, error) {
	if r.catalog != nil {
		if s, ok := r.catalog.StrategyOf(gameType); ok {
			return s, nil
		}
	}
	return rating.DefaultStrategyForGameType(gameType), nil
}

func (r *RatingRepository) MapRatings(_ context.Context, mapName string, players []string) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(r.byMap, mapName, players), nil
}

func (r *RatingRepository) GameTypeRatings(_ context.Context, gameType string, players []string) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(r.byGameType, gameType, players), nil
}

func (r *RatingRepository) ApplyMapDeltas(_ context.Context, mapName string, deltas map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for player, delta := range deltas {
		r.byMap[ratingKey{player: player, scope: mapName}] += delta
	}
	return nil
}

func (r *RatingRepository) ApplyGameTypeDeltas(_ context.Context, gameType string, deltas map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for player, delta := range deltas {
		r.byGameType[ratingKey{player: player, scope: gameType}] += delta
	}
	return nil
}

func (r *RatingRepository) ImproveMapRating(_ context.Context, player, mapName string, candidate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ratingKey{player: player, scope: mapName}
	current, ok := r.byMap[key]
	if !ok || candidate > current {
		r.byMap[key] = candidate
	}
	return nil
}

// MapRating returns the stored per-map rating. Test helper.
func (r *RatingRepository) MapRating(player, mapName string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byMap[ratingKey{player: player, scope: mapName}]
}

// GameTypeRating returns the stored per-game-type rating. Test helper.
func (r *RatingRepository) GameTypeRating(player, gameType string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byGameType[ratingKey{player: player, scope: gameType}]
}

func (r *RatingRepository) read(store map[ratingKey]float64, scope string, players []string) map[string]float64 {
	out := make(map[string]float64, len(players))
	for _, player := range players {
		out[player] = store[ratingKey{player: player, scope: scope}]
	}
	return out
}
