package memory

import (
	"context"
	"sync"

	"github.com/teewatch/teewatch/internal/domain/rating"
)

type CatalogRepository struct {
	mu        sync.Mutex
	maps      map[string]struct{}
	gameTypes map[string]rating.Strategy
	players   map[string]struct{}
	clans     map[string]struct{}
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		maps:      make(map[string]struct{}),
		gameTypes: make(map[string]rating.Strategy),
		players:   make(map[string]struct{}),
		clans:     make(map[string]struct{}),
	}
}

func (r *CatalogRepository) EnsureMap(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maps[name] = struct{}{}
	return nil
}

func (r *CatalogRepository) EnsureGameType(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.gameTypes[name]; !ok {
		r.gameTypes[name] = rating.DefaultStrategyForGameType(name)
	}
	return nil
}

func (r *CatalogRepository) EnsurePlayers(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		r.players[name] = struct{}{}
	}
	return nil
}

func (r *CatalogRepository) EnsureClans(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		r.clans[name] = struct{}{}
	}
	return nil
}

// HasMap reports whether the map was ensured. Test helper.
func (r *CatalogRepository) HasMap(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.maps[name]
	return ok
}

// HasPlayer reports whether the player was ensured. Test helper.
func (r *CatalogRepository) HasPlayer(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.players[name]
	return ok
}

// SetStrategy overrides a game type's rating strategy. Test helper.
func (r *CatalogRepository) SetStrategy(name string, strategy rating.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gameTypes[name] = strategy
}

// StrategyOf returns the stored strategy and whether the game type exists.
func (r *CatalogRepository) StrategyOf(name string) (rating.Strategy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.gameTypes[name]
	return s, ok
}
