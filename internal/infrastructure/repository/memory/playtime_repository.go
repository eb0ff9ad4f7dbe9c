package memory

import (
	"context"
	"sync"
	"time"
)

type pairKey struct {
	first  string
	second string
}

type clanMembership struct {
	clan   string
	seenAt time.Time
}

type PlaytimeRepository struct {
	mu sync.Mutex

	playerSeconds   map[string]int64
	clanSeconds     map[string]int64
	mapSeconds      map[string]int64
	gameTypeSeconds map[string]int64

	playerMapSeconds      map[pairKey]int64
	playerGameTypeSeconds map[pairKey]int64
	clanMapSeconds        map[pairKey]int64
	clanGameTypeSeconds   map[pairKey]int64
	clanPlayerSeconds     map[pairKey]int64

	memberships map[string]clanMembership
}

func NewPlaytimeRepository() *PlaytimeRepository {
	return &PlaytimeRepository{
		playerSeconds:         make(map[string]int64),
		clanSeconds:           make(map[string]int64),
		mapSeconds:            make(map[string]int64),
		gameTypeSeconds:       make(map[string]int64),
		playerMapSeconds:      make(map[pairKey]int64),
		playerGameTypeSeconds: make(map[pairKey]int64),
		clanMapSeconds:        make(map[pairKey]int64),
		clanGameTypeSeconds:   make(map[pairKey]int64),
		clanPlayerSeconds:     make(map[pairKey]int64),
		memberships:           make(map[string]clanMembership),
	}
}

func (r *PlaytimeRepository) AddPlayerTime(_ context.Context, player string, seconds int64) error {
	r.addSingle(r.playerSeconds, player, seconds)
	return nil
}

func (r *PlaytimeRepository) AddPlayerMapTime(_ context.Context, player, mapName string, seconds int64) error {
	r.addPair(r.playerMapSeconds, player, mapName, seconds)
	return nil
}

func (r *PlaytimeRepository) AddPlayerGameTypeTime(_ context.Context, player, gameType string, seconds int64) error {
	r.addPair(r.playerGameTypeSeconds, player, gameType, seconds)
	return nil
}

func (r *PlaytimeRepository) AddClanTime(_ context.Context, clan string, seconds int64) error {
	r.addSingle(r.clanSeconds, clan, seconds)
	return nil
}

func (r *PlaytimeRepository) AddClanMapTime(_ context.Context, clan, mapName string, seconds int64) error {
	r.addPair(r.clanMapSeconds, clan, mapName, seconds)
	return nil
}

func (r *PlaytimeRepository) AddClanGameTypeTime(_ context.Context, clan, gameType string, seconds int64) error {
	r.addPair(r.clanGameTypeSeconds, clan, gameType, seconds)
	return nil
}

func (r *PlaytimeRepository) AddClanPlayerTime(_ context.Context, clan, player string, seconds int64) error {
	r.addPair(r.clanPlayerSeconds, clan, player, seconds)
	return nil
}

func (r *PlaytimeRepository) AddMapTime(_ context.Context, mapName string, seconds int64) error {
	r.addSingle(r.mapSeconds, mapName, seconds)
	return nil
}

func (r *PlaytimeRepository) AddGameTypeTime(_ context.Context, gameType string, seconds int64) error {
	r.addSingle(r.gameTypeSeconds, gameType, seconds)
	return nil
}

func (r *PlaytimeRepository) ObserveClanMembership(_ context.Context, player, clan string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.memberships[player]
	if ok && !current.seenAt.Before(seenAt) {
		return nil
	}
	r.memberships[player] = clanMembership{clan: clan, seenAt: seenAt}
	return nil
}

// PlayerSeconds returns the player's total playtime. Test helper.
func (r *PlaytimeRepository) PlayerSeconds(player string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.playerSeconds[player]
}

// PlayerMapSeconds returns the player's per-map playtime. Test helper.
func (r *PlaytimeRepository) PlayerMapSeconds(player, mapName string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.playerMapSeconds[pairKey{first: player, second: mapName}]
}

// ClanSeconds returns the clan's total playtime. Test helper.
func (r *PlaytimeRepository) ClanSeconds(clan string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.clanSeconds[clan]
}

// MapSeconds returns the map's total playtime. Test helper.
func (r *PlaytimeRepository) MapSeconds(mapName string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mapSeconds[mapName]
}

// GameTypeSeconds returns the game type's total playtime. Test helper.
func (r *PlaytimeRepository) GameTypeSeconds(gameType string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gameTypeSeconds[gameType]
}

// ClanOf returns the player's recorded clan. Test helper.
func (r *PlaytimeRepository) ClanOf(player string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.memberships[player]
	return m.clan, ok
}

func (r *PlaytimeRepository) addSingle(store map[string]int64, key string, seconds int64) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	store[key] += seconds
}

func (r *PlaytimeRepository) addPair(store map[pairKey]int64, first, second string, seconds int64) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	store[pairKey{first: first, second: second}] += seconds
}
