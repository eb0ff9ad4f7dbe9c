package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teewatch/teewatch/internal/domain/server"
)

type MasterServerRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]server.MasterServer
}

func NewMasterServerRepository() *MasterServerRepository {
	return &MasterServerRepository{nextID: 1, items: make(map[int64]server.MasterServer)}
}

func (r *MasterServerRepository) Upsert(_ context.Context, hostname string, port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.Hostname == hostname && item.Port == port {
			return nil
		}
	}

	id := r.nextID
	r.nextID++
	r.items[id] = server.MasterServer{ID: id, Hostname: hostname, Port: port}
	return nil
}

func (r *MasterServerRepository) ClaimStale(_ context.Context, staleBefore, now time.Time) (server.MasterServer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.sortedIDs() {
		item := r.items[id]
		if item.PollingStartedAt != nil {
			continue
		}
		if item.PolledAt != nil && !item.PolledAt.Before(staleBefore) {
			continue
		}

		claimedAt := now
		item.PollingStartedAt = &claimedAt
		r.items[id] = item
		return item, true, nil
	}

	return server.MasterServer{}, false, nil
}

func (r *MasterServerRepository) CompletePoll(_ context.Context, id int64, polledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.PollingStartedAt = nil
	at := polledAt
	item.PolledAt = &at
	r.items[id] = item
	return nil
}

func (r *MasterServerRepository) ReleaseStuck(_ context.Context, heldBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for id, item := range r.items {
		if item.PollingStartedAt == nil || !item.PollingStartedAt.Before(heldBefore) {
			continue
		}
		item.PollingStartedAt = nil
		r.items[id] = item
		released++
	}
	return released, nil
}

// List returns all masters ordered by id. Test helper.
func (r *MasterServerRepository) List() []server.MasterServer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]server.MasterServer, 0, len(r.items))
	for _, id := range r.sortedIDs() {
		out = append(out, r.items[id])
	}
	return out
}

func (r *MasterServerRepository) sortedIDs() []int64 {
	ids := make([]int64, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type GameServerRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]server.GameServer
}

func NewGameServerRepository() *GameServerRepository {
	return &GameServerRepository{nextID: 1, items: make(map[int64]server.GameServer)}
}

func (r *GameServerRepository) ClaimStaleBatch(_ context.Context, staleBefore, now time.Time, limit int) ([]server.GameServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]server.GameServer, 0, limit)
	for _, id := range r.sortedIDs() {
		if len(out) >= limit {
			break
		}
		item := r.items[id]
		if item.PollingStartedAt != nil {
			continue
		}
		if item.PolledAt != nil && !item.PolledAt.Before(staleBefore) {
			continue
		}

		claimedAt := now
		item.PollingStartedAt = &claimedAt
		r.items[id] = item
		out = append(out, item)
	}
	return out, nil
}

func (r *GameServerRepository) ReplaceForMaster(_ context.Context, masterID int64, endpoints []server.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.MasterServerID == masterID {
			item.MasterServerID = 0
			r.items[id] = item
		}
	}

	for _, endpoint := range endpoints {
		if id, ok := r.findByAddr(endpoint.Address, endpoint.Port); ok {
			item := r.items[id]
			item.MasterServerID = masterID
			r.items[id] = item
			continue
		}

		id := r.nextID
		r.nextID++
		r.items[id] = server.GameServer{
			ID:             id,
			Address:        endpoint.Address,
			Port:           endpoint.Port,
			MasterServerID: masterID,
		}
	}
	return nil
}

func (r *GameServerRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

func (r *GameServerRepository) MarkOffline(_ context.Context, id int64, since time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.OfflineSince != nil {
		return nil
	}
	at := since
	item.OfflineSince = &at
	r.items[id] = item
	return nil
}

func (r *GameServerRepository) ClearOffline(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.OfflineSince = nil
	r.items[id] = item
	return nil
}

func (r *GameServerRepository) CompletePoll(_ context.Context, id int64, polledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.PollingStartedAt = nil
	at := polledAt
	item.PolledAt = &at
	r.items[id] = item
	return nil
}

func (r *GameServerRepository) ReleaseStuck(_ context.Context, heldBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for id, item := range r.items {
		if item.PollingStartedAt == nil || !item.PollingStartedAt.Before(heldBefore) {
			continue
		}
		item.PollingStartedAt = nil
		r.items[id] = item
		released++
	}
	return released, nil
}

// Seed inserts a game server directly, bypassing master association. Test helper.
func (r *GameServerRepository) Seed(item server.GameServer) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	item.ID = id
	r.items[id] = item
	return id
}

// List returns all game servers ordered by id. Test helper.
func (r *GameServerRepository) List() []server.GameServer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]server.GameServer, 0, len(r.items))
	for _, id := range r.sortedIDs() {
		out = append(out, r.items[id])
	}
	return out
}

func (r *GameServerRepository) findByAddr(address string, port int) (int64, bool) {
	for id, item := range r.items {
		if item.Address == address && item.Port == port {
			return id, true
		}
	}
	return 0, false
}

func (r *GameServerRepository) sortedIDs() []int64 {
	ids := make([]int64, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
