package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
)

type SnapshotRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]snapshot.Snapshot
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{nextID: 1, items: make(map[int64]snapshot.Snapshot)}
}

func (r *SnapshotRepository) Insert(_ context.Context, snap snapshot.Snapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	snap.ID = id
	snap.Clients = append([]snapshot.Client{}, snap.Clients...)
	r.items[id] = snap
	return id, nil
}

func (r *SnapshotRepository) ClaimForRanking(_ context.Context, now time.Time, limit int) ([]snapshot.Snapshot, error) {
	return r.claimBatch(now, limit,
		func(s snapshot.Snapshot) bool { return s.RankingStartedAt == nil && s.RankedAt == nil },
		func(s *snapshot.Snapshot, at *time.Time) { s.RankingStartedAt = at },
	)
}

func (r *SnapshotRepository) ClaimForPlaytime(_ context.Context, now time.Time, limit int) ([]snapshot.Snapshot, error) {
	return r.claimBatch(now, limit,
		func(s snapshot.Snapshot) bool { return s.PlayTimingStartedAt == nil && s.PlayTimedAt == nil },
		func(s *snapshot.Snapshot, at *time.Time) { s.PlayTimingStartedAt = at },
	)
}

func (r *SnapshotRepository) claimBatch(now time.Time, limit int, eligible func(snapshot.Snapshot) bool, lease func(*snapshot.Snapshot, *time.Time)) ([]snapshot.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]snapshot.Snapshot, 0, limit)
	for _, id := range r.sortedIDs() {
		if len(out) >= limit {
			break
		}
		item := r.items[id]
		if !eligible(item) {
			continue
		}

		claimedAt := now
		lease(&item, &claimedAt)
		r.items[id] = item
		out = append(out, cloneSnapshot(item))
	}
	return out, nil
}

func (r *SnapshotRepository) PreviousOf(_ context.Context, snap snapshot.Snapshot) (snapshot.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best snapshot.Snapshot
	found := false
	for _, item := range r.items {
		if item.GameServerID != snap.GameServerID || !item.CreatedAt.Before(snap.CreatedAt) {
			continue
		}
		if !found || item.CreatedAt.After(best.CreatedAt) || (item.CreatedAt.Equal(best.CreatedAt) && item.ID > best.ID) {
			best = item
			found = true
		}
	}
	if !found {
		return snapshot.Snapshot{}, false, nil
	}
	return cloneSnapshot(best), true, nil
}

func (r *SnapshotRepository) MarkRanked(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	done := at
	item.RankedAt = &done
	r.items[id] = item
	return nil
}

func (r *SnapshotRepository) MarkPlayTimed(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	done := at
	item.PlayTimedAt = &done
	r.items[id] = item
	return nil
}

func (r *SnapshotRepository) ReleaseStuckRanking(_ context.Context, heldBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for id, item := range r.items {
		if item.RankedAt != nil || item.RankingStartedAt == nil || !item.RankingStartedAt.Before(heldBefore) {
			continue
		}
		item.RankingStartedAt = nil
		r.items[id] = item
		released++
	}
	return released, nil
}

func (r *SnapshotRepository) ReleaseStuckPlaytime(_ context.Context, heldBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for id, item := range r.items {
		if item.PlayTimedAt != nil || item.PlayTimingStartedAt == nil || !item.PlayTimingStartedAt.Before(heldBefore) {
			continue
		}
		item.PlayTimingStartedAt = nil
		r.items[id] = item
		released++
	}
	return released, nil
}

// Get returns a snapshot by id. Test helper.
func (r *SnapshotRepository) Get(id int64) (snapshot.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return snapshot.Snapshot{}, false
	}
	return cloneSnapshot(item), true
}

// List returns all snapshots ordered by id. Test helper.
func (r *SnapshotRepository) List() []snapshot.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]snapshot.Snapshot, 0, len(r.items))
	for _, id := range r.sortedIDs() {
		out = append(out, cloneSnapshot(r.items[id]))
	}
	return out
}

func (r *SnapshotRepository) sortedIDs() []int64 {
	ids := make([]int64, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneSnapshot(s snapshot.Snapshot) snapshot.Snapshot {
	out := s
	out.Clients = append([]snapshot.Client{}, s.Clients...)
	return out
}
