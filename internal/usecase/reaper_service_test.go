package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
	"github.com/teewatch/teewatch/internal/infrastructure/repository/memory"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

func TestReaperReleasesExpiredLeases(t *testing.T) {
	ctx := context.Background()
	masters := memory.NewMasterServerRepository()
	games := memory.NewGameServerRepository()
	snaps := memory.NewSnapshotRepository()

	now := time.Now().UTC()
	longAgo := now.Add(-time.Hour)

	require.NoError(t, masters.Upsert(ctx, "master.example.org", 8300))
	_, ok, err := masters.ClaimStale(ctx, now, longAgo)
	require.NoError(t, err)
	require.True(t, ok)

	games.Seed(seedGameServer("192.0.2.1", 8303, 1))
	claimed, err := games.ClaimStaleBatch(ctx, now, longAgo, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	_, err = snaps.Insert(ctx, snapshot.Snapshot{GameServerID: 1, CreatedAt: longAgo})
	require.NoError(t, err)
	_, err = snaps.ClaimForRanking(ctx, longAgo, 10)
	require.NoError(t, err)
	_, err = snaps.ClaimForPlaytime(ctx, longAgo, 10)
	require.NoError(t, err)

	svc := NewReaperService(masters, games, snaps,
		jobstats.NewCollector(), logging.NewNop(), 15*time.Minute)
	require.NoError(t, svc.Run(ctx))

	// Every lease predates the timeout, so everything is claimable again.
	_, ok, err = masters.ClaimStale(ctx, now.Add(time.Minute), now)
	require.NoError(t, err)
	require.True(t, ok)

	reclaimed, err := games.ClaimStaleBatch(ctx, now.Add(time.Minute), now, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)

	ranking, err := snaps.ClaimForRanking(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
}

func TestReaperLeavesFreshLeasesAlone(t *testing.T) {
	ctx := context.Background()
	masters := memory.NewMasterServerRepository()
	games := memory.NewGameServerRepository()
	snaps := memory.NewSnapshotRepository()

	now := time.Now().UTC()
	require.NoError(t, masters.Upsert(ctx, "master.example.org", 8300))
	_, ok, err := masters.ClaimStale(ctx, now, now)
	require.NoError(t, err)
	require.True(t, ok)

	svc := NewReaperService(masters, games, snaps,
		jobstats.NewCollector(), logging.NewNop(), 15*time.Minute)
	require.NoError(t, svc.Run(ctx))

	// Lease is fresh, so a new claim attempt still loses.
	_, ok, err = masters.ClaimStale(ctx, now.Add(time.Minute), now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReaperDoesNotResurrectFinishedWork(t *testing.T) {
	ctx := context.Background()
	snaps := memory.NewSnapshotRepository()

	now := time.Now().UTC()
	longAgo := now.Add(-time.Hour)

	id, err := snaps.Insert(ctx, snapshot.Snapshot{GameServerID: 1, CreatedAt: longAgo})
	require.NoError(t, err)
	_, err = snaps.ClaimForRanking(ctx, longAgo, 10)
	require.NoError(t, err)
	require.NoError(t, snaps.MarkRanked(ctx, id, now))

	svc := NewReaperService(memory.NewMasterServerRepository(),
		memory.NewGameServerRepository(), snaps,
		jobstats.NewCollector(), logging.NewNop(), 15*time.Minute)
	require.NoError(t, svc.Run(ctx))

	again, err := snaps.ClaimForRanking(ctx, now, 10)
	require.NoError(t, err)
	require.Empty(t, again, "ranked snapshots must stay done")
}
