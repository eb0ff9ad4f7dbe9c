package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teewatch/teewatch/internal/domain/server"
	"github.com/teewatch/teewatch/internal/infrastructure/repository/memory"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

func seedGameServer(address string, port int, masterID int64) server.GameServer {
	return server.GameServer{Address: address, Port: port, MasterServerID: masterID}
}

func vanillaInfoPacket(name, mapName, gameType string, clients ...[]string) []byte {
	payload := nulTokens("1", "0.6.4", name, mapName, gameType, "0", "2", "8", "2", "8")
	for _, c := range clients {
		payload = append(payload, nulTokens(c...)...)
	}
	return rawPacket("inf3", payload...)
}

func newServerPollService(games *memory.GameServerRepository, snaps *memory.SnapshotRepository, cat *memory.CatalogRepository, transport Transport) *ServerPollService {
	return NewServerPollService(games, snaps, cat, transport,
		jobstats.NewCollector(), logging.NewNop(), 5*time.Minute, 0, 100)
}

func TestServerPollStoresSnapshot(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()
	snaps := memory.NewSnapshotRepository()
	cat := memory.NewCatalogRepository()
	transport := newFakeTransport()

	games.Seed(seedGameServer("192.0.2.1", 8303, 1))
	transport.reply("192.0.2.1:8303", vanillaInfoPacket(
		"my server", "dm1", "DM",
		[]string{"alice", "AAA", "276", "5", "1"},
		[]string{"bob", "", "208", "3", "0"},
	))

	svc := newServerPollService(games, snaps, cat, transport)
	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	stored := snaps.List()
	require.Len(t, stored, 1)
	require.Equal(t, "my server", stored[0].Name)
	require.Equal(t, "dm1", stored[0].MapName)
	require.Equal(t, "DM", stored[0].GameTypeName)
	require.Len(t, stored[0].Clients, 2)
	require.Equal(t, "alice", stored[0].Clients[0].PlayerName)
	require.True(t, stored[0].Clients[0].IsInGame)
	require.False(t, stored[0].Clients[1].IsInGame)

	require.True(t, cat.HasMap("dm1"))
	require.True(t, cat.HasPlayer("alice"))

	polled := games.List()
	require.Nil(t, polled[0].PollingStartedAt)
	require.NotNil(t, polled[0].PolledAt)
	require.Nil(t, polled[0].OfflineSince)
}

func TestServerPollEmptyReplyMarksOffline(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()
	transport := newFakeTransport()

	games.Seed(seedGameServer("192.0.2.1", 8303, 1))

	svc := newServerPollService(games, memory.NewSnapshotRepository(),
		memory.NewCatalogRepository(), transport)
	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	polled := games.List()
	require.NotNil(t, polled[0].OfflineSince)
	require.Nil(t, polled[0].PollingStartedAt)
	require.NotNil(t, polled[0].PolledAt)
}

func TestServerPollReplyClearsOfflineMarker(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()
	transport := newFakeTransport()

	outage := time.Now().UTC().Add(-time.Hour)
	srv := seedGameServer("192.0.2.1", 8303, 1)
	srv.OfflineSince = &outage
	games.Seed(srv)
	transport.reply("192.0.2.1:8303", vanillaInfoPacket("s", "dm1", "DM",
		[]string{"alice", "", "0", "1", "1"}))

	svc := newServerPollService(games, memory.NewSnapshotRepository(),
		memory.NewCatalogRepository(), transport)
	svc.draw = func() float64 { return 0.99 } // never skip

	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	require.Nil(t, games.List()[0].OfflineSince)
}

func TestServerPollOfflineSkipStampsWithoutSending(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()
	transport := newFakeTransport()

	outage := time.Now().UTC().Add(-48 * time.Hour)
	srv := seedGameServer("192.0.2.1", 8303, 1)
	srv.OfflineSince = &outage
	games.Seed(srv)

	svc := newServerPollService(games, memory.NewSnapshotRepository(),
		memory.NewCatalogRepository(), transport)
	svc.draw = func() float64 { return 0 } // always below the skip threshold

	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	require.Empty(t, transport.sentTo("192.0.2.1:8303"))
	polled := games.List()
	require.Nil(t, polled[0].PollingStartedAt)
	require.NotNil(t, polled[0].PolledAt)
	require.NotNil(t, polled[0].OfflineSince)
}

func TestServerPollDeletesInvalidAddress(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()

	games.Seed(seedGameServer("not-an-ip", 8303, 1))

	svc := newServerPollService(games, memory.NewSnapshotRepository(),
		memory.NewCatalogRepository(), newFakeTransport())
	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	require.Empty(t, games.List())
}

// cancelSensitiveGameRepo fails lease-clearing writes once the request
// context is cancelled, the way a real store driver would.
type cancelSensitiveGameRepo struct {
	*memory.GameServerRepository
}

func (r *cancelSensitiveGameRepo) CompletePoll(ctx context.Context, id int64, polledAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.GameServerRepository.CompletePoll(ctx, id, polledAt)
}

func (r *cancelSensitiveGameRepo) MarkOffline(ctx context.Context, id int64, since time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.GameServerRepository.MarkOffline(ctx, id, since)
}

func TestServerPollShutdownStillClearsLease(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	games := memory.NewGameServerRepository()
	games.Seed(seedGameServer("192.0.2.1", 8303, 1))

	svc := NewServerPollService(&cancelSensitiveGameRepo{GameServerRepository: games},
		memory.NewSnapshotRepository(), memory.NewCatalogRepository(), newFakeTransport(),
		jobstats.NewCollector(), logging.NewNop(), 5*time.Minute, 0, 100)
	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	polled := games.List()
	require.Nil(t, polled[0].PollingStartedAt, "cancelled poll must not leave the lease for the reaper")
	require.NotNil(t, polled[0].PolledAt)
}

func TestServerPollSendsBothInfoRequests(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameServerRepository()
	transport := newFakeTransport()

	games.Seed(seedGameServer("192.0.2.1", 8303, 1))

	svc := newServerPollService(games, memory.NewSnapshotRepository(),
		memory.NewCatalogRepository(), transport)
	require.NoError(t, svc.Run(ctx))
	svc.Wait()

	sent := transport.sentTo("192.0.2.1:8303")
	require.Len(t, sent, 2)
	require.Equal(t, []byte("gie3"), sent[0][10:14])
	require.Equal(t, []byte("fstd"), sent[1][10:14])
}
