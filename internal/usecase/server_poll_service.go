package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/teewatch/teewatch/internal/domain/catalog"
	"github.com/teewatch/teewatch/internal/domain/server"
	"github.com/teewatch/teewatch/internal/domain/snapshot"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
	"github.com/teewatch/teewatch/internal/protocol"
)

const (
	serverPollJob         = "server_poll"
	serverPollWorkerCount = 32

	// completionGrace bounds the detached completion work a poll is
	// allowed after its parent context has been cancelled.
	completionGrace = 5 * time.Second
)

// ServerPollService claims a batch of stale game servers and polls each
// one over UDP for its current state. Requests fan out through a worker
// pool; each target's reply is decoded after a wait window and stored as
// an immutable snapshot.
type ServerPollService struct {
	gameRepo     server.GameRepository
	snapshotRepo snapshot.Repository
	catalogRepo  catalog.Repository
	transport    Transport
	stats        *jobstats.Collector
	logger       *logging.Logger

	staleness  time.Duration
	waitWindow time.Duration
	batchSize  int
	now        func() time.Time

	// draw returns a uniform [0,1) sample for the offline skip policy.
	// Injected so tests can force either branch.
	draw func() float64

	completions sync.WaitGroup
}

func NewServerPollService(
	gameRepo server.GameRepository,
	snapshotRepo snapshot.Repository,
	catalogRepo catalog.Repository,
	transport Transport,
	stats *jobstats.Collector,
	logger *logging.Logger,
	staleness time.Duration,
	waitWindow time.Duration,
	batchSize int,
) *ServerPollService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ServerPollService{
		gameRepo:     gameRepo,
		snapshotRepo: snapshotRepo,
		catalogRepo:  catalogRepo,
		transport:    transport,
		stats:        stats,
		logger:       logger,
		staleness:    staleness,
		waitWindow:   waitWindow,
		batchSize:    batchSize,
		now:          time.Now,
		draw:         rand.Float64,
	}
}

// Run claims up to the batch size of stale game servers and polls them.
func (s *ServerPollService) Run(ctx context.Context) error {
	now := s.now().UTC()
	targets, err := s.gameRepo.ClaimStaleBatch(ctx, now.Add(-s.staleness), now, s.batchSize)
	if err != nil {
		s.stats.RecordFailure(serverPollJob)
		return fmt.Errorf("claim stale game servers: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	pool, err := ants.NewPool(serverPollWorkerCount)
	if err != nil {
		s.stats.RecordFailure(serverPollJob)
		return fmt.Errorf("create poll worker pool: %w", err)
	}

	var workers sync.WaitGroup
	for _, target := range targets {
		target := target
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			s.pollOne(ctx, target, now)
		}); err != nil {
			workers.Done()
			s.logger.ErrorContext(ctx, "submit poll task", "server", target.Addr(), "error", err)
		}
	}

	s.completions.Add(1)
	go func() {
		defer s.completions.Done()
		workers.Wait()
		pool.Release()
	}()
	return nil
}

// Wait blocks until every in-flight deferred completion has finished.
func (s *ServerPollService) Wait() {
	s.completions.Wait()
}

func (s *ServerPollService) pollOne(ctx context.Context, target server.GameServer, now time.Time) {
	if err := target.Validate(); err != nil {
		s.logger.WarnContext(ctx, "dropping invalid game server",
			"id", target.ID, "addr", target.Addr(), "error", err)
		if err := s.gameRepo.Delete(ctx, target.ID); err != nil {
			s.logger.ErrorContext(ctx, "delete invalid game server", "id", target.ID, "error", err)
		}
		return
	}

	if target.OfflineSince != nil {
		p := server.OfflineSkipProbability(now.Sub(*target.OfflineSince))
		if s.draw() < p {
			if err := s.gameRepo.CompletePoll(ctx, target.ID, now); err != nil {
				s.logger.ErrorContext(ctx, "complete skipped poll", "id", target.ID, "error", err)
			}
			return
		}
	}

	addr := target.Addr()
	s.transport.Clear(addr)
	for _, payload := range protocol.InfoRequests(pollToken(target.ID)) {
		s.transport.Send(addr, payload)
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.waitWindow):
	}

	// On shutdown, finish on a detached context so the lease is
	// cleared now instead of being left for the reaper.
	completeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		completeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), completionGrace)
		defer cancel()
	}

	if err := s.complete(completeCtx, target); err != nil {
		s.stats.RecordFailure(serverPollJob)
		s.logger.ErrorContext(completeCtx, "complete game server poll",
			"server", addr, "error", err)
	}
}

func (s *ServerPollService) complete(ctx context.Context, target server.GameServer) error {
	start := s.now()
	addr := target.Addr()
	buffers := s.transport.Collect(addr)
	defer s.transport.Clear(addr)

	acc := protocol.NewInfoAccumulator()
	for _, buf := range buffers {
		if err := acc.Decode(buf); err != nil {
			s.logger.WarnContext(ctx, "decode server info buffer",
				"server", addr, "error", err)
		}
	}

	now := s.now().UTC()
	info, ok := acc.Info()
	if !ok {
		if err := s.gameRepo.MarkOffline(ctx, target.ID, now); err != nil {
			return fmt.Errorf("mark game server offline: %w", err)
		}
		if err := s.gameRepo.CompletePoll(ctx, target.ID, now); err != nil {
			return fmt.Errorf("complete game poll: %w", err)
		}
		s.stats.RecordRun(serverPollJob, 0, s.now().Sub(start))
		return nil
	}

	if err := s.gameRepo.ClearOffline(ctx, target.ID); err != nil {
		return fmt.Errorf("clear offline marker: %w", err)
	}

	snap := snapshotFromInfo(target.ID, now, info)
	if err := s.registerEntities(ctx, snap); err != nil {
		return err
	}
	if _, err := s.snapshotRepo.Insert(ctx, snap); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err := s.gameRepo.CompletePoll(ctx, target.ID, now); err != nil {
		return fmt.Errorf("complete game poll: %w", err)
	}

	s.stats.RecordRun(serverPollJob, 1, s.now().Sub(start))
	return nil
}

func (s *ServerPollService) registerEntities(ctx context.Context, snap snapshot.Snapshot) error {
	if err := s.catalogRepo.EnsureMap(ctx, snap.MapName); err != nil {
		return fmt.Errorf("ensure map: %w", err)
	}
	if err := s.catalogRepo.EnsureGameType(ctx, snap.GameTypeName); err != nil {
		return fmt.Errorf("ensure game type: %w", err)
	}

	players := make([]string, 0, len(snap.Clients))
	clanSet := make(map[string]struct{})
	for _, c := range snap.DedupedClients() {
		if c.PlayerName == snapshot.ConnectingName {
			continue
		}
		players = append(players, c.PlayerName)
		if c.ClanName != "" {
			clanSet[c.ClanName] = struct{}{}
		}
	}
	clans := make([]string, 0, len(clanSet))
	for clan := range clanSet {
		clans = append(clans, clan)
	}

	if err := s.catalogRepo.EnsurePlayers(ctx, players); err != nil {
		return fmt.Errorf("ensure players: %w", err)
	}
	if err := s.catalogRepo.EnsureClans(ctx, clans); err != nil {
		return fmt.Errorf("ensure clans: %w", err)
	}
	return nil
}

func snapshotFromInfo(gameServerID int64, at time.Time, info protocol.ServerInfo) snapshot.Snapshot {
	clients := make([]snapshot.Client, 0, len(info.Clients))
	for _, c := range info.Clients {
		clients = append(clients, snapshot.Client{
			PlayerName: c.Name,
			ClanName:   c.Clan,
			Country:    c.Country,
			Score:      c.Score,
			IsInGame:   c.IsPlayer,
		})
	}
	return snapshot.Snapshot{
		GameServerID: gameServerID,
		CreatedAt:    at,
		Name:         info.Name,
		MapName:      info.MapName,
		GameTypeName: info.GameType,
		Clients:      clients,
	}
}

// pollToken derives the request token echoed back by info replies. Any
// stable byte works; replies are keyed by remote address, not token.
func pollToken(id int64) byte {
	return byte(id%251 + 1)
}
