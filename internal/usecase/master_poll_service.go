package usecase

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/teewatch/teewatch/internal/domain/server"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
	"github.com/teewatch/teewatch/internal/protocol"
)

const masterPollJob = "master_poll"

// MasterPollService claims one stale master server per run, asks it for
// its server list, and replaces the master's game-server associations
// with whatever the reply contains. The reply is read after a wait
// window so slow masters still land in the same poll.
type MasterPollService struct {
	masterRepo server.MasterRepository
	gameRepo   server.GameRepository
	transport  Transport
	stats      *jobstats.Collector
	logger     *logging.Logger

	staleness  time.Duration
	waitWindow time.Duration
	now        func() time.Time

	completions sync.WaitGroup
}

func NewMasterPollService(
	masterRepo server.MasterRepository,
	gameRepo server.GameRepository,
	transport Transport,
	stats *jobstats.Collector,
	logger *logging.Logger,
	staleness time.Duration,
	waitWindow time.Duration,
) *MasterPollService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MasterPollService{
		masterRepo: masterRepo,
		gameRepo:   gameRepo,
		transport:  transport,
		stats:      stats,
		logger:     logger,
		staleness:  staleness,
		waitWindow: waitWindow,
		now:        time.Now,
	}
}

// Run claims and polls at most one stale master. A run that finds no
// claimable master is a normal empty pass.
func (s *MasterPollService) Run(ctx context.Context) error {
	now := s.now().UTC()
	master, ok, err := s.masterRepo.ClaimStale(ctx, now.Add(-s.staleness), now)
	if err != nil {
		s.stats.RecordFailure(masterPollJob)
		return fmt.Errorf("claim stale master: %w", err)
	}
	if !ok {
		return nil
	}

	addr := master.Addr()
	s.transport.Clear(addr)
	s.transport.Send(addr, protocol.ListRequest())

	s.completions.Add(1)
	go func() {
		defer s.completions.Done()

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

		if err := s.complete(completeCtx, master); err != nil {
			s.stats.RecordFailure(masterPollJob)
			s.logger.ErrorContext(completeCtx, "complete master poll",
				"master", addr, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight deferred completion has finished.
func (s *MasterPollService) Wait() {
	s.completions.Wait()
}

func (s *MasterPollService) complete(ctx context.Context, master server.MasterServer) error {
	start := s.now()
	addr := master.Addr()
	buffers := s.transport.Collect(addr)
	defer s.transport.Clear(addr)

	endpoints := make([]server.Endpoint, 0, 64)
	decoded := 0
	for _, buf := range buffers {
		records, err := protocol.DecodeMasterList(buf)
		if err != nil {
			s.logger.WarnContext(ctx, "decode master list buffer",
				"master", addr, "error", err)
			continue
		}
		decoded++
		for _, record := range records {
			endpoints = append(endpoints, server.Endpoint{
				Address: record.Address,
				Port:    record.Port,
			})
		}
	}

	if decoded > 0 {
		if err := s.gameRepo.ReplaceForMaster(ctx, master.ID, dedupeEndpoints(endpoints)); err != nil {
			return err
		}
	} else if len(buffers) > 0 {
		s.logger.WarnContext(ctx, "master replied but nothing decoded",
			"master", addr, "buffers", len(buffers))
	}

	if err := s.masterRepo.CompletePoll(ctx, master.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("complete master poll: %w", err)
	}

	s.stats.RecordRun(masterPollJob, len(endpoints), s.now().Sub(start))
	s.logger.InfoContext(ctx, "master poll complete",
		"master", addr, "servers", len(endpoints), "buffers", len(buffers))
	return nil
}

// dedupeEndpoints drops repeated address:port pairs; masters are allowed
// to list a server twice across reply packets.
func dedupeEndpoints(endpoints []server.Endpoint) []server.Endpoint {
	seen := make(map[string]struct{}, len(endpoints))
	out := make([]server.Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		key := net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
