package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/teewatch/teewatch/internal/domain/server"
	"github.com/teewatch/teewatch/internal/domain/snapshot"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

const reaperJob = "reaper"

// ReaperService clears leases held longer than the lease timeout so work
// abandoned by a crashed worker becomes claimable again.
type ReaperService struct {
	masterRepo   server.MasterRepository
	gameRepo     server.GameRepository
	snapshotRepo snapshot.Repository
	stats        *jobstats.Collector
	logger       *logging.Logger

	leaseTimeout time.Duration
	now          func() time.Time
}

func NewReaperService(
	masterRepo server.MasterRepository,
	gameRepo server.GameRepository,
	snapshotRepo snapshot.Repository,
	stats *jobstats.Collector,
	logger *logging.Logger,
	leaseTimeout time.Duration,
) *ReaperService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReaperService{
		masterRepo:   masterRepo,
		gameRepo:     gameRepo,
		snapshotRepo: snapshotRepo,
		stats:        stats,
		logger:       logger,
		leaseTimeout: leaseTimeout,
		now:          time.Now,
	}
}

func (s *ReaperService) Run(ctx context.Context) error {
	start := s.now()
	heldBefore := start.UTC().Add(-s.leaseTimeout)

	masters, err := s.masterRepo.ReleaseStuck(ctx, heldBefore)
	if err != nil {
		s.stats.RecordFailure(reaperJob)
		return fmt.Errorf("release stuck master polls: %w", err)
	}
	games, err := s.gameRepo.ReleaseStuck(ctx, heldBefore)
	if err != nil {
		s.stats.RecordFailure(reaperJob)
		return fmt.Errorf("release stuck game polls: %w", err)
	}
	rankings, err := s.snapshotRepo.ReleaseStuckRanking(ctx, heldBefore)
	if err != nil {
		s.stats.RecordFailure(reaperJob)
		return fmt.Errorf("release stuck rankings: %w", err)
	}
	playtimes, err := s.snapshotRepo.ReleaseStuckPlaytime(ctx, heldBefore)
	if err != nil {
		s.stats.RecordFailure(reaperJob)
		return fmt.Errorf("release stuck playtime passes: %w", err)
	}

	total := masters + games + rankings + playtimes
	if total > 0 {
		s.logger.InfoContext(ctx, "released stuck leases",
			"masters", masters, "game_servers", games,
			"rankings", rankings, "playtimes", playtimes)
	}

	s.stats.RecordRun(reaperJob, int(total), s.now().Sub(start))
	return nil
}
