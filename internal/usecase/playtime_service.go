package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/teewatch/teewatch/internal/domain/playtime"
	"github.com/teewatch/teewatch/internal/domain/snapshot"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

const playtimeJob = "playtime"

// PlaytimeService claims snapshots awaiting playtime accounting and
// credits the elapsed time since each one's predecessor to every scope
// the players touched.
type PlaytimeService struct {
	snapshotRepo snapshot.Repository
	playtimeRepo playtime.Repository
	stats        *jobstats.Collector
	logger       *logging.Logger

	batchSize int
	now       func() time.Time
}

func NewPlaytimeService(
	snapshotRepo snapshot.Repository,
	playtimeRepo playtime.Repository,
	stats *jobstats.Collector,
	logger *logging.Logger,
	batchSize int,
) *PlaytimeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlaytimeService{
		snapshotRepo: snapshotRepo,
		playtimeRepo: playtimeRepo,
		stats:        stats,
		logger:       logger,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

func (s *PlaytimeService) Run(ctx context.Context) error {
	start := s.now()
	now := start.UTC()

	snaps, err := s.snapshotRepo.ClaimForPlaytime(ctx, now, s.batchSize)
	if err != nil {
		s.stats.RecordFailure(playtimeJob)
		return fmt.Errorf("claim snapshots for playtime: %w", err)
	}

	processed := 0
	for _, snap := range snaps {
		if err := s.creditOne(ctx, snap); err != nil {
			s.stats.RecordFailure(playtimeJob)
			s.logger.ErrorContext(ctx, "credit playtime", "snapshot", snap.ID, "error", err)
			continue
		}
		processed++
	}

	s.stats.RecordRun(playtimeJob, processed, s.now().Sub(start))
	return nil
}

func (s *PlaytimeService) creditOne(ctx context.Context, snap snapshot.Snapshot) error {
	prev, ok, err := s.snapshotRepo.PreviousOf(ctx, snap)
	if err != nil {
		return fmt.Errorf("load previous snapshot: %w", err)
	}
	if ok {
		elapsed := playtime.ElapsedSeconds(snap.CreatedAt.Sub(prev.CreatedAt))
		if elapsed > 0 {
			if err := s.credit(ctx, snap, elapsed); err != nil {
				return err
			}
		}
	}

	if err := s.snapshotRepo.MarkPlayTimed(ctx, snap.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("mark snapshot play timed: %w", err)
	}
	return nil
}

func (s *PlaytimeService) credit(ctx context.Context, snap snapshot.Snapshot, elapsed int64) error {
	counted := 0
	for _, c := range snap.DedupedClients() {
		if c.PlayerName == snapshot.ConnectingName {
			continue
		}
		counted++

		if err := s.playtimeRepo.AddPlayerTime(ctx, c.PlayerName, elapsed); err != nil {
			return fmt.Errorf("add player time: %w", err)
		}
		if err := s.playtimeRepo.AddPlayerMapTime(ctx, c.PlayerName, snap.MapName, elapsed); err != nil {
			return fmt.Errorf("add player map time: %w", err)
		}
		if err := s.playtimeRepo.AddPlayerGameTypeTime(ctx, c.PlayerName, snap.GameTypeName, elapsed); err != nil {
			return fmt.Errorf("add player game type time: %w", err)
		}

		if c.ClanName == "" {
			continue
		}
		if err := s.playtimeRepo.AddClanTime(ctx, c.ClanName, elapsed); err != nil {
			return fmt.Errorf("add clan time: %w", err)
		}
		if err := s.playtimeRepo.AddClanMapTime(ctx, c.ClanName, snap.MapName, elapsed); err != nil {
			return fmt.Errorf("add clan map time: %w", err)
		}
		if err := s.playtimeRepo.AddClanGameTypeTime(ctx, c.ClanName, snap.GameTypeName, elapsed); err != nil {
			return fmt.Errorf("add clan game type time: %w", err)
		}
		if err := s.playtimeRepo.AddClanPlayerTime(ctx, c.ClanName, c.PlayerName, elapsed); err != nil {
			return fmt.Errorf("add clan player time: %w", err)
		}
		if err := s.playtimeRepo.ObserveClanMembership(ctx, c.PlayerName, c.ClanName, snap.CreatedAt); err != nil {
			return fmt.Errorf("observe clan membership: %w", err)
		}
	}

	if counted == 0 {
		return nil
	}
	total := elapsed * int64(counted)
	if err := s.playtimeRepo.AddMapTime(ctx, snap.MapName, total); err != nil {
		return fmt.Errorf("add map time: %w", err)
	}
	if err := s.playtimeRepo.AddGameTypeTime(ctx, snap.GameTypeName, total); err != nil {
		return fmt.Errorf("add game type time: %w", err)
	}
	return nil
}
