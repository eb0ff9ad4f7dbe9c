package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/teewatch/teewatch/internal/domain/rating"
	"github.com/teewatch/teewatch/internal/domain/snapshot"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

const ratingJob = "rank"

// RatingService claims snapshots awaiting ranking and applies the game
// type's rating strategy. A snapshot whose pair is rejected still gets
// its done marker; rejection is a final verdict, not a retry.
type RatingService struct {
	snapshotRepo snapshot.Repository
	ratingRepo   rating.Repository
	stats        *jobstats.Collector
	logger       *logging.Logger

	batchSize int
	now       func() time.Time
}

func NewRatingService(
	snapshotRepo snapshot.Repository,
	ratingRepo rating.Repository,
	stats *jobstats.Collector,
	logger *logging.Logger,
	batchSize int,
) *RatingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RatingService{
		snapshotRepo: snapshotRepo,
		ratingRepo:   ratingRepo,
		stats:        stats,
		logger:       logger,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

func (s *RatingService) Run(ctx context.Context) error {
	start := s.now()
	now := start.UTC()

	snaps, err := s.snapshotRepo.ClaimForRanking(ctx, now, s.batchSize)
	if err != nil {
		s.stats.RecordFailure(ratingJob)
		return fmt.Errorf("claim snapshots for ranking: %w", err)
	}

	processed := 0
	for _, snap := range snaps {
		if err := s.rankOne(ctx, snap); err != nil {
			s.stats.RecordFailure(ratingJob)
			s.logger.ErrorContext(ctx, "rank snapshot", "snapshot", snap.ID, "error", err)
			continue
		}
		processed++
	}

	s.stats.RecordRun(ratingJob, processed, s.now().Sub(start))
	return nil
}

func (s *RatingService) rankOne(ctx context.Context, snap snapshot.Snapshot) error {
	strategy, err := s.ratingRepo.StrategyFor(ctx, snap.GameTypeName)
	if err != nil {
		return fmt.Errorf("resolve rating strategy: %w", err)
	}

	switch strategy {
	case rating.StrategyElo:
		if err := s.rankElo(ctx, snap); err != nil {
			return err
		}
	case rating.StrategyBestTime:
		if err := s.rankBestTime(ctx, snap); err != nil {
			return err
		}
	case rating.StrategyNone:
	default:
		s.logger.WarnContext(ctx, "unknown rating strategy",
			"game_type", snap.GameTypeName, "strategy", string(strategy))
	}

	if err := s.snapshotRepo.MarkRanked(ctx, snap.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("mark snapshot ranked: %w", err)
	}
	return nil
}

func (s *RatingService) rankElo(ctx context.Context, snap snapshot.Snapshot) error {
	prev, ok, err := s.snapshotRepo.PreviousOf(ctx, snap)
	if err != nil {
		return fmt.Errorf("load previous snapshot: %w", err)
	}
	if !ok {
		return nil
	}

	scoreDeltas, ok := rating.ComparableScoreDeltas(prev, snap)
	if !ok {
		return nil
	}

	players := make([]string, 0, len(scoreDeltas))
	for name := range scoreDeltas {
		players = append(players, name)
	}

	// Map and game type scopes rate the same pair independently; each
	// reads its own current ratings before computing adjustments.
	mapRatings, err := s.ratingRepo.MapRatings(ctx, snap.MapName, players)
	if err != nil {
		return fmt.Errorf("load map ratings: %w", err)
	}
	if err := s.ratingRepo.ApplyMapDeltas(ctx, snap.MapName, rating.EloDeltas(mapRatings, scoreDeltas)); err != nil {
		return fmt.Errorf("apply map rating deltas: %w", err)
	}

	gameTypeRatings, err := s.ratingRepo.GameTypeRatings(ctx, snap.GameTypeName, players)
	if err != nil {
		return fmt.Errorf("load game type ratings: %w", err)
	}
	if err := s.ratingRepo.ApplyGameTypeDeltas(ctx, snap.GameTypeName, rating.EloDeltas(gameTypeRatings, scoreDeltas)); err != nil {
		return fmt.Errorf("apply game type rating deltas: %w", err)
	}
	return nil
}

func (s *RatingService) rankBestTime(ctx context.Context, snap snapshot.Snapshot) error {
	for _, c := range snap.DedupedClients() {
		candidate, ok := rating.BestTimeCandidate(c)
		if !ok {
			continue
		}
		if err := s.ratingRepo.ImproveMapRating(ctx, c.PlayerName, snap.MapName, candidate); err != nil {
			return fmt.Errorf("improve best time rating: %w", err)
		}
	}
	return nil
}
