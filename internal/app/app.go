// Package app wires configuration, storage, transport, and the job
// services into a runnable worker.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/teewatch/teewatch/internal/config"
	"github.com/teewatch/teewatch/internal/infrastructure/repository/postgres"
	"github.com/teewatch/teewatch/internal/interfaces/statusapi"
	"github.com/teewatch/teewatch/internal/platform/jobstats"
	"github.com/teewatch/teewatch/internal/platform/logging"
	"github.com/teewatch/teewatch/internal/transport"
	"github.com/teewatch/teewatch/internal/usecase"
)

// Worker bundles everything the process runs: the job loops, the UDP
// collector, the optional status listener, and the DB handle.
type Worker struct {
	cfg    config.Config
	logger *logging.Logger

	db        *sqlx.DB
	collector *transport.Collector
	runner    *usecase.Runner
	status    *statusapi.Server

	masterPoll *usecase.MasterPollService
	serverPoll *usecase.ServerPollService
	masterRepo *postgres.MasterServerRepository
}

func Build(cfg config.Config, logger *logging.Logger) (*Worker, error) {
	if logger == nil {
		logger = logging.Default()
	}

	dbURL := normalizeDBURL(cfg.DBURL, true)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	collector, err := transport.NewCollector(logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open udp collector: %w", err)
	}

	stats := jobstats.NewCollector()

	masterRepo := postgres.NewMasterServerRepository(db)
	gameRepo := postgres.NewGameServerRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)
	playtimeRepo := postgres.NewPlaytimeRepository(db)

	masterPoll := usecase.NewMasterPollService(masterRepo, gameRepo, collector,
		stats, logger, cfg.PollStaleness, cfg.UDPWaitWindow)
	serverPoll := usecase.NewServerPollService(gameRepo, snapshotRepo, catalogRepo,
		collector, stats, logger, cfg.PollStaleness, cfg.UDPWaitWindow, cfg.ClaimBatchSize)
	ranking := usecase.NewRatingService(snapshotRepo, ratingRepo, stats, logger, cfg.ClaimBatchSize)
	playtimes := usecase.NewPlaytimeService(snapshotRepo, playtimeRepo, stats, logger, cfg.ClaimBatchSize)
	reaper := usecase.NewReaperService(masterRepo, gameRepo, snapshotRepo, stats, logger, cfg.LeaseTimeout)

	runner := usecase.NewRunner(logger)
	runner.Register("master_poll", cfg.MasterPollInterval, masterPoll)
	runner.Register("server_poll", cfg.ServerPollInterval, serverPoll)
	runner.Register("rank", cfg.RankInterval, ranking)
	runner.Register("playtime", cfg.PlaytimeInterval, playtimes)
	runner.Register("reaper", cfg.ReaperInterval, reaper)

	w := &Worker{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		collector:  collector,
		runner:     runner,
		masterPoll: masterPoll,
		serverPoll: serverPoll,
		masterRepo: masterRepo,
	}
	if cfg.StatusAddr != "" {
		w.status = statusapi.NewServer(stats, logger)
	}
	return w, nil
}

// Run seeds the configured masters, starts the job loops, and blocks
// until ctx is cancelled. Cleanup waits for in-flight poll completions.
func (w *Worker) Run(ctx context.Context) error {
	for _, seed := range w.cfg.MasterServers {
		if err := w.masterRepo.Upsert(ctx, seed.Hostname, seed.Port); err != nil {
			return fmt.Errorf("seed master %s:%d: %w", seed.Hostname, seed.Port, err)
		}
	}

	if w.status != nil {
		go func() {
			w.logger.Info("status listener starting", "addr", w.cfg.StatusAddr)
			if err := w.status.ListenAndServe(w.cfg.StatusAddr); err != nil {
				w.logger.Error("status listener failed", "error", err)
			}
		}()
	}

	err := w.runner.Run(ctx)

	if w.status != nil {
		if shutdownErr := w.status.Shutdown(); shutdownErr != nil {
			w.logger.Warn("status listener shutdown", "error", shutdownErr)
		}
	}
	w.masterPoll.Wait()
	w.serverPoll.Wait()
	if closeErr := w.collector.Close(); closeErr != nil {
		w.logger.Warn("close udp collector", "error", closeErr)
	}
	if closeErr := w.db.Close(); closeErr != nil {
		w.logger.Warn("close database", "error", closeErr)
	}
	return err
}
