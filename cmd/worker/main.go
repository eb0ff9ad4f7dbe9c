package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/teewatch/teewatch/internal/app"
	"github.com/teewatch/teewatch/internal/config"
	"github.com/teewatch/teewatch/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	worker, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("build worker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker starting",
		"master_poll_interval", cfg.MasterPollInterval.String(),
		"server_poll_interval", cfg.ServerPollInterval.String(),
		"claim_batch_size", cfg.ClaimBatchSize)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}
