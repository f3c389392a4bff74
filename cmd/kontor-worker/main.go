package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kontor/internal/cache"
	"kontor/internal/cli"
	"kontor/internal/log"
	"kontor/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting kontor-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reports := cli.NewReportService(logger, cfg, repo)

	caches := cache.NewManager()
	if c := reports.Cache(); c != nil {
		caches.Register(c)
	}
	caches.StartCleanup(cfg.CacheCleanupInterval)

	// Without a broker the worker still recalculates on schedule, it just
	// has nobody to tell.
	amqpClient := cli.InitAMQP(logger, cfg)
	var publisher worker.ResultPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	reportWorker := worker.NewReportWorker(reports, publisher, logger)

	scheduler, err := worker.NewScheduler(cfg.RecalcSchedule, reportWorker.RunScheduled)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRecalculate(ctx, reportWorker.HandleRecalculate)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - messaging disabled")
	}

	logger.Info("Worker started",
		"schedule", cfg.RecalcSchedule,
		"next_run", scheduler.Next(),
		"messaging", amqpClient != nil)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
