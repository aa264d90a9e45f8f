package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Real-Dev-Squad/website-backend/config"
	"github.com/Real-Dev-Squad/website-backend/internal/discord"
	"github.com/Real-Dev-Squad/website-backend/internal/health"
	"github.com/Real-Dev-Squad/website-backend/internal/logging"
	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/storage/postgres"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ReadWorkerConfig()
	if err != nil {
		panic(err)
	}

	var logFormat logging.LogFormat
	if err := logFormat.UnmarshalText([]byte(cfg.LogFormat)); err != nil {
		panic(err)
	}
	logger := logging.NewLogger(logFormat)

	redisConnOpt, err := tasks.RedisClientOpt(cfg.Redis)
	if err != nil {
		panic(fmt.Sprintf("failed to build redis options: %v", err))
	}
	client := asynq.NewClient(redisConnOpt)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Errorf("fail to close asynq client: %v", err)
		}
	}()

	backendDB, err := postgres.NewPostgresBackend(ctx, cfg.Database.DSN, logger)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize database: %v", err))
	}
	defer func() {
		_ = backendDB.Close()
	}()

	redisStorage, err := storage.NewRedisStorage(cfg.Redis)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize redis storage: %v", err))
	}

	var workerMetrics *metrics.WorkerMetrics
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		metrics.RegisterMetrics([]string{metrics.ServiceWorker}, registry, logger)
		workerMetrics = metrics.NewWorkerMetrics()
	}

	mux := asynq.NewServeMux()

	bot, err := discord.NewClient(cfg.Discord, logger)
	switch {
	case errors.Is(err, discord.ErrNotConfigured):
		logger.Warn("discord bot is not configured, nickname sync is disabled")
	case err != nil:
		panic(fmt.Sprintf("failed to initialize discord client: %v", err))
	default:
		discordService := service.NewDiscordService(backendDB, redisStorage, bot, client, cfg.Discord.InviteChannelID, logger)
		mux.HandleFunc(tasks.TypeNicknameSync,
			metrics.WithWorkerMetrics(discordService.HandleNicknameSync, tasks.TypeNicknameSync, workerMetrics))
	}

	if cfg.AWS.IdentityStoreID != "" {
		ids, err := service.NewIdentityStoreClient(cfg.AWS)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize identity store client: %v", err))
		}
		awsService := service.NewAWSAccessService(backendDB, ids, cfg.AWS.IdentityStoreID, client, logger)
		mux.HandleFunc(tasks.TypeAWSGroupAccess,
			metrics.WithWorkerMetrics(awsService.HandleGrantAccess, tasks.TypeAWSGroupAccess, workerMetrics))
	} else {
		logger.Warn("aws identity store is not configured, aws group access is disabled")
	}

	srv := asynq.NewServer(
		redisConnOpt,
		asynq.Config{
			Logger:      logger,
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				tasks.QUEUE_NAME: 10,
			},
		},
	)

	healthServer := health.New(cfg.HealthPort).
		WithCheck("postgres", backendDB.Ping).
		WithCheck("redis", redisStorage.Ping)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("could not run worker: %w", err)
		}
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})
	g.Go(func() error {
		return healthServer.Start(gctx, logger)
	})
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, logger, registry)
		g.Go(func() error {
			return metricsServer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("worker stopped with error")
		return
	}
	logger.Info("worker stopped")
}
