package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Real-Dev-Squad/website-backend/config"
	"github.com/Real-Dev-Squad/website-backend/internal/api"
	"github.com/Real-Dev-Squad/website-backend/internal/discord"
	"github.com/Real-Dev-Squad/website-backend/internal/github"
	"github.com/Real-Dev-Squad/website-backend/internal/health"
	"github.com/Real-Dev-Squad/website-backend/internal/logging"
	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/seed"
	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/storage/postgres"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
)

const inviteCleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ReadServerConfig()
	if err != nil {
		panic(err)
	}

	var logFormat logging.LogFormat
	if err := logFormat.UnmarshalText([]byte(cfg.LogFormat)); err != nil {
		panic(err)
	}
	logger := logging.NewLogger(logFormat)

	db, err := postgres.NewPostgresBackend(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	redisStorage, err := storage.NewRedisStorage(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer func() {
		if err := redisStorage.Close(); err != nil {
			logger.Errorf("fail to close redis storage: %v", err)
		}
	}()

	redisConnOpt, err := tasks.RedisClientOpt(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to build redis options: %v", err)
	}
	client := asynq.NewClient(redisConnOpt)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Errorf("fail to close asynq client: %v", err)
		}
	}()
	inspector := asynq.NewInspector(redisConnOpt)

	if cfg.SeedFile != "" {
		data, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			logger.Fatalf("Failed to load seed file: %v", err)
		}
		if err := data.Apply(ctx, db, logger); err != nil {
			logger.Fatalf("Failed to seed database: %v", err)
		}
	}

	var (
		httpMetrics    *metrics.HTTPMetrics
		flagMetrics    *metrics.FlagMetrics
		tradingMetrics *metrics.TradingMetrics
		registry       = prometheus.NewRegistry()
	)
	if cfg.Metrics.Enabled {
		metrics.RegisterMetrics([]string{
			metrics.ServiceHTTP,
			metrics.ServiceFlags,
			metrics.ServiceTrading,
		}, registry, logger)
		httpMetrics = metrics.NewHTTPMetrics()
		flagMetrics = metrics.NewFlagMetrics()
		tradingMetrics = metrics.NewTradingMetrics()
	}

	flagService, err := service.NewFeatureFlagService(
		db,
		storage.NewFlagCache(cfg.Cache.FlagTTL, cfg.Cache.CleanupInterval),
		flagMetrics,
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to initialize feature flag service: %v", err)
	}

	authService := service.NewAuthService(
		cfg.Server.JWTSecret,
		cfg.Server.SessionTTL,
		cfg.Server.RefreshWindow,
		db,
		github.NewClient(cfg.Github),
		logger,
	)

	deps := api.Dependencies{
		DB:      db,
		Auth:    authService,
		Users:   service.NewUserService(db, logger),
		Flags:   flagService,
		Trading: service.NewTradingService(db, tradingMetrics, logger),
		Skills:  service.NewSkillService(db, logger),
		Devices: service.NewDeviceService(redisStorage, db, authService, logger),
		Tasks:   inspector,
	}

	bot, err := discord.NewClient(cfg.Discord, logger)
	switch {
	case errors.Is(err, discord.ErrNotConfigured):
		logger.Warn("discord bot is not configured, discord routes are disabled")
	case err != nil:
		logger.Fatalf("Failed to initialize discord client: %v", err)
	default:
		deps.Discord = service.NewDiscordService(db, redisStorage, bot, client, cfg.Discord.InviteChannelID, logger)

		cleanup := service.NewCleanupService(db, logger)
		cleanup.Start(ctx, inviteCleanupInterval)
		defer cleanup.Stop()
	}

	if cfg.AWS.IdentityStoreID != "" {
		ids, err := service.NewIdentityStoreClient(cfg.AWS)
		if err != nil {
			logger.Fatalf("Failed to initialize identity store client: %v", err)
		}
		deps.AWS = service.NewAWSAccessService(db, ids, cfg.AWS.IdentityStoreID, client, logger)
	} else {
		logger.Warn("aws identity store is not configured, aws routes are disabled")
	}

	server := api.NewServer(*cfg, deps, httpMetrics, logger)
	healthServer := health.New(cfg.HealthPort).
		WithCheck("postgres", db.Ping).
		WithCheck("redis", redisStorage.Ping)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
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
		logger.WithError(err).Error("server stopped with error")
		return
	}
	logger.Info("server stopped")
}
