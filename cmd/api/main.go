package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/redemption-queue/internal/api/http"
	"github.com/spec-kit/redemption-queue/internal/api/http/handlers"
	"github.com/spec-kit/redemption-queue/internal/auth"
	"github.com/spec-kit/redemption-queue/internal/cache"
	"github.com/spec-kit/redemption-queue/internal/config"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/notify"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/persistence"
	"github.com/spec-kit/redemption-queue/internal/repository"
	"github.com/spec-kit/redemption-queue/internal/service"
	"github.com/spec-kit/redemption-queue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		ticketRepo     repository.TicketRepository
		redemptionRepo repository.RedemptionRepository
		historyRepo    repository.TicketHistoryRepository
	)
	if pg.Enabled() {
		pool := pg.PoolHandle()
		ticketRepo = repository.NewTicketRepository(pool)
		redemptionRepo = repository.NewRedemptionRepository(pool)
		historyRepo = repository.NewTicketHistoryRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		redemptionRepo = repository.NewMemoryRedemptionRepository()
		historyRepo = repository.NewMemoryTicketHistoryRepository()
	}

	var (
		snapshots service.SnapshotStore
		redisDep  handlers.Pinger
	)
	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if err := redis.Ping(ctx); err == nil {
		snapshots = cache.NewRedisSnapshotCache(redis.Client, cfg.Redis.SnapshotPrefix, cfg.Redis.SnapshotTTL)
		redisDep = redis
	} else {
		logger.Warn("redis unavailable; keeping queue snapshots in memory", zap.Error(err))
		snapshots = cache.NewMemorySnapshotCache(cfg.Redis.SnapshotTTL)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)

	var notifier service.Notifier
	if cfg.Notification.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(cfg.Notification.AMQPURL, cfg.Notification.QueueName)
	}
	worker.StartNotificationWorker(ctx, service.NewNotificationService(dispatcher, notifier, logger))

	queueService := service.NewQueueService(service.QueueDependencies{
		TicketRepo:     ticketRepo,
		RedemptionRepo: redemptionRepo,
		HistoryRepo:    historyRepo,
		Snapshots:      snapshots,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		Config:         cfg.Queue,
	})
	worker.NewQueueDisplayWorker(ticketRepo, snapshots, cfg.Queue.DisplayPollInterval, logger, metrics).Start(ctx)

	authService := service.NewAuthService(cfg.Auth, logger)
	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("AUTH_ADMIN_PASSWORD_HASH not set; admin login disabled")
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var pgDep handlers.Pinger
	if pg.Enabled() {
		pgDep = pg
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pgDep, redisDep, metrics),
		Queue:          handlers.NewQueueHandler(queueService),
		Admin:          handlers.NewAdminTicketsHandler(queueService, cfg.Queue.AdminRefreshInterval),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
