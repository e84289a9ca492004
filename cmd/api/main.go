package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/field-service/internal/api/http"
	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/locks"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/persistence"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
	"github.com/spec-kit/field-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var rdb *persistence.Redis
	if cfg.Redis.Addr != "" {
		rdb = persistence.NewRedis(cfg.Redis, logger)
		defer rdb.Close()
	}

	var ticketRepo repository.TicketRepository
	var directory repository.TechnicianDirectory
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		directory = repository.NewTechnicianDirectory(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		directory = repository.NewMemoryTechnicianDirectory()
	}

	var locker locks.TicketLocker
	if cfg.Redis.UseLocks && rdb != nil && rdb.Client != nil {
		locker = locks.NewRedisTicketLocker(rdb.Client)
	} else {
		locker = locks.NewKeyedMutex()
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
			metrics.RecordTransition(string(payload.OldStatus), string(payload.NewStatus))
		}
		return nil
	})

	coordinator := service.NewAssignmentCoordinator(directory, cfg.Assignment.DirectoryTimeout())
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		Coordinator: coordinator,
		Locker:      locker,
		Dispatcher:  dispatcher,
	})

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Metrics:     handlers.NewMetricsHandler(metrics),
		Tickets:     handlers.NewTicketsHandler(lifecycle),
		Assignments: handlers.NewAssignmentsHandler(lifecycle, coordinator),
		Feedback:    handlers.NewFeedbackHandler(lifecycle),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
