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

	httptransport "github.com/intranet-hub/portal-service/internal/api/http"
	"github.com/intranet-hub/portal-service/internal/api/http/handlers"
	"github.com/intranet-hub/portal-service/internal/auth"
	"github.com/intranet-hub/portal-service/internal/config"
	"github.com/intranet-hub/portal-service/internal/events"
	"github.com/intranet-hub/portal-service/internal/observability"
	"github.com/intranet-hub/portal-service/internal/persistence"
	"github.com/intranet-hub/portal-service/internal/repository"
	"github.com/intranet-hub/portal-service/internal/service"
	"github.com/intranet-hub/portal-service/internal/sla"
	"github.com/intranet-hub/portal-service/internal/webhook"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	loc, err := time.LoadLocation(cfg.BusinessHours.Timezone)
	if err != nil {
		logger.Fatal("invalid business hours timezone", zap.Error(err))
	}
	calendar, err := sla.NewCalendar(
		cfg.BusinessHours.StartHour*60,
		cfg.BusinessHours.EndHour*60,
		cfg.BusinessHours.Workdays,
		loc,
	)
	if err != nil {
		logger.Fatal("invalid business calendar", zap.Error(err))
	}
	cycleManager := sla.NewCycleManager(calendar)

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	cycleRepo := repository.NewSLACycleRepository(pool)
	eventRepo := repository.NewTicketEventRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	sectorRepo := repository.NewSectorRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	roleRepo := repository.NewRoleAssignmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	unitOfWork := repository.NewUnitOfWork(pool)

	dispatcher := events.NewInMemoryDispatcher()
	emitter := webhook.NewEmitter(settingsRepo, cfg.Webhook.Timeout(), cfg.Webhook.RetryBackoff(), logger, metrics)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		TicketRepo:       ticketRepo,
		RoleRepo:         roleRepo,
		SettingsRepo:     settingsRepo,
		Emitter:          emitter,
		Cache:            redis.Client,
		Logger:           logger,
	}, dispatcher)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CycleRepo:    cycleRepo,
		EventRepo:    eventRepo,
		CommentRepo:  commentRepo,
		CategoryRepo: categoryRepo,
		SectorRepo:   sectorRepo,
		PolicyRepo:   policyRepo,
		RoleRepo:     roleRepo,
		AuditRepo:    auditRepo,
		UnitOfWork:   unitOfWork,
		CycleManager: cycleManager,
		Dispatcher:   dispatcher,
		Notifier:     notificationService,
		Logger:       logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(userRepo, roleRepo, tokenManager, logger)
	reportService := service.NewReportService(reportRepo)
	settingsService := service.NewSettingsService(settingsRepo, policyRepo, auditRepo, logger)

	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo, roleRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reports:        handlers.NewReportsHandler(reportService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	emitter.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
