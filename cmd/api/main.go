package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/one-system/case-service/internal/api/http"
	"github.com/one-system/case-service/internal/api/http/handlers"
	"github.com/one-system/case-service/internal/auth"
	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/ingest"
	"github.com/one-system/case-service/internal/observability"
	"github.com/one-system/case-service/internal/persistence"
	"github.com/one-system/case-service/internal/repository"
	"github.com/one-system/case-service/internal/service"
	"github.com/one-system/case-service/internal/worker"
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

	mappings, err := ingest.LoadMappingConfig(cfg.Ingest.MappingPath)
	if err != nil {
		logger.Fatal("failed to load source mappings", zap.Error(err))
	}

	pool := pg.PoolHandle()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	caseRepo := repository.NewCaseRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	sequenceRepo := repository.NewSequenceRepository(pool)
	slaRepo := repository.NewSLARepository(pool)
	referenceRepo := repository.NewReferenceRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	summaryRepo := repository.NewSummaryRepository(pool)
	txManager := repository.NewTxManager(pool)

	sequenceService := service.NewSequenceService(sequenceRepo, cfg.Case)
	slaService := service.NewSLAService(service.SLADependencies{
		ConfigRepo: slaRepo,
		CaseRepo:   caseRepo,
		Redis:      redis.Client,
		CacheTTL:   cfg.Scheduler.SLAConfigCacheTTL(),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	transitionService := service.NewTransitionService(service.TransitionDependencies{
		TxManager:     txManager,
		CaseRepo:      caseRepo,
		ReferenceRepo: referenceRepo,
		SLAService:    slaService,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})
	caseService := service.NewCaseService(service.CaseDependencies{
		TxManager:     txManager,
		CaseRepo:      caseRepo,
		HistoryRepo:   historyRepo,
		ReferenceRepo: referenceRepo,
		Allocator:     sequenceService,
		SLAService:    slaService,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})
	summaryService := service.NewSummaryService(summaryRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redis.Client, cfg.Notification, logger)
	notificationService.Register(dispatcher)

	pipeline := ingest.NewPipeline(ingest.PipelineDependencies{
		Mappings:      mappings,
		CaseRepo:      caseRepo,
		ReferenceRepo: referenceRepo,
		Allocator:     sequenceService,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		EraYearOffset: cfg.Case.EraYearOffset,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	scheduler := worker.NewScheduler(cfg.Scheduler, slaService, summaryService, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Cases:          handlers.NewCasesHandler(caseService, transitionService),
		Ingest:         handlers.NewIngestHandler(pipeline),
		SLA:            handlers.NewSLAHandler(slaService),
		Summary:        handlers.NewSummaryHandler(summaryService),
		AuthMiddleware: authMiddleware,
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
