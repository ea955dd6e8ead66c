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

	httptransport "github.com/spec-kit/compliance-portal/internal/api/http"
	"github.com/spec-kit/compliance-portal/internal/api/http/handlers"
	"github.com/spec-kit/compliance-portal/internal/auth"
	"github.com/spec-kit/compliance-portal/internal/config"
	"github.com/spec-kit/compliance-portal/internal/events"
	"github.com/spec-kit/compliance-portal/internal/observability"
	"github.com/spec-kit/compliance-portal/internal/persistence"
	"github.com/spec-kit/compliance-portal/internal/repository"
	"github.com/spec-kit/compliance-portal/internal/service"
	"github.com/spec-kit/compliance-portal/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.UsingFallbackJWTSecret {
		logger.Warn("JWT_SECRET not set; using development fallback secret")
	}

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	readiness := map[string]handlers.Pinger{"postgres": pg}

	var revocationStore auth.RevocationStore
	switch cfg.Auth.RevocationBackend {
	case config.RevocationRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		revocationStore = auth.NewRedisRevocationStore(redis.Client, cfg.Auth.RevocationRedisPrefix)
		readiness["redis"] = redis
	default:
		logger.Info("using in-process token revocation set")
		revocationStore = auth.NewMemoryRevocationStore()
	}
	revocations := auth.NewRevocationManager(revocationStore, logger, metrics)

	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	stateRepo := repository.NewStateRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	resetTokens := auth.NewTokenManager(cfg.Auth.ResetSecret, cfg.Auth.ResetTTL())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		DepartmentRepo:    departmentRepo,
		Tokens:            tokens,
		ResetTokens:       resetTokens,
		Revocations:       revocations,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Metrics:           metrics,
	})
	complianceService := service.NewComplianceService(service.ComplianceDependencies{
		RuleRepo:     ruleRepo,
		TemplateRepo: templateRepo,
		AlertRepo:    alertRepo,
		StateRepo:    stateRepo,
		StatsRepo:    statsRepo,
		Logger:       logger,
	})
	chatService := service.NewChatService(chatRepo, ruleRepo, templateRepo, logger)

	exposeStack := !cfg.App.IsProduction()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics, exposeStack),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		ExposeStack:    exposeStack,
		RateLimit:      cfg.RateLimit,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(authService),
		Compliance:     handlers.NewComplianceHandler(complianceService),
		Chat:           handlers.NewChatHandler(chatService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, revocations, userRepo, logger, metrics),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
