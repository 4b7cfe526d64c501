// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"licentra-service/internal/cache"
	"licentra-service/internal/config"
	"licentra-service/internal/db"
	"licentra-service/internal/repository/postgres"
	brokersvc "licentra-service/internal/service/broker"
	"licentra-service/internal/service/email"
	licensesvc "licentra-service/internal/service/license"
	"licentra-service/internal/service/notification"
	"licentra-service/internal/service/pricing"
	promosvc "licentra-service/internal/service/promotion"
	"licentra-service/internal/service/schedule"
	"licentra-service/internal/service/settlement"
	subsvc "licentra-service/internal/service/subscription"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds everything a running instance owns.
type App struct {
	cfg    config.AppConfig
	logger *zap.Logger

	pool  *pgxpool.Pool
	redis *redis.Client

	server *http.Server
	runner *schedule.Runner
}

// New wires the repositories, services, and HTTP surface together.
func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	if err != nil {
		logger.Warn("redis unavailable, license cache disabled", zap.Error(err))
		redisClient = nil
	}

	licenseRepo := postgres.NewLicenseRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	promotionRepo := postgres.NewPromotionRepository(pool)
	brokerRepo := postgres.NewBrokerRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	var licenseCache licensesvc.Cache
	if redisClient != nil {
		licenseCache = cache.NewLicenseCache(redisClient, 0)
	}

	licenseService := licensesvc.NewLicenseService(licenseRepo, licenseCache, cfg.Engine, logger)
	brokerService := brokersvc.NewBrokerService(brokerRepo, userRepo, cfg.Engine, logger)
	promotionService := promosvc.NewPromotionService(promotionRepo, logger)
	calculator := pricing.NewCalculator(brokerRepo, promotionRepo, cfg.Engine)
	lifecycleService := subsvc.NewLifecycleService(subscriptionRepo, licenseRepo, userRepo, cfg.Engine, logger)
	settlementService := settlement.NewSettlementService(
		transactionRepo, licenseService, lifecycleService, calculator,
		userRepo, promotionRepo, logger,
	)

	smtpPort, _ := strconv.Atoi(cfg.SMTPPort)
	mailer := email.NewEmailService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     smtpPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     fmt.Sprintf("%s <%s>", cfg.SMTPFromName, cfg.SMTPUser),
	}, logger)

	notifier := notification.NewNotificationService(
		subscriptionRepo, userRepo, mailer, cfg.Engine, cfg.ExpiryReminderDays, logger,
	)
	runner := schedule.NewRunner(lifecycleService, notifier, cfg.SweepInterval, logger)

	router := NewRouter(RouterDeps{
		Logger:     logger,
		Licenses:   licenseService,
		Lifecycle:  lifecycleService,
		Settlement: settlementService,
		Brokers:    brokerService,
		Promotions: promotionService,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		server: server,
		runner: runner,
	}, nil
}

// Run starts the schedule runner and serves HTTP until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	go a.runner.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	a.Close()
	return nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
