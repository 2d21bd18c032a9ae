package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/db"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
	"github.com/launchkit/launchkit/internal/service"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Manager             *service.Manager
	PaymentService      *service.PaymentService
	SubscriptionService *service.SubscriptionService
	EmailService        *service.EmailService
	UserRepository      repository.UserRepository
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	accountRepository := repository.NewPaymentAccountRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)
	settingRepository := repository.NewSettingRepository(database)

	// Replay protection: a shared Redis store when configured, otherwise
	// per-process memory. Memory is fine for a single instance.
	var replay payment.ReplayStore
	if cfg.RedisAddr != "" {
		replay = payment.NewRedisReplayStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		slog.Info("webhook replay store", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		replay = payment.NewMemoryReplayStore()
		slog.Info("webhook replay store", "backend", "memory")
	}

	manager, err := service.NewManager(cfg, payment.Deps{
		Accounts: accountRepository,
		Replay:   replay,
	}, settingRepository)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment manager: %v", err)
	}

	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	subscriptionService := service.NewSubscriptionService(subscriptionRepository, accountRepository)
	paymentService := service.NewPaymentService(manager, subscriptionService, userRepository, emailService)

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Manager:             manager,
		PaymentService:      paymentService,
		SubscriptionService: subscriptionService,
		EmailService:        emailService,
		UserRepository:      userRepository,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
