package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/internal/auth"
	"prodline_backend/internal/auth/adapter"
	"prodline_backend/internal/dashboard"
	"prodline_backend/internal/events"
	"prodline_backend/internal/exports"
	apphttp "prodline_backend/internal/http"
	"prodline_backend/internal/http/router"
	"prodline_backend/internal/notification"
	"prodline_backend/internal/orders"
	"prodline_backend/internal/scheduler"
	"prodline_backend/platform/config"
	"prodline_backend/platform/db"
	"prodline_backend/platform/logger"
	"prodline_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module fans transitions out to SSE viewers; with Redis
	// configured it bridges across API instances.
	notificationModule := notification.New(cfg.RedisURL, cfg.BroadcastChannel, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	authModule := auth.NewModule(pool, cfg, val, log)

	// Orders resolve assignee references through the auth module, behind
	// the module's own UserDirectory port.
	userDirectory := adapter.NewUserDirectory(authModule.Service())
	ordersModule := orders.NewModule(pool, userDirectory, val, eventBus, log)

	dashboardModule := dashboard.NewModule(pool, log)
	exportsModule := exports.NewModule(ordersModule.Repository(), log)

	// Admins can trigger a stalled-order scan on demand when Redis is up.
	var schedulerClient *scheduler.Client
	if cfg.RedisURL != "" {
		sc, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Warn("scheduler client disabled", "error", err)
		} else {
			schedulerClient = sc
			defer schedulerClient.Close()
		}
	}
	schedulerModule := scheduler.NewModule(schedulerClient, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			ordersModule,
			dashboardModule,
			exportsModule,
			schedulerModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
