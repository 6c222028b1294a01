package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/agents"
	"crm_backend/internal/analytics"
	"crm_backend/internal/events"
	"crm_backend/internal/followups"
	followupservice "crm_backend/internal/followups/service"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/http/router"
	"crm_backend/internal/leads"
	"crm_backend/internal/notification"
	"crm_backend/internal/notification/amqp"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/retry"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := retry.Do(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := retry.Do(ctx, log, "database connection", 5, 2*time.Second, func() error {
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

	locker, closeLocker, err := lock.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize lead locker", "error", err)
		panic("failed to initialize lead locker: " + err.Error())
	}
	defer func() { _ = closeLocker() }()

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	publisher, closePublisher := initEventPublisher(ctx, cfg, log)
	if closePublisher != nil {
		defer closePublisher()
	}
	// Drain async handlers before the relay and the pool go away.
	defer eventBus.Wait()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.New(publisher, log).RegisterHandlers(eventBus)

	agentsModule := agents.NewModule(pool, eventBus, val, cfg, log)
	leadsModule := leads.NewModule(pool, eventBus, locker, val, cfg, log)
	followUpsModule := followups.NewModule(pool, eventBus, reminderScheduler, val, log)
	analyticsModule := analytics.NewModule(pool, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			agentsModule,
			leadsModule,
			followUpsModule,
			analyticsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (followupservice.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func initEventPublisher(ctx context.Context, cfg config.BrokerConfig, log *logger.Logger) (notification.Publisher, func()) {
	if !cfg.IsBrokerEnabled() {
		log.Info("AMQP_URL not configured; domain events stay in process")
		return nil, nil
	}

	var publisher *amqp.Publisher
	if err := retry.Do(ctx, log, "broker connection", 3, time.Second, func() error {
		p, err := amqp.Dial(cfg.GetAMQPURL(), cfg.GetAMQPExchange())
		if err != nil {
			return err
		}
		publisher = p
		return nil
	}); err != nil {
		log.Error("failed to connect to broker; event relay disabled", "error", err)
		return nil, nil
	}

	log.Info("event relay enabled", "exchange", cfg.GetAMQPExchange())
	return publisher, func() {
		_ = publisher.Close()
	}
}
