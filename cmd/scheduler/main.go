package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/events"
	followuprepo "crm_backend/internal/followups/repository"
	"crm_backend/internal/notification"
	"crm_backend/internal/notification/amqp"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
	"crm_backend/platform/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var publisher notification.Publisher
	if cfg.IsBrokerEnabled() {
		p, err := amqp.Dial(cfg.GetAMQPURL(), cfg.GetAMQPExchange())
		if err != nil {
			log.Error("failed to connect to broker; event relay disabled", "error", err)
		} else {
			defer func() { _ = p.Close() }()
			publisher = p
		}
	}
	notification.New(publisher, log).RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, followuprepo.New(pool), eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
