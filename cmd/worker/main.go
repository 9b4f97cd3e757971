package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	assessmentrepo "github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/repository"
	assessmentsvc "github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/engine"
	distributionrepo "github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/repository"
	distributionsvc "github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/email"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/notification"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/scheduler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/db"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	locker, err := lock.NewFromURL(cfg.GetRedisURL(), 30*time.Second)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	var sender email.Sender = &email.NoopSender{Log: log}
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	}
	notification.NewModule(eventBus, sender, cfg, log)

	distributionService := distributionsvc.New(
		distributionrepo.New(pool),
		engine.New(engine.FirstActiveAgent{}),
		locker,
		eventBus,
		log,
		cfg.GetStaleLeadWindow(),
	)
	assessmentService := assessmentsvc.New(assessmentrepo.New(pool), locker, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, distributionService, assessmentService, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening", "queue", cfg.GetAsynqQueueName(), "stale_cron", cfg.GetStaleLeadCron())
	worker.Run(ctx)
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
	return fmt.Errorf("%s: %w", name, lastErr)
}
