package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/email"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	apphttp "github.com/skyeadmin82/strata-guard-stack-sub003/internal/http"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/http/router"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/notification"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/scheduler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/db"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/validator"
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

	locker, err := lock.NewFromURL(cfg.GetRedisURL(), 30*time.Second)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	var sender email.Sender = &email.NoopSender{Log: log}
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Task client so handlers can push heavy work to the worker process
	jobs, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer jobs.Close()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	distributionModule := distribution.NewModule(pool, locker, eventBus, jobs, cfg, log)
	assessmentsModule := assessments.NewModule(pool, locker, eventBus, val, jobs, log)
	clientsModule := clients.NewModule(pool, val, log)
	notification.NewModule(eventBus, sender, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			distributionModule,
			assessmentsModule,
			clientsModule,
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
