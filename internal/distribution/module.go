// Package distribution provides the lead distribution bounded context module.
// This file defines the module that encapsulates all distribution setup and
// route registration.
package distribution

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/engine"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/handler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/repository"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	apphttp "github.com/skyeadmin82/strata-guard-stack-sub003/internal/http"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// Module is the distribution bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the distribution module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, locker *lock.Locker, eventBus events.Bus, jobs handler.SweepEnqueuer, cfg config.DistributionConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	eng := engine.New(engine.FirstActiveAgent{})
	svc := service.New(repo, eng, locker, eventBus, log, cfg.GetStaleLeadWindow())

	return &Module{
		handler: handler.New(svc, jobs),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "distribution"
}

// Service returns the distribution service for the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts distribution routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
