// Package assessments provides the assessment scoring bounded context
// module. This file defines the module that encapsulates all assessments
// setup and route registration.
package assessments

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/handler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/repository"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	apphttp "github.com/skyeadmin82/strata-guard-stack-sub003/internal/http"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/validator"
)

// Module is the assessments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the assessments module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, locker *lock.Locker, eventBus events.Bus, val *validator.Validator, jobs handler.GenerationEnqueuer, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, locker, eventBus, log)

	return &Module{
		handler: handler.New(svc, val, jobs),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assessments"
}

// Service returns the assessments service for the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts assessment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
