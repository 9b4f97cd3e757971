// Package clients provides the client management bounded context module.
package clients

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/handler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/repository"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/service"
	apphttp "github.com/skyeadmin82/strata-guard-stack-sub003/internal/http"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/validator"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the client service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/clients")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
