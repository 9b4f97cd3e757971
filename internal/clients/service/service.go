// Package service implements client management.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/phone"
)

// Repository is the persistence surface this service needs.
type Repository interface {
	Create(ctx context.Context, c domain.Client) (domain.Client, error)
	GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (domain.Client, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]domain.Client, error)
}

type Service struct {
	repo Repository
	log  *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateParams are the fields accepted when onboarding a client.
type CreateParams struct {
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Industry    string
	CompanySize string
	Territory   string
	ValueTier   domain.ValueTier
}

// Create onboards a client, normalizing the phone number to E.164.
func (s *Service) Create(ctx context.Context, tc tenant.Context, p CreateParams) (domain.Client, error) {
	tier := p.ValueTier
	if tier == "" {
		tier = domain.TierStandard
	}

	c := domain.Client{
		TenantID:    tc.TenantID,
		CompanyName: p.CompanyName,
		ContactName: p.ContactName,
		Email:       p.Email,
		Phone:       phone.NormalizeE164(p.Phone),
		Industry:    p.Industry,
		CompanySize: p.CompanySize,
		Territory:   p.Territory,
		ValueTier:   tier,
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return domain.Client{}, err
	}
	s.log.Info("client created", "client_id", created.ID, "tenant_id", tc.TenantID)
	return created, nil
}

// GetByID fetches one client.
func (s *Service) GetByID(ctx context.Context, tc tenant.Context, clientID uuid.UUID) (domain.Client, error) {
	return s.repo.GetByID(ctx, tc.TenantID, clientID)
}

// List returns the tenant's clients.
func (s *Service) List(ctx context.Context, tc tenant.Context) ([]domain.Client, error) {
	return s.repo.List(ctx, tc.TenantID)
}
