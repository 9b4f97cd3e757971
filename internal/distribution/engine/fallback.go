package engine

import "github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"

// FallbackStrategy decides who receives a lead when no distribution rule
// produced an agent. Implementations receive the full roster, not a
// capacity-filtered pool: the fallback is a last resort and deliberately
// ignores workload caps.
type FallbackStrategy interface {
	Select(lead domain.Lead, agents []domain.Agent) *domain.Agent
}

// FirstActiveAgent assigns to the first active agent in roster order.
// Simple and predictable; swap in a smarter strategy per deployment if
// roster order proves too arbitrary.
type FirstActiveAgent struct{}

func (FirstActiveAgent) Select(_ domain.Lead, agents []domain.Agent) *domain.Agent {
	for i := range agents {
		if agents[i].IsActive() {
			return &agents[i]
		}
	}
	return nil
}

// NoFallback leaves the lead unassigned when no rule matches. Useful for
// tenants that prefer a manual triage queue over arbitrary assignment.
type NoFallback struct{}

func (NoFallback) Select(domain.Lead, []domain.Agent) *domain.Agent { return nil }
