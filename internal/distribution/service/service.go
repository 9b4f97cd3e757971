// Package service orchestrates lead assignment: it loads the decision
// snapshot, runs the engine, persists the outcome and publishes events.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/engine"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/apperr"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// Repository is the persistence surface this service needs. Defined here,
// consumer-side, so tests can swap in fakes without touching pgx.
type Repository interface {
	GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (domain.Lead, error)
	ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.DistributionRule, error)
	ListActiveAgents(ctx context.Context, tenantID uuid.UUID) ([]domain.Agent, error)
	CountOpenLeadsByAgent(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error)
	LastAssignmentTimes(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]time.Time, error)
	UpdateLeadAssignment(ctx context.Context, tenantID, leadID, agentID uuid.UUID, at time.Time) error
	ListStaleLeads(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]domain.Lead, error)
	ListTenantsWithStaleLeads(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// Locker serializes concurrent assignment of the same lead.
type Locker interface {
	Acquire(ctx context.Context, key string) (*lock.Lease, error)
}

// AssignmentResult reports one assignment decision to callers.
type AssignmentResult struct {
	LeadID    uuid.UUID  `json:"leadId"`
	AgentID   *uuid.UUID `json:"agentId,omitempty"`
	AgentName string     `json:"agentName,omitempty"`
	RuleID    *uuid.UUID `json:"ruleId,omitempty"`
	RuleName  string     `json:"ruleName,omitempty"`
	Fallback  bool       `json:"fallback"`
	Pending   bool       `json:"pending"`
}

// SweepResult summarizes one stale-lead reassignment pass.
type SweepResult struct {
	Examined   int `json:"examined"`
	Reassigned int `json:"reassigned"`
}

type Service struct {
	repo        Repository
	engine      *engine.Engine
	locker      Locker
	bus         events.Bus
	log         *logger.Logger
	staleWindow time.Duration
}

func New(repo Repository, eng *engine.Engine, locker Locker, bus events.Bus, log *logger.Logger, staleWindow time.Duration) *Service {
	if staleWindow <= 0 {
		staleWindow = 7 * 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		engine:      eng,
		locker:      locker,
		bus:         bus,
		log:         log,
		staleWindow: staleWindow,
	}
}

// AssignLead routes one lead through the distribution rules. A per-lead lock
// closes the race between reading workloads and writing the assignment, so
// two concurrent calls cannot both hand the last capacity slot to the same
// agent.
func (s *Service) AssignLead(ctx context.Context, tc tenant.Context, leadID uuid.UUID) (AssignmentResult, error) {
	const op = "distribution.Service.AssignLead"

	lease, err := s.locker.Acquire(ctx, "distribution:assign:"+leadID.String())
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return AssignmentResult{}, apperr.Conflict("lead assignment already in progress").WithOp(op)
		}
		return AssignmentResult{}, apperr.Wrap(apperr.KindInternal, "failed to acquire assignment lock", err).WithOp(op)
	}
	defer lease.Release(context.WithoutCancel(ctx))

	lead, err := s.repo.GetLead(ctx, tc.TenantID, leadID)
	if err != nil {
		return AssignmentResult{}, err
	}

	snap, err := s.loadSnapshot(ctx, tc.TenantID)
	if err != nil {
		return AssignmentResult{}, err
	}

	decision := s.engine.Assign(lead, snap)
	return s.commit(ctx, tc, lead, decision)
}

// loadSnapshot fetches the four reference datasets concurrently. All reads
// happen before any write; the lock held by the caller keeps the snapshot
// honest for this lead.
func (s *Service) loadSnapshot(ctx context.Context, tenantID uuid.UUID) (engine.Snapshot, error) {
	var snap engine.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Rules, err = s.repo.ListActiveRules(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Agents, err = s.repo.ListActiveAgents(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Workloads, err = s.repo.CountOpenLeadsByAgent(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.LastAssignments, err = s.repo.LastAssignmentTimes(gctx, tenantID)
		return err
	})

	if err := g.Wait(); err != nil {
		return engine.Snapshot{}, err
	}
	return snap, nil
}

// commit persists a decision and publishes the assignment event. A decision
// with no agent is not an error; the lead stays pending.
func (s *Service) commit(ctx context.Context, tc tenant.Context, lead domain.Lead, d engine.Decision) (AssignmentResult, error) {
	result := AssignmentResult{LeadID: lead.ID, Fallback: d.Fallback}
	if d.Agent == nil {
		result.Pending = true
		s.log.Warn("no agent available for lead",
			"lead_id", lead.ID, "tenant_id", tc.TenantID)
		return result, nil
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLeadAssignment(ctx, tc.TenantID, lead.ID, d.Agent.ID, now); err != nil {
		return AssignmentResult{}, err
	}

	result.AgentID = &d.Agent.ID
	result.AgentName = d.Agent.Name
	if d.Rule != nil {
		result.RuleID = &d.Rule.ID
		result.RuleName = d.Rule.RuleName
	}

	evt := events.LeadAssigned{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		TenantID:    tc.TenantID,
		AgentID:     d.Agent.ID,
		AgentName:   d.Agent.Name,
		AgentEmail:  d.Agent.Email,
		RuleID:      result.RuleID,
		RuleName:    result.RuleName,
		CompanyName: lead.CompanyName,
		Fallback:    d.Fallback,
	}
	s.bus.Publish(ctx, evt)

	s.log.Info("lead assigned",
		"lead_id", lead.ID,
		"agent_id", d.Agent.ID,
		"rule", result.RuleName,
		"fallback", d.Fallback)
	return result, nil
}

// ListRules exposes the tenant's active rules in evaluation order.
func (s *Service) ListRules(ctx context.Context, tc tenant.Context) ([]domain.DistributionRule, error) {
	return s.repo.ListActiveRules(ctx, tc.TenantID)
}

// ReassignStaleLeads re-runs distribution for every open lead whose
// assignment is older than the stale window. A lead is only touched when the
// engine picks a different agent; re-selecting the current owner leaves the
// row, and its assigned_at, alone.
func (s *Service) ReassignStaleLeads(ctx context.Context, tc tenant.Context) (SweepResult, error) {
	const op = "distribution.Service.ReassignStaleLeads"

	cutoff := time.Now().UTC().Add(-s.staleWindow)
	stale, err := s.repo.ListStaleLeads(ctx, tc.TenantID, cutoff)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Examined: len(stale)}
	if len(stale) == 0 {
		return result, nil
	}

	snap, err := s.loadSnapshot(ctx, tc.TenantID)
	if err != nil {
		return SweepResult{}, err
	}

	now := time.Now().UTC()
	for _, lead := range stale {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s: sweep interrupted: %w", op, err)
		}
		if !lead.Status.EligibleForSweep() {
			continue
		}

		d := s.engine.Assign(lead, snap)
		if d.Agent == nil || lead.AssignedAgentID == nil || d.Agent.ID == *lead.AssignedAgentID {
			continue
		}

		if err := s.repo.UpdateLeadAssignment(ctx, tc.TenantID, lead.ID, d.Agent.ID, now); err != nil {
			s.log.Error("failed to reassign stale lead", "lead_id", lead.ID, "error", err)
			continue
		}
		result.Reassigned++

		// Keep the in-memory snapshot coherent so later leads in this
		// sweep see the shifted workloads.
		snap.Workloads[*lead.AssignedAgentID]--
		snap.Workloads[d.Agent.ID]++
		snap.LastAssignments[d.Agent.ID] = now

		var staleSince time.Time
		if lead.AssignedAt != nil {
			staleSince = *lead.AssignedAt
		}
		s.bus.Publish(ctx, events.LeadReassigned{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			TenantID:      tc.TenantID,
			PreviousAgent: *lead.AssignedAgentID,
			NewAgent:      d.Agent.ID,
			StaleSince:    staleSince,
		})
	}

	s.log.Info("stale lead sweep complete",
		"tenant_id", tc.TenantID,
		"examined", result.Examined,
		"reassigned", result.Reassigned)
	return result, nil
}

// TenantsDueForSweep lists tenants holding at least one stale lead.
func (s *Service) TenantsDueForSweep(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := time.Now().UTC().Add(-s.staleWindow)
	return s.repo.ListTenantsWithStaleLeads(ctx, cutoff)
}
