// Package repository provides PostgreSQL persistence for the distribution
// context. Every query is tenant-scoped; rule conditions and settings are
// stored as JSONB documents.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const openStatuses = `('new','contacted','qualified','proposal','negotiation')`

// Only leads that have not progressed past first contact are eligible for
// the stale sweep; a deal in proposal or negotiation stays with its agent.
const staleStatuses = `('new','contacted')`

// GetLead fetches a single lead scoped to the tenant.
func (r *Repository) GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (domain.Lead, error) {
	const op = "distribution.Repository.GetLead"
	const q = `
		SELECT id, tenant_id, company_name, source, industry, company_size,
		       territory, score, estimated_value, status, assigned_agent_id,
		       assigned_at, created_at
		FROM leads
		WHERE id = $1 AND tenant_id = $2`

	var l domain.Lead
	err := r.pool.QueryRow(ctx, q, leadID, tenantID).Scan(
		&l.ID, &l.TenantID, &l.CompanyName, &l.Source, &l.Industry,
		&l.CompanySize, &l.Territory, &l.Score, &l.EstimatedValue,
		&l.Status, &l.AssignedAgentID, &l.AssignedAt, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to fetch lead", err).WithOp(op)
	}
	return l, nil
}

// ListActiveRules returns the tenant's active distribution rules ordered by
// ascending priority, then creation order for equal priorities.
func (r *Repository) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.DistributionRule, error) {
	const op = "distribution.Repository.ListActiveRules"
	const q = `
		SELECT id, tenant_id, rule_name, rule_type, is_active, priority,
		       conditions, assignment_settings
		FROM distribution_rules
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY priority ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list distribution rules", err).WithOp(op)
	}
	defer rows.Close()

	var rules []domain.DistributionRule
	for rows.Next() {
		var (
			rule          domain.DistributionRule
			condRaw, setRaw []byte
		)
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.RuleName, &rule.RuleType,
			&rule.IsActive, &rule.Priority, &condRaw, &setRaw); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan distribution rule", err).WithOp(op)
		}
		if len(condRaw) > 0 {
			if err := json.Unmarshal(condRaw, &rule.Conditions); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("malformed conditions on rule %s", rule.ID), err).WithOp(op)
			}
		}
		if len(setRaw) > 0 {
			if err := json.Unmarshal(setRaw, &rule.Settings); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("malformed settings on rule %s", rule.ID), err).WithOp(op)
			}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListActiveAgents returns the tenant's active sales agents in a stable
// creation order, which the engine relies on for tie-breaking.
func (r *Repository) ListActiveAgents(ctx context.Context, tenantID uuid.UUID) ([]domain.Agent, error) {
	const op = "distribution.Repository.ListActiveAgents"
	const q = `
		SELECT id, tenant_id, name, email, tier, total_sales, deals_closed,
		       conversion_rate, territory, specializations, max_active_leads, status
		FROM sales_agents
		WHERE tenant_id = $1 AND status = 'active'
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list agents", err).WithOp(op)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Email, &a.Tier,
			&a.TotalSales, &a.DealsClosed, &a.ConversionRate, &a.Territory,
			&a.Specializations, &a.MaxActiveLeads, &a.Status); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan agent", err).WithOp(op)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// CountOpenLeadsByAgent returns the open-pipeline workload per agent.
// Agents with zero open leads are simply absent from the map.
func (r *Repository) CountOpenLeadsByAgent(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error) {
	const op = "distribution.Repository.CountOpenLeadsByAgent"
	const q = `
		SELECT assigned_agent_id, COUNT(*)
		FROM leads
		WHERE tenant_id = $1
		  AND assigned_agent_id IS NOT NULL
		  AND status IN ` + openStatuses + `
		GROUP BY assigned_agent_id`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count workloads", err).WithOp(op)
	}
	defer rows.Close()

	loads := make(map[uuid.UUID]int)
	for rows.Next() {
		var agentID uuid.UUID
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan workload row", err).WithOp(op)
		}
		loads[agentID] = n
	}
	return loads, rows.Err()
}

// LastAssignmentTimes returns the most recent assigned_at per agent, used by
// round-robin selection.
func (r *Repository) LastAssignmentTimes(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	const op = "distribution.Repository.LastAssignmentTimes"
	const q = `
		SELECT assigned_agent_id, MAX(assigned_at)
		FROM leads
		WHERE tenant_id = $1
		  AND assigned_agent_id IS NOT NULL
		  AND assigned_at IS NOT NULL
		GROUP BY assigned_agent_id`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch last assignments", err).WithOp(op)
	}
	defer rows.Close()

	last := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var agentID uuid.UUID
		var at time.Time
		if err := rows.Scan(&agentID, &at); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan last assignment", err).WithOp(op)
		}
		last[agentID] = at
	}
	return last, rows.Err()
}

// UpdateLeadAssignment records the assignment decision on the lead row.
func (r *Repository) UpdateLeadAssignment(ctx context.Context, tenantID, leadID, agentID uuid.UUID, at time.Time) error {
	const op = "distribution.Repository.UpdateLeadAssignment"
	const q = `
		UPDATE leads
		SET assigned_agent_id = $3, assigned_at = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, q, leadID, tenantID, agentID, at)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update lead assignment", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	return nil
}

// ListStaleLeads returns open leads whose assignment predates the cutoff.
// Unassigned leads are not stale; they are pending.
func (r *Repository) ListStaleLeads(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]domain.Lead, error) {
	const op = "distribution.Repository.ListStaleLeads"
	const q = `
		SELECT id, tenant_id, company_name, source, industry, company_size,
		       territory, score, estimated_value, status, assigned_agent_id,
		       assigned_at, created_at
		FROM leads
		WHERE tenant_id = $1
		  AND assigned_agent_id IS NOT NULL
		  AND assigned_at < $2
		  AND status IN ` + staleStatuses + `
		ORDER BY assigned_at ASC`

	rows, err := r.pool.Query(ctx, q, tenantID, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list stale leads", err).WithOp(op)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(&l.ID, &l.TenantID, &l.CompanyName, &l.Source,
			&l.Industry, &l.CompanySize, &l.Territory, &l.Score,
			&l.EstimatedValue, &l.Status, &l.AssignedAgentID,
			&l.AssignedAt, &l.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan stale lead", err).WithOp(op)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ListTenantsWithStaleLeads finds every tenant the stale sweep needs to
// visit, so the worker does not iterate tenants with nothing to do.
func (r *Repository) ListTenantsWithStaleLeads(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	const op = "distribution.Repository.ListTenantsWithStaleLeads"
	const q = `
		SELECT DISTINCT tenant_id
		FROM leads
		WHERE assigned_agent_id IS NOT NULL
		  AND assigned_at < $1
		  AND status IN ` + staleStatuses

	rows, err := r.pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list tenants with stale leads", err).WithOp(op)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan tenant id", err).WithOp(op)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
