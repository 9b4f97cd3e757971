// Package engine implements rule-based agent selection for lead distribution.
// The engine is a pure function over a pre-fetched snapshot: rules, the agent
// roster, per-agent open workloads and last assignment times all arrive as
// arguments, so callers control consistency and the engine stays trivially
// testable.
package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
)

// Workloads maps agent ID to the count of open-pipeline leads currently
// assigned to that agent.
type Workloads map[uuid.UUID]int

// LastAssignments maps agent ID to the time the agent last received a lead.
// Agents absent from the map have never been assigned one.
type LastAssignments map[uuid.UUID]time.Time

// Snapshot is the reference data one assignment decision is made against.
type Snapshot struct {
	Rules           []domain.DistributionRule
	Agents          []domain.Agent
	Workloads       Workloads
	LastAssignments LastAssignments
}

// Decision is the outcome of one assignment attempt. Agent is nil when no
// agent could be selected at all (assignment stays pending).
type Decision struct {
	Agent    *domain.Agent
	Rule     *domain.DistributionRule
	Fallback bool
}

// Engine selects agents for leads. The zero value is not usable; construct
// with New.
type Engine struct {
	fallback FallbackStrategy
}

// New builds an Engine with the given fallback strategy. A nil fallback
// defaults to FirstActiveAgent.
func New(fallback FallbackStrategy) *Engine {
	if fallback == nil {
		fallback = FirstActiveAgent{}
	}
	return &Engine{fallback: fallback}
}

// Assign picks an agent for the lead. Active rules are tried in ascending
// priority order; the first rule whose conditions match the lead AND yields
// an agent with spare capacity wins. A matching rule whose candidate pool is
// exhausted does not stop evaluation, lower-priority rules still get a turn.
// When no rule produces an agent the fallback strategy decides.
func (e *Engine) Assign(lead domain.Lead, snap Snapshot) Decision {
	rules := activeByPriority(snap.Rules)

	for i := range rules {
		rule := rules[i]
		if !rule.Conditions.Matches(lead) {
			continue
		}
		pool := eligiblePool(rule, snap.Agents)
		pool = withCapacity(rule, pool, snap.Workloads)
		if len(pool) == 0 {
			continue
		}
		if agent := selectAgent(rule, lead, pool, snap); agent != nil {
			return Decision{Agent: agent, Rule: &rule}
		}
	}

	if agent := e.fallback.Select(lead, snap.Agents); agent != nil {
		return Decision{Agent: agent, Fallback: true}
	}
	return Decision{}
}

// activeByPriority returns the active rules sorted by ascending priority.
// The sort is stable so rules sharing a priority keep their stored order.
func activeByPriority(rules []domain.DistributionRule) []domain.DistributionRule {
	out := make([]domain.DistributionRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// eligiblePool narrows the roster to the rule's eligible agents. An empty
// eligible list means every active agent qualifies.
func eligiblePool(rule domain.DistributionRule, agents []domain.Agent) []domain.Agent {
	pool := make([]domain.Agent, 0, len(agents))
	if len(rule.Settings.EligibleAgents) == 0 {
		for _, a := range agents {
			if a.IsActive() {
				pool = append(pool, a)
			}
		}
		return pool
	}
	eligible := make(map[uuid.UUID]struct{}, len(rule.Settings.EligibleAgents))
	for _, id := range rule.Settings.EligibleAgents {
		eligible[id] = struct{}{}
	}
	for _, a := range agents {
		if _, ok := eligible[a.ID]; ok && a.IsActive() {
			pool = append(pool, a)
		}
	}
	return pool
}

// withCapacity drops agents whose open workload has reached the effective
// cap. Agents with no cap on either side always pass.
func withCapacity(rule domain.DistributionRule, pool []domain.Agent, loads Workloads) []domain.Agent {
	out := pool[:0:0]
	for _, a := range pool {
		cap := rule.CapacityFor(a)
		if cap <= 0 || loads[a.ID] < cap {
			out = append(out, a)
		}
	}
	return out
}

// selectAgent dispatches to the per-type selection algorithm. Unknown rule
// types select nothing so evaluation falls through to the next rule.
func selectAgent(rule domain.DistributionRule, lead domain.Lead, pool []domain.Agent, snap Snapshot) *domain.Agent {
	switch rule.RuleType {
	case domain.RuleRoundRobin:
		return selectRoundRobin(pool, snap.LastAssignments)
	case domain.RuleTopPerformer:
		return selectTopPerformer(pool)
	case domain.RuleTerritory:
		return selectTerritory(lead, pool)
	case domain.RuleSpecialization:
		return selectSpecialization(lead, pool)
	case domain.RuleCapacity:
		return selectMostAvailable(rule, pool, snap.Workloads)
	case domain.RuleWeighted:
		return selectWeighted(rule, lead, pool)
	default:
		return nil
	}
}

// selectRoundRobin picks the agent whose last assignment is oldest. An agent
// who has never received a lead beats every agent who has; ties keep pool
// order.
func selectRoundRobin(pool []domain.Agent, last LastAssignments) *domain.Agent {
	var best *domain.Agent
	var bestAt time.Time
	bestNever := false
	for i := range pool {
		at, ever := last[pool[i].ID]
		switch {
		case best == nil:
			best, bestAt, bestNever = &pool[i], at, !ever
		case bestNever:
			// nothing beats never-assigned
		case !ever:
			best, bestNever = &pool[i], true
		case at.Before(bestAt):
			best, bestAt = &pool[i], at
		}
	}
	return best
}

// performanceScore is the top-performer composite. Sales dominates, with
// conversion rate and closed-deal count as secondary signals.
func performanceScore(a domain.Agent) float64 {
	return a.TotalSales*0.4 + a.ConversionRate*0.3 + float64(a.DealsClosed)*0.3
}

// selectTopPerformer picks the highest composite score; ties keep pool order.
func selectTopPerformer(pool []domain.Agent) *domain.Agent {
	var best *domain.Agent
	var bestScore float64
	for i := range pool {
		s := performanceScore(pool[i])
		if best == nil || s > bestScore {
			best, bestScore = &pool[i], s
		}
	}
	return best
}

// selectTerritory restricts the pool to agents covering the lead's territory
// and picks the top performer among them. When no agent covers the territory
// the whole pool competes instead.
func selectTerritory(lead domain.Lead, pool []domain.Agent) *domain.Agent {
	covering := make([]domain.Agent, 0, len(pool))
	for _, a := range pool {
		if strings.EqualFold(a.Territory, lead.Territory) && lead.Territory != "" {
			covering = append(covering, a)
		}
	}
	if len(covering) == 0 {
		return selectTopPerformer(pool)
	}
	return selectTopPerformer(covering)
}

// selectSpecialization prefers agents whose specializations match the lead's
// industry, picking the top performer among matches. With no matches the
// whole pool competes.
func selectSpecialization(lead domain.Lead, pool []domain.Agent) *domain.Agent {
	matching := make([]domain.Agent, 0, len(pool))
	for _, a := range pool {
		if a.MatchesIndustry(lead.Industry) {
			matching = append(matching, a)
		}
	}
	if len(matching) == 0 {
		return selectTopPerformer(pool)
	}
	return selectTopPerformer(matching)
}

// selectMostAvailable picks the agent with the most headroom under the
// effective cap. Uncapped agents have unbounded headroom and sort first;
// ties keep pool order.
func selectMostAvailable(rule domain.DistributionRule, pool []domain.Agent, loads Workloads) *domain.Agent {
	const unbounded = int(^uint(0) >> 1)
	var best *domain.Agent
	var bestRoom int
	for i := range pool {
		cap := rule.CapacityFor(pool[i])
		room := unbounded
		if cap > 0 {
			room = cap - loads[pool[i].ID]
		}
		if best == nil || room > bestRoom {
			best, bestRoom = &pool[i], room
		}
	}
	return best
}

// selectWeighted scores each agent on three normalized components and picks
// the highest weighted sum; ties keep pool order.
//
// The capacity component is a constant 1.0 for every candidate: agents over
// cap were already filtered out, and within the surviving pool capacity is
// treated as satisfied rather than ranked.
func selectWeighted(rule domain.DistributionRule, lead domain.Lead, pool []domain.Agent) *domain.Agent {
	var maxSales float64
	for _, a := range pool {
		if a.TotalSales > maxSales {
			maxSales = a.TotalSales
		}
	}

	w := rule.Settings.Weights
	var best *domain.Agent
	var bestScore float64
	for i := range pool {
		a := pool[i]
		perf := 0.0
		if maxSales > 0 {
			perf = a.TotalSales / maxSales
		}
		spec := 0.5
		if a.MatchesIndustry(lead.Industry) {
			spec = 1.0
		}
		score := perf*w.Performance + 1.0*w.Capacity + spec*w.Specialization
		if best == nil || score > bestScore {
			best, bestScore = &pool[i], score
		}
	}
	return best
}
