// Package domain holds the lead distribution bounded context's core types.
// These are storage-agnostic: repositories hydrate them, the engine consumes
// them, and nothing here touches the database.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentTier classifies agent seniority. Display only; never used in scoring.
type AgentTier string

const (
	TierBronze   AgentTier = "bronze"
	TierSilver   AgentTier = "silver"
	TierGold     AgentTier = "gold"
	TierPlatinum AgentTier = "platinum"
)

// AgentStatus is the employment state of a sales agent.
type AgentStatus string

const (
	AgentActive     AgentStatus = "active"
	AgentSuspended  AgentStatus = "suspended"
	AgentTerminated AgentStatus = "terminated"
)

// LeadStatus is the pipeline state of a lead.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadProposal    LeadStatus = "proposal"
	LeadNegotiation LeadStatus = "negotiation"
	LeadWon         LeadStatus = "won"
	LeadLost        LeadStatus = "lost"
)

// OpenPipelineStatuses are the non-terminal statuses that count against an
// agent's capacity.
var OpenPipelineStatuses = []LeadStatus{
	LeadNew, LeadContacted, LeadQualified, LeadProposal, LeadNegotiation,
}

// StaleSweepStatuses are the only states the stale sweep may reassign. Once
// a lead reaches qualified, the deal stays with the agent working it.
var StaleSweepStatuses = []LeadStatus{LeadNew, LeadContacted}

// EligibleForSweep reports whether a lead in this status may be taken from
// its agent by the stale sweep.
func (s LeadStatus) EligibleForSweep() bool {
	for _, st := range StaleSweepStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// RuleType selects the agent-selection algorithm a rule applies.
type RuleType string

const (
	RuleRoundRobin     RuleType = "round_robin"
	RuleTopPerformer   RuleType = "top_performer"
	RuleTerritory      RuleType = "territory"
	RuleSpecialization RuleType = "specialization"
	RuleCapacity       RuleType = "capacity"
	RuleWeighted       RuleType = "weighted"
)

// Lead is the prospect being routed. The engine reads it, never owns it.
type Lead struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CompanyName     string
	Source          string
	Industry        string
	CompanySize     string
	Territory       string
	Score           int // 0-100
	EstimatedValue  float64
	Status          LeadStatus
	AssignedAgentID *uuid.UUID
	AssignedAt      *time.Time
	CreatedAt       time.Time
}

// Agent is a salesperson eligible to receive leads. Read-only reference data
// during assignment.
type Agent struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	Email           string
	Tier            AgentTier
	TotalSales      float64
	DealsClosed     int
	ConversionRate  float64
	Territory       string
	Specializations []string
	MaxActiveLeads  int // <= 0 means no personal cap
	Status          AgentStatus
}

// IsActive reports whether the agent may receive leads at all.
func (a Agent) IsActive() bool {
	return a.Status == AgentActive
}

// MatchesIndustry reports whether any of the agent's specializations
// substring-matches the industry, case-insensitively, in either direction
// ("Managed Security" matches industry "Security" and vice versa).
func (a Agent) MatchesIndustry(industry string) bool {
	ind := strings.ToLower(strings.TrimSpace(industry))
	if ind == "" {
		return false
	}
	for _, spec := range a.Specializations {
		s := strings.ToLower(strings.TrimSpace(spec))
		if s == "" {
			continue
		}
		if strings.Contains(ind, s) || strings.Contains(s, ind) {
			return true
		}
	}
	return false
}

// RuleConditions filter which leads a rule applies to. Empty fields are
// wildcards; populated fields are AND-combined set-membership checks.
type RuleConditions struct {
	LeadSources  []string `json:"leadSources,omitempty"`
	Industries   []string `json:"industries,omitempty"`
	CompanySizes []string `json:"companySizes,omitempty"`
	Territories  []string `json:"territories,omitempty"`
	ScoreMin     *int     `json:"scoreMin,omitempty"`
	ScoreMax     *int     `json:"scoreMax,omitempty"`
}

// Matches evaluates the rule conditions against a lead.
func (c RuleConditions) Matches(lead Lead) bool {
	if !memberOf(c.LeadSources, lead.Source) {
		return false
	}
	if !memberOf(c.Industries, lead.Industry) {
		return false
	}
	if !memberOf(c.CompanySizes, lead.CompanySize) {
		return false
	}
	if !memberOf(c.Territories, lead.Territory) {
		return false
	}
	if c.ScoreMin != nil && lead.Score < *c.ScoreMin {
		return false
	}
	if c.ScoreMax != nil && lead.Score > *c.ScoreMax {
		return false
	}
	return true
}

// memberOf treats an empty set as a wildcard.
func memberOf(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, item := range set {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// WeightFactors weight the components of the weighted selection algorithm.
type WeightFactors struct {
	Performance    float64 `json:"performance"`
	Capacity       float64 `json:"capacity"`
	Specialization float64 `json:"specialization"`
}

// AssignmentSettings tune how a matched rule picks an agent.
type AssignmentSettings struct {
	EligibleAgents    []uuid.UUID   `json:"eligibleAgents,omitempty"`
	Weights           WeightFactors `json:"weights"`
	MaxLeadsPerAgent  int           `json:"maxLeadsPerAgent,omitempty"` // <= 0 means no rule cap
	ReassignAfterDays int           `json:"reassignAfterDays,omitempty"`
}

// DistributionRule is a tenant-configured routing policy. Rules are evaluated
// in ascending Priority order; the first rule whose conditions match is used.
type DistributionRule struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	RuleName   string
	RuleType   RuleType
	IsActive   bool
	Priority   int
	Conditions RuleConditions
	Settings   AssignmentSettings
}

// CapacityFor returns the effective open-lead cap the rule imposes on an
// agent: min(rule cap, agent cap), where a non-positive value means
// unbounded on that side. Returns 0 when neither side caps the agent.
func (r DistributionRule) CapacityFor(agent Agent) int {
	ruleCap := r.Settings.MaxLeadsPerAgent
	agentCap := agent.MaxActiveLeads
	switch {
	case ruleCap <= 0:
		return max(agentCap, 0)
	case agentCap <= 0:
		return ruleCap
	case ruleCap < agentCap:
		return ruleCap
	default:
		return agentCap
	}
}
