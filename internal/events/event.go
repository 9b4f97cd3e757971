// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Distribution Domain Events
// =============================================================================

// LeadAssigned is published when the distribution engine assigns a lead.
type LeadAssigned struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	AgentID     uuid.UUID  `json:"agentId"`
	AgentName   string     `json:"agentName"`
	AgentEmail  string     `json:"agentEmail,omitempty"`
	RuleID      *uuid.UUID `json:"ruleId,omitempty"`
	RuleName    string     `json:"ruleName,omitempty"`
	CompanyName string     `json:"companyName"`
	Fallback    bool       `json:"fallback"`
}

func (e LeadAssigned) EventName() string { return "distribution.lead.assigned" }

// LeadReassigned is published when the stale sweep moves a lead to a new agent.
type LeadReassigned struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	PreviousAgent uuid.UUID `json:"previousAgent"`
	NewAgent      uuid.UUID `json:"newAgent"`
	StaleSince    time.Time `json:"staleSince"`
}

func (e LeadReassigned) EventName() string { return "distribution.lead.reassigned" }

// =============================================================================
// Assessment Domain Events
// =============================================================================

// OpportunityIdentified is published when the scoring engine creates an
// opportunity from a completed assessment.
type OpportunityIdentified struct {
	BaseEvent
	OpportunityID   uuid.UUID `json:"opportunityId"`
	AssessmentID    uuid.UUID `json:"assessmentId"`
	ClientID        uuid.UUID `json:"clientId"`
	TenantID        uuid.UUID `json:"tenantId"`
	OpportunityType string    `json:"opportunityType"`
	Title           string    `json:"title"`
	Priority        string    `json:"priority"`
	ActualScore     float64   `json:"actualScore"`
	Threshold       float64   `json:"threshold"`
	EstimatedValue  float64   `json:"estimatedValue"`
}

func (e OpportunityIdentified) EventName() string { return "assessments.opportunity.identified" }

// OpportunityStatusChanged is published on opportunity lifecycle transitions.
type OpportunityStatusChanged struct {
	BaseEvent
	OpportunityID uuid.UUID `json:"opportunityId"`
	TenantID      uuid.UUID `json:"tenantId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
}

func (e OpportunityStatusChanged) EventName() string { return "assessments.opportunity.status_changed" }
