// Package transport defines the request and response shapes of the
// assessments HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
)

// AssignOpportunityRequest hands an opportunity to an owner.
type AssignOpportunityRequest struct {
	AssignedTo uuid.UUID  `json:"assignedTo" validate:"required"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

// UpdateStatusRequest moves an opportunity through its lifecycle.
type UpdateStatusRequest struct {
	Status domain.OpportunityStatus `json:"status" validate:"required,oneof=identified qualified proposal_sent won lost cancelled"`
	Notes  string                   `json:"notes,omitempty" validate:"max=2000"`
}

// OpportunityResponse is an opportunity as exposed over HTTP.
type OpportunityResponse struct {
	ID              uuid.UUID                `json:"id"`
	AssessmentID    uuid.UUID                `json:"assessmentId"`
	ClientID        uuid.UUID                `json:"clientId"`
	OpportunityType string                   `json:"opportunityType"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description,omitempty"`
	Priority        domain.Priority          `json:"priority"`
	Status          domain.OpportunityStatus `json:"status"`
	EstimatedValue  float64                  `json:"estimatedValue"`
	AssignedTo      *uuid.UUID               `json:"assignedTo,omitempty"`
	DueDate         *time.Time               `json:"dueDate,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	ThresholdData   domain.ThresholdData     `json:"thresholdData"`
	CreatedAt       time.Time                `json:"createdAt"`
}

// FromOpportunity maps a domain opportunity to its API form.
func FromOpportunity(o domain.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		ID:              o.ID,
		AssessmentID:    o.AssessmentID,
		ClientID:        o.ClientID,
		OpportunityType: o.OpportunityType,
		Title:           o.Title,
		Description:     o.Description,
		Priority:        o.Priority,
		Status:          o.Status,
		EstimatedValue:  o.EstimatedValue,
		AssignedTo:      o.AssignedTo,
		DueDate:         o.DueDate,
		Notes:           o.Notes,
		ThresholdData:   o.ThresholdData,
		CreatedAt:       o.CreatedAt,
	}
}

// FromOpportunities maps a slice, returning an empty slice rather than nil.
func FromOpportunities(opps []domain.Opportunity) []OpportunityResponse {
	out := make([]OpportunityResponse, 0, len(opps))
	for _, o := range opps {
		out = append(out, FromOpportunity(o))
	}
	return out
}
