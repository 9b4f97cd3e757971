// Package domain holds the assessment scoring context's core types:
// templates with their scoring and threshold rules, responses, and the
// opportunities generated from low scores.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType determines how a response is validated and scored.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionNumber         QuestionType = "number"
	QuestionBoolean        QuestionType = "boolean"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionScale          QuestionType = "scale"
)

// ValidationRules constrain a response beyond its basic type.
type ValidationRules struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Option is one selectable answer for choice questions. Value carries the
// points awarded when the option is chosen.
type Option struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Question is one item on an assessment template.
type Question struct {
	ID         uuid.UUID       `json:"id"`
	Section    string          `json:"section"`
	Text       string          `json:"text"`
	Type       QuestionType    `json:"type"`
	Required   bool            `json:"required"`
	MaxPoints  float64         `json:"maxPoints"`
	ScaleMax   float64         `json:"scaleMax,omitempty"`
	Options    []Option        `json:"options,omitempty"`
	Validation ValidationRules `json:"validation"`
}

// OpportunityRule is one entry in a template's threshold rules: when the
// relevant score falls below Threshold, an opportunity of this type is
// generated.
type OpportunityRule struct {
	Type           string   `json:"type"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"` // nil means the 70% default
	Priority       Priority `json:"priority,omitempty"`  // empty means medium
	EstimatedValue float64  `json:"estimatedValue,omitempty"`
	Section        string   `json:"section,omitempty"` // empty means overall score
}

// Template is an assessment questionnaire with scoring configuration.
// A nil MaxScore means the template declares no overall maximum and the
// default of 100 applies; an explicit zero marks the template unscorable.
type Template struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Name       string
	MaxScore   *float64
	SectionMax map[string]float64
	Rules      []OpportunityRule
	Questions  []Question
}

// AssessmentStatus is the lifecycle state of an assessment.
type AssessmentStatus string

const (
	AssessmentDraft      AssessmentStatus = "draft"
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentCompleted  AssessmentStatus = "completed"
)

// ClientValue classifies the client for priority escalation.
type ClientValue string

const (
	ClientStandard   ClientValue = "standard"
	ClientEnterprise ClientValue = "enterprise"
)

// Assessment is one filled-out questionnaire for a client.
type Assessment struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ClientID    uuid.UUID
	TemplateID  uuid.UUID
	Status      AssessmentStatus
	ClientValue ClientValue
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Response is one answered question. Value is the raw JSON-decoded answer;
// Score is filled in by the scoring engine.
type Response struct {
	ID           uuid.UUID
	AssessmentID uuid.UUID
	QuestionID   uuid.UUID
	Section      string
	Value        any
	Score        float64
	MaxPoints    float64
}

// Priority ranks opportunities for follow-up.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// OpportunityStatus is the sales lifecycle state of an opportunity.
type OpportunityStatus string

const (
	OpportunityIdentified   OpportunityStatus = "identified"
	OpportunityQualified    OpportunityStatus = "qualified"
	OpportunityProposalSent OpportunityStatus = "proposal_sent"
	OpportunityWon          OpportunityStatus = "won"
	OpportunityLost         OpportunityStatus = "lost"
	OpportunityCancelled    OpportunityStatus = "cancelled"
)

// ActiveOpportunityStatuses are the states that suppress duplicate
// generation. A lost or cancelled opportunity does not block a new one.
var ActiveOpportunityStatuses = []OpportunityStatus{
	OpportunityIdentified, OpportunityQualified, OpportunityProposalSent,
}

// statusTransitions enumerates the legal lifecycle moves.
var statusTransitions = map[OpportunityStatus][]OpportunityStatus{
	OpportunityIdentified:   {OpportunityQualified, OpportunityLost, OpportunityCancelled},
	OpportunityQualified:    {OpportunityProposalSent, OpportunityLost, OpportunityCancelled},
	OpportunityProposalSent: {OpportunityWon, OpportunityLost, OpportunityCancelled},
}

// CanTransition reports whether an opportunity may move from one status to
// another. Terminal statuses allow no moves.
func CanTransition(from, to OpportunityStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ThresholdData is the audit trail stored with each opportunity: what score
// triggered it and against which threshold.
type ThresholdData struct {
	ActualScore float64 `json:"actualScore"`
	Threshold   float64 `json:"threshold"`
	Section     string  `json:"section,omitempty"`
	RawScore    float64 `json:"rawScore"`
	MaxScore    float64 `json:"maxScore"`
}

// Opportunity is a sales opening identified from a low assessment score.
type Opportunity struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	AssessmentID    uuid.UUID
	ClientID        uuid.UUID
	OpportunityType string
	Title           string
	Description     string
	Priority        Priority
	Status          OpportunityStatus
	EstimatedValue  float64
	AssignedTo      *uuid.UUID
	DueDate         *time.Time
	Notes           string
	ThresholdData   ThresholdData
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
