// Package service orchestrates opportunity generation: it evaluates a
// completed assessment against the template's threshold rules, suppresses
// duplicates, and manages the opportunity lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/scoring"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/apperr"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// DuplicateWindow is how long an active opportunity of the same type blocks
// a new one for the same client.
const DuplicateWindow = 30 * 24 * time.Hour

// Repository is the persistence surface this service needs.
type Repository interface {
	GetAssessment(ctx context.Context, tenantID, assessmentID uuid.UUID) (domain.Assessment, error)
	GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (domain.Template, error)
	ListResponses(ctx context.Context, tenantID, assessmentID uuid.UUID) ([]domain.Response, error)
	FindRecentOpportunity(ctx context.Context, tenantID, clientID uuid.UUID, opportunityType string, since time.Time) (*domain.Opportunity, error)
	InsertOpportunity(ctx context.Context, o domain.Opportunity) (domain.Opportunity, error)
	GetOpportunity(ctx context.Context, tenantID, opportunityID uuid.UUID) (domain.Opportunity, error)
	AssignOpportunity(ctx context.Context, tenantID, opportunityID, assignedTo uuid.UUID, dueDate *time.Time) error
	UpdateOpportunityStatus(ctx context.Context, tenantID, opportunityID uuid.UUID, status domain.OpportunityStatus, notes string) error
	ListOpportunitiesByAssessment(ctx context.Context, tenantID, assessmentID uuid.UUID) ([]domain.Opportunity, error)
}

// Locker serializes the duplicate check and insert for one
// (client, opportunity type) pair across concurrent generation runs.
type Locker interface {
	Acquire(ctx context.Context, key string) (*lock.Lease, error)
}

// GenerationResult summarizes one opportunity generation run. Per-rule
// failures land in Errors; they never abort the run.
type GenerationResult struct {
	Opportunities       []domain.Opportunity `json:"opportunities"`
	DuplicatesPrevented int                  `json:"duplicatesPrevented"`
	Errors              []string             `json:"errors,omitempty"`
}

type Service struct {
	repo   Repository
	locker Locker
	bus    events.Bus
	log    *logger.Logger
}

func New(repo Repository, locker Locker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, locker: locker, bus: bus, log: log}
}

// GenerateOpportunities evaluates every threshold rule of the assessment's
// template and creates an opportunity for each one the score falls below.
// One broken rule must not cost a tenant the rest, so rule-level failures
// are collected instead of returned.
func (s *Service) GenerateOpportunities(ctx context.Context, tc tenant.Context, assessmentID uuid.UUID) (GenerationResult, error) {
	assessment, err := s.repo.GetAssessment(ctx, tc.TenantID, assessmentID)
	if err != nil {
		return GenerationResult{}, err
	}

	tmpl, err := s.repo.GetTemplate(ctx, tc.TenantID, assessment.TemplateID)
	if err != nil {
		return GenerationResult{}, err
	}

	responses, err := s.repo.ListResponses(ctx, tc.TenantID, assessmentID)
	if err != nil {
		return GenerationResult{}, err
	}

	result := GenerationResult{Opportunities: []domain.Opportunity{}}
	if len(responses) == 0 {
		result.Errors = append(result.Errors, "assessment has no responses to evaluate")
		return result, nil
	}

	for _, rule := range tmpl.Rules {
		opp, outcome, err := s.applyRule(ctx, tc, assessment, tmpl, rule, responses)
		if err != nil {
			s.log.Error("threshold rule failed",
				"assessment_id", assessmentID,
				"rule_type", rule.Type,
				"error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("rule %s: %v", rule.Type, err))
			continue
		}
		switch outcome {
		case outcomeCreated:
			result.Opportunities = append(result.Opportunities, opp)
		case outcomeDuplicate:
			result.DuplicatesPrevented++
		}
	}

	s.log.Info("opportunity generation complete",
		"assessment_id", assessmentID,
		"created", len(result.Opportunities),
		"duplicates_prevented", result.DuplicatesPrevented,
		"errors", len(result.Errors))
	return result, nil
}

// ruleOutcome is what one threshold rule produced.
type ruleOutcome int

const (
	outcomeSkipped ruleOutcome = iota
	outcomeCreated
	outcomeDuplicate
)

// applyRule evaluates one rule. The duplicate check and the insert run under
// a per-(client, opportunity type) lock so concurrent generation runs cannot
// both pass the check and create two active opportunities.
func (s *Service) applyRule(ctx context.Context, tc tenant.Context, assessment domain.Assessment, tmpl domain.Template, rule domain.OpportunityRule, responses []domain.Response) (domain.Opportunity, ruleOutcome, error) {
	if rule.Type == "" {
		return domain.Opportunity{}, outcomeSkipped, fmt.Errorf("rule has no type")
	}

	eval := scoring.EvaluateThreshold(rule, tmpl, responses)
	if !eval.Triggered {
		return domain.Opportunity{}, outcomeSkipped, nil
	}

	lease, err := s.locker.Acquire(ctx, "opportunity:generate:"+assessment.ClientID.String()+":"+rule.Type)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Another run holds this pair mid-creation; whatever it inserts
			// would suppress ours anyway.
			s.log.Info("concurrent opportunity generation suppressed",
				"client_id", assessment.ClientID,
				"opportunity_type", rule.Type)
			return domain.Opportunity{}, outcomeDuplicate, nil
		}
		return domain.Opportunity{}, outcomeSkipped, err
	}
	defer lease.Release(context.WithoutCancel(ctx))

	since := time.Now().UTC().Add(-DuplicateWindow)
	existing, err := s.repo.FindRecentOpportunity(ctx, tc.TenantID, assessment.ClientID, rule.Type, since)
	if err != nil {
		return domain.Opportunity{}, outcomeSkipped, err
	}
	if existing != nil {
		s.log.Info("duplicate opportunity suppressed",
			"client_id", assessment.ClientID,
			"opportunity_type", rule.Type,
			"existing_id", existing.ID)
		return *existing, outcomeDuplicate, nil
	}

	title := rule.Title
	if title == "" {
		title = scoring.DefaultTitle(rule.Type)
	}

	opp := domain.Opportunity{
		TenantID:        tc.TenantID,
		AssessmentID:    assessment.ID,
		ClientID:        assessment.ClientID,
		OpportunityType: rule.Type,
		Title:           title,
		Description:     rule.Description,
		Priority:        scoring.CalculatePriority(rule, eval, assessment.ClientValue),
		Status:          domain.OpportunityIdentified,
		EstimatedValue:  rule.EstimatedValue,
		ThresholdData:   eval.Data,
	}

	opp, err = s.repo.InsertOpportunity(ctx, opp)
	if err != nil {
		return domain.Opportunity{}, outcomeSkipped, err
	}

	s.bus.Publish(ctx, events.OpportunityIdentified{
		BaseEvent:       events.NewBaseEvent(),
		OpportunityID:   opp.ID,
		AssessmentID:    assessment.ID,
		ClientID:        assessment.ClientID,
		TenantID:        tc.TenantID,
		OpportunityType: opp.OpportunityType,
		Title:           opp.Title,
		Priority:        string(opp.Priority),
		ActualScore:     eval.Percentage,
		Threshold:       eval.Threshold,
		EstimatedValue:  opp.EstimatedValue,
	})
	return opp, outcomeCreated, nil
}

// ListOpportunities returns the opportunities generated from an assessment.
func (s *Service) ListOpportunities(ctx context.Context, tc tenant.Context, assessmentID uuid.UUID) ([]domain.Opportunity, error) {
	return s.repo.ListOpportunitiesByAssessment(ctx, tc.TenantID, assessmentID)
}

// AssignOpportunity hands an opportunity to an owner with an optional due
// date.
func (s *Service) AssignOpportunity(ctx context.Context, tc tenant.Context, opportunityID, assignedTo uuid.UUID, dueDate *time.Time) error {
	if assignedTo == uuid.Nil {
		return apperr.Validation("assignedTo is required")
	}
	return s.repo.AssignOpportunity(ctx, tc.TenantID, opportunityID, assignedTo, dueDate)
}

// UpdateStatus moves an opportunity through its lifecycle, rejecting
// transitions the state machine does not allow.
func (s *Service) UpdateStatus(ctx context.Context, tc tenant.Context, opportunityID uuid.UUID, status domain.OpportunityStatus, notes string) error {
	opp, err := s.repo.GetOpportunity(ctx, tc.TenantID, opportunityID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(opp.Status, status) {
		return apperr.Validation(fmt.Sprintf("cannot transition opportunity from %s to %s", opp.Status, status))
	}
	if err := s.repo.UpdateOpportunityStatus(ctx, tc.TenantID, opportunityID, status, notes); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.OpportunityStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		OpportunityID: opportunityID,
		TenantID:      tc.TenantID,
		OldStatus:     string(opp.Status),
		NewStatus:     string(status),
	})
	return nil
}
