// Package repository provides PostgreSQL persistence for the assessments
// context. Template questions, threshold rules and opportunity audit data
// are stored as JSONB documents.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAssessment fetches one assessment scoped to the tenant. The client's
// value tier travels with it so the scoring service does not need a second
// lookup.
func (r *Repository) GetAssessment(ctx context.Context, tenantID, assessmentID uuid.UUID) (domain.Assessment, error) {
	const op = "assessments.Repository.GetAssessment"
	const q = `
		SELECT a.id, a.tenant_id, a.client_id, a.template_id, a.status,
		       COALESCE(c.value_tier, 'standard'), a.completed_at, a.created_at
		FROM assessments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.id = $1 AND a.tenant_id = $2`

	var a domain.Assessment
	err := r.pool.QueryRow(ctx, q, assessmentID, tenantID).Scan(
		&a.ID, &a.TenantID, &a.ClientID, &a.TemplateID, &a.Status,
		&a.ClientValue, &a.CompletedAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assessment{}, apperr.NotFound("assessment not found").WithOp(op)
	}
	if err != nil {
		return domain.Assessment{}, apperr.Wrap(apperr.KindInternal, "failed to fetch assessment", err).WithOp(op)
	}
	return a, nil
}

// GetTemplate fetches the template with its scoring configuration.
func (r *Repository) GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (domain.Template, error) {
	const op = "assessments.Repository.GetTemplate"
	const q = `
		SELECT id, tenant_id, name, max_score, section_max, threshold_rules, questions
		FROM assessment_templates
		WHERE id = $1 AND tenant_id = $2`

	var (
		t                            domain.Template
		sectionRaw, rulesRaw, qsRaw []byte
	)
	err := r.pool.QueryRow(ctx, q, templateID, tenantID).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.MaxScore, &sectionRaw, &rulesRaw, &qsRaw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Template{}, apperr.NotFound("assessment template not found").WithOp(op)
	}
	if err != nil {
		return domain.Template{}, apperr.Wrap(apperr.KindInternal, "failed to fetch template", err).WithOp(op)
	}

	if len(sectionRaw) > 0 {
		if err := json.Unmarshal(sectionRaw, &t.SectionMax); err != nil {
			return domain.Template{}, apperr.Wrap(apperr.KindInternal, "malformed section maxima", err).WithOp(op)
		}
	}
	if len(rulesRaw) > 0 {
		if err := json.Unmarshal(rulesRaw, &t.Rules); err != nil {
			return domain.Template{}, apperr.Wrap(apperr.KindInternal, "malformed threshold rules", err).WithOp(op)
		}
	}
	if len(qsRaw) > 0 {
		if err := json.Unmarshal(qsRaw, &t.Questions); err != nil {
			return domain.Template{}, apperr.Wrap(apperr.KindInternal, "malformed questions", err).WithOp(op)
		}
	}
	return t, nil
}

// ListResponses returns the scored responses of an assessment.
func (r *Repository) ListResponses(ctx context.Context, tenantID, assessmentID uuid.UUID) ([]domain.Response, error) {
	const op = "assessments.Repository.ListResponses"
	const q = `
		SELECT r.id, r.assessment_id, r.question_id, r.section,
		       r.response_value, r.score, r.max_points
		FROM assessment_responses r
		JOIN assessments a ON a.id = r.assessment_id
		WHERE r.assessment_id = $1 AND a.tenant_id = $2
		ORDER BY r.created_at ASC`

	rows, err := r.pool.Query(ctx, q, assessmentID, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list responses", err).WithOp(op)
	}
	defer rows.Close()

	var responses []domain.Response
	for rows.Next() {
		var (
			resp   domain.Response
			rawVal []byte
		)
		if err := rows.Scan(&resp.ID, &resp.AssessmentID, &resp.QuestionID,
			&resp.Section, &rawVal, &resp.Score, &resp.MaxPoints); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan response", err).WithOp(op)
		}
		if len(rawVal) > 0 {
			if err := json.Unmarshal(rawVal, &resp.Value); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "malformed response value", err).WithOp(op)
			}
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// FindRecentOpportunity looks for an active opportunity of the same type for
// the client created inside the suppression window.
func (r *Repository) FindRecentOpportunity(ctx context.Context, tenantID, clientID uuid.UUID, opportunityType string, since time.Time) (*domain.Opportunity, error) {
	const op = "assessments.Repository.FindRecentOpportunity"
	const q = `
		SELECT id, status, created_at
		FROM opportunities
		WHERE tenant_id = $1 AND client_id = $2 AND opportunity_type = $3
		  AND status IN ('identified','qualified','proposal_sent')
		  AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT 1`

	var found domain.Opportunity
	err := r.pool.QueryRow(ctx, q, tenantID, clientID, opportunityType, since).Scan(
		&found.ID, &found.Status, &found.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check for duplicate opportunity", err).WithOp(op)
	}
	found.TenantID = tenantID
	found.ClientID = clientID
	found.OpportunityType = opportunityType
	return &found, nil
}

// InsertOpportunity stores a newly identified opportunity.
func (r *Repository) InsertOpportunity(ctx context.Context, o domain.Opportunity) (domain.Opportunity, error) {
	const op = "assessments.Repository.InsertOpportunity"
	const q = `
		INSERT INTO opportunities (
			id, tenant_id, assessment_id, client_id, opportunity_type,
			title, description, priority, status, estimated_value,
			threshold_data, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	data, err := json.Marshal(o.ThresholdData)
	if err != nil {
		return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "failed to encode threshold data", err).WithOp(op)
	}

	_, err = r.pool.Exec(ctx, q,
		o.ID, o.TenantID, o.AssessmentID, o.ClientID, o.OpportunityType,
		o.Title, o.Description, o.Priority, o.Status, o.EstimatedValue,
		data, o.CreatedAt,
	)
	if err != nil {
		return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "failed to insert opportunity", err).WithOp(op)
	}
	return o, nil
}

// GetOpportunity fetches one opportunity scoped to the tenant.
func (r *Repository) GetOpportunity(ctx context.Context, tenantID, opportunityID uuid.UUID) (domain.Opportunity, error) {
	const op = "assessments.Repository.GetOpportunity"
	const q = `
		SELECT id, tenant_id, assessment_id, client_id, opportunity_type,
		       title, description, priority, status, estimated_value,
		       assigned_to, due_date, notes, threshold_data, created_at, updated_at
		FROM opportunities
		WHERE id = $1 AND tenant_id = $2`

	var (
		o    domain.Opportunity
		data []byte
	)
	err := r.pool.QueryRow(ctx, q, opportunityID, tenantID).Scan(
		&o.ID, &o.TenantID, &o.AssessmentID, &o.ClientID, &o.OpportunityType,
		&o.Title, &o.Description, &o.Priority, &o.Status, &o.EstimatedValue,
		&o.AssignedTo, &o.DueDate, &o.Notes, &data, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, apperr.NotFound("opportunity not found").WithOp(op)
	}
	if err != nil {
		return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "failed to fetch opportunity", err).WithOp(op)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &o.ThresholdData); err != nil {
			return domain.Opportunity{}, apperr.Wrap(apperr.KindInternal, "malformed threshold data", err).WithOp(op)
		}
	}
	return o, nil
}

// AssignOpportunity sets the owner and optional due date.
func (r *Repository) AssignOpportunity(ctx context.Context, tenantID, opportunityID, assignedTo uuid.UUID, dueDate *time.Time) error {
	const op = "assessments.Repository.AssignOpportunity"
	const q = `
		UPDATE opportunities
		SET assigned_to = $3, due_date = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, q, opportunityID, tenantID, assignedTo, dueDate)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to assign opportunity", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("opportunity not found").WithOp(op)
	}
	return nil
}

// UpdateOpportunityStatus records a lifecycle transition with optional notes.
func (r *Repository) UpdateOpportunityStatus(ctx context.Context, tenantID, opportunityID uuid.UUID, status domain.OpportunityStatus, notes string) error {
	const op = "assessments.Repository.UpdateOpportunityStatus"
	const q = `
		UPDATE opportunities
		SET status = $3,
		    notes = CASE WHEN $4 = '' THEN notes ELSE $4 END,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, q, opportunityID, tenantID, status, notes)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update opportunity status", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("opportunity not found").WithOp(op)
	}
	return nil
}

// ListOpportunitiesByAssessment returns the opportunities generated from one
// assessment, newest first.
func (r *Repository) ListOpportunitiesByAssessment(ctx context.Context, tenantID, assessmentID uuid.UUID) ([]domain.Opportunity, error) {
	const op = "assessments.Repository.ListOpportunitiesByAssessment"
	const q = `
		SELECT id, tenant_id, assessment_id, client_id, opportunity_type,
		       title, description, priority, status, estimated_value,
		       assigned_to, due_date, notes, threshold_data, created_at, updated_at
		FROM opportunities
		WHERE assessment_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, assessmentID, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list opportunities", err).WithOp(op)
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var (
			o    domain.Opportunity
			data []byte
		)
		if err := rows.Scan(&o.ID, &o.TenantID, &o.AssessmentID, &o.ClientID,
			&o.OpportunityType, &o.Title, &o.Description, &o.Priority, &o.Status,
			&o.EstimatedValue, &o.AssignedTo, &o.DueDate, &o.Notes, &data,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan opportunity", err).WithOp(op)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &o.ThresholdData); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "malformed threshold data", err).WithOp(op)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
