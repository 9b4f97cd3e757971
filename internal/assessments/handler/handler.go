// Package handler exposes assessment scoring and opportunities over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/transport"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/scheduler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/httpkit"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// GenerationEnqueuer queues opportunity generation to run in the background
// worker.
type GenerationEnqueuer interface {
	EnqueueGenerateOpportunities(ctx context.Context, payload scheduler.GenerateOpportunitiesPayload) error
}

type Handler struct {
	svc  *service.Service
	val  *validator.Validator
	jobs GenerationEnqueuer
}

func New(svc *service.Service, val *validator.Validator, jobs GenerationEnqueuer) *Handler {
	return &Handler{svc: svc, val: val, jobs: jobs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assessments/:id/opportunities", h.GenerateOpportunities)
	rg.GET("/assessments/:id/opportunities", h.ListOpportunities)
	rg.PUT("/opportunities/:id/assign", h.AssignOpportunity)
	rg.PATCH("/opportunities/:id/status", h.UpdateStatus)
}

// GenerateOpportunities runs threshold evaluation for a completed
// assessment.
func (h *Handler) GenerateOpportunities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if h.jobs != nil && c.Query("async") == "true" {
		payload := scheduler.GenerateOpportunitiesPayload{
			AssessmentID: id.String(),
			TenantID:     identity.TenantID().String(),
		}
		if err := h.jobs.EnqueueGenerateOpportunities(c.Request.Context(), payload); err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"queued": true})
		return
	}

	res, err := h.svc.GenerateOpportunities(c.Request.Context(), tenant.FromIdentity(identity), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{
		"opportunities":       transport.FromOpportunities(res.Opportunities),
		"duplicatesPrevented": res.DuplicatesPrevented,
		"errors":              res.Errors,
	})
}

// ListOpportunities returns the opportunities generated from an assessment.
func (h *Handler) ListOpportunities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	opps, err := h.svc.ListOpportunities(c.Request.Context(), tenant.FromIdentity(identity), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.FromOpportunities(opps))
}

// AssignOpportunity sets the owner and optional due date.
func (h *Handler) AssignOpportunity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.AssignOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.AssignOpportunity(c.Request.Context(), tenant.FromIdentity(identity), id, req.AssignedTo, req.DueDate); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"assigned": true})
}

// UpdateStatus moves an opportunity through its lifecycle.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), tenant.FromIdentity(identity), id, req.Status, req.Notes); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": req.Status})
}
