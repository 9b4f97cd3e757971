// Package handler exposes the distribution engine over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/transport"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/scheduler"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

// SweepEnqueuer queues a stale-lead sweep to run in the background worker.
type SweepEnqueuer interface {
	EnqueueReassignStaleLeads(ctx context.Context, payload scheduler.ReassignStaleLeadsPayload) error
}

type Handler struct {
	svc  *service.Service
	jobs SweepEnqueuer
}

func New(svc *service.Service, jobs SweepEnqueuer) *Handler {
	return &Handler{svc: svc, jobs: jobs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/distribution/rules", h.ListRules)
	rg.POST("/distribution/reassign-stale", h.ReassignStale)
	rg.POST("/leads/:id/assign", h.AssignLead)
}

// AssignLead runs the distribution engine for one lead.
func (h *Handler) AssignLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	res, err := h.svc.AssignLead(c.Request.Context(), tenant.FromIdentity(identity), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, res)
}

// ReassignStale triggers a stale-lead sweep for the caller's tenant. The
// scheduled job does this automatically; this endpoint exists for manual
// runs and support tooling.
func (h *Handler) ReassignStale(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if h.jobs != nil && c.Query("async") == "true" {
		payload := scheduler.ReassignStaleLeadsPayload{TenantID: identity.TenantID().String()}
		if err := h.jobs.EnqueueReassignStaleLeads(c.Request.Context(), payload); err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"queued": true})
		return
	}

	res, err := h.svc.ReassignStaleLeads(c.Request.Context(), tenant.FromIdentity(identity))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, res)
}

// ListRules returns the tenant's active rules in evaluation order.
func (h *Handler) ListRules(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	rules, err := h.svc.ListRules(c.Request.Context(), tenant.FromIdentity(identity))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.FromRules(rules))
}
