// Package handler exposes client management over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/transport"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/httpkit"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClientRequest
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

	client, err := h.svc.Create(c.Request.Context(), tenant.FromIdentity(identity), service.CreateParams{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Industry:    req.Industry,
		CompanySize: req.CompanySize,
		Territory:   req.Territory,
		ValueTier:   domain.ValueTier(req.ValueTier),
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromClient(client))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	client, err := h.svc.GetByID(c.Request.Context(), tenant.FromIdentity(identity), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.FromClient(client))
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	clients, err := h.svc.List(c.Request.Context(), tenant.FromIdentity(identity))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.FromClients(clients))
}
