package handler

import (
	"net/http"

	"crm_backend/internal/agents/service"
	"crm_backend/internal/agents/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidID        = "invalid agent id"
	msgValidationFailed = "validation failed"
	bodyKey             = "agent"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger
}

func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/reconcile", h.Reconcile)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListAgentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.List(c, result.Items, httpkit.NewPagination(result.Total, result.Page, result.Limit))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAgentRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	agent, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Created(c, "Agent created successfully", agent)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	agent, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, agent)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateAgentRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	agent, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, "Agent updated successfully", agent)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if httpkit.HandleError(c, h.log, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	httpkit.Message(c, "Agent deleted successfully", nil)
}

func (h *Handler) Reconcile(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Reconcile(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, "Agent counters reconciled", result)
}
