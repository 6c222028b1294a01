package handler

import (
	"net/http"

	"crm_backend/internal/leads/service"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger
}

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidID        = "invalid lead id"
	msgValidationFailed = "validation failed"
	msgCreated          = "Lead created successfully"
	msgUpdated          = "Lead updated successfully"
	msgAssigned         = "Lead assigned successfully"
	msgStatusUpdated    = "Lead status updated successfully"
	msgDeleted          = "Lead deleted successfully"
	bodyKey             = "lead"
)

func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/assign", h.Assign)
	rg.PUT("/:id/status", h.UpdateStatus)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.List(c, result.Items, httpkit.NewPagination(result.Total, result.Page, result.Limit))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Created(c, msgCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, msgUpdated, lead)
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AssignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Assign(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, msgAssigned, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.svc.ChangeStatus(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, msgStatusUpdated, lead)
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
	httpkit.Message(c, msgDeleted, nil)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}
