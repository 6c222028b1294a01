package handler

import (
	"net/http"

	"crm_backend/internal/followups/service"
	"crm_backend/internal/followups/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidID        = "invalid follow-up id"
	msgValidationFailed = "validation failed"
	bodyKey             = "followup"
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
	rg.GET("/pending", h.Pending)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.PUT("/:id/complete", h.Complete)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListFollowUpsRequest
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

func (h *Handler) Pending(c *gin.Context) {
	var req transport.PendingFollowUpsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	items, err := h.svc.Pending(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Counted(c, items, len(items))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateFollowUpRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	followUp, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Created(c, "Follow-up created successfully", followUp)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	followUp, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, followUp)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateFollowUpRequest
	if err := httpkit.BindWrappedJSON(c, bodyKey, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	followUp, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, "Follow-up updated successfully", followUp)
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := httpkit.ParseUUIDParam(c, "id")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	followUp, err := h.svc.Complete(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Message(c, "Follow-up marked as completed", followUp)
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
	httpkit.Message(c, "Follow-up deleted successfully", nil)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}
