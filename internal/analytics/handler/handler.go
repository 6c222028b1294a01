package handler

import (
	"net/http"

	"crm_backend/internal/analytics/service"
	"crm_backend/internal/analytics/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	log *logger.Logger
}

func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.Summary)
	rg.GET("/agents/performance", h.AgentPerformance)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, summary)
}

func (h *Handler) AgentPerformance(c *gin.Context) {
	var req transport.AgentPerformanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	perf, err := h.svc.AgentPerformance(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, perf)
}
