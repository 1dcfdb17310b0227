package handler

import (
	"net/http"

	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashSvc *service.DashboardService
	log     *zap.Logger
}

func NewDashboardHandler(dashSvc *service.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashSvc: dashSvc, log: log}
}

// KPIs handles GET /api/dashboard.
func (h *DashboardHandler) KPIs(c *gin.Context) {
	kpis, err := h.dashSvc.KPIs(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}
