package handler

import (
	"net/http"

	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IncentiveHandler struct {
	incentiveSvc *service.IncentiveService
	log          *zap.Logger
}

func NewIncentiveHandler(incentiveSvc *service.IncentiveService, log *zap.Logger) *IncentiveHandler {
	return &IncentiveHandler{incentiveSvc: incentiveSvc, log: log}
}

// Slabs handles GET /api/incentives/slabs.
func (h *IncentiveHandler) Slabs(c *gin.Context) {
	slabs, err := h.incentiveSvc.Slabs(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slabs": slabs})
}

// Staff handles GET /api/incentives/staff/:id.
func (h *IncentiveHandler) Staff(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.incentiveSvc.ForStaff(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
