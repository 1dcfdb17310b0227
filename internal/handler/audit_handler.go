package handler

import (
	"context"
	"net/http"
	"strconv"

	"crmdesk/internal/models"
	"crmdesk/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditLister interface {
	List(ctx context.Context, f repository.AuditFilter, page, limit int) ([]models.AuditLog, int64, error)
}

type AuditHandler struct {
	repo AuditLister
	log  *zap.Logger
}

func NewAuditHandler(repo AuditLister, log *zap.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, log: log}
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// List handles GET /api/audit (admins only).
func (h *AuditHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	f := repository.AuditFilter{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		f.UserID = id
	}
	logs, total, err := h.repo.List(c.Request.Context(), f, page, limit)
	if err != nil {
		h.log.Error("list audit logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
