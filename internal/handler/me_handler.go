package handler

import (
	"net/http"

	"crmdesk/internal/domain"
	"crmdesk/internal/leads"
	"crmdesk/internal/middleware"

	"github.com/gin-gonic/gin"
)

// MeHandler describes the signed-in user and what the dashboard may show them.
type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// Me handles GET /api/me.
func (h *MeHandler) Me(c *gin.Context) {
	d, _ := middleware.GetSession(c).Current()
	managed := domain.ManagedRoles[d.Role]
	if managed == nil {
		managed = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          d,
		"home":          homeFor(d.Role),
		"managed_roles": managed,
	})
}

// Vocabulary handles GET /api/leads/vocabulary: the statuses a lead can be
// moved to and the follow-up buckets.
func (h *MeHandler) Vocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"statuses":         leads.Statuses(),
		"followup_buckets": leads.Buckets(),
		"page_size":        domain.DefaultPageSize,
	})
}
