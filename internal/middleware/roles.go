package middleware

import (
	"net/http"

	"crmdesk/internal/domain"

	"github.com/gin-gonic/gin"
)

// ManagesRoleParam checks that the signed-in user may manage accounts of the
// role named by the :role path parameter. Path segments like "team-leader"
// are accepted and stored back as the role name.
func ManagesRoleParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		target := domain.RoleFromPathSegment(c.Param("role"))
		if !domain.CanManage(GetRole(c), target) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you cannot manage this role"})
			return
		}
		c.Set("target_role", target)
		c.Next()
	}
}

// TargetRole returns the role resolved by ManagesRoleParam.
func TargetRole(c *gin.Context) string {
	return c.GetString("target_role")
}
