package middleware

import (
	"net/http"

	"crmdesk/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	ctxSession = "session"
	ctxUserID  = "user_id"
	ctxRole    = "role"
)

// LoginRedirect is where the dashboard sends a user whose session is gone.
const LoginRedirect = "/login?error=unauthenticated"

// Unauthenticated aborts with the body the dashboard turns into a redirect.
func Unauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    "unauthenticated",
		"redirect": LoginRedirect,
	})
}

// LoadSession resolves the request's session without requiring one.
func LoadSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := sessions.Load(c.Writer, c.Request)
		c.Set(ctxSession, sc)
		if d, ok := sc.Current(); ok {
			c.Set(ctxUserID, d.UserID)
			c.Set(ctxRole, d.Role)
		}
		c.Next()
	}
}

// SessionRequired rejects requests without an active session. Stale cookies
// are cleared on the way out.
func SessionRequired(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := GetSession(c)
		if sc == nil {
			sc = sessions.Load(c.Writer, c.Request)
			c.Set(ctxSession, sc)
		}
		d, ok := sc.Current()
		if !ok {
			sc.Clear(c.Request.Context())
			Unauthenticated(c)
			return
		}
		c.Set(ctxUserID, d.UserID)
		c.Set(ctxRole, d.Role)
		c.Next()
	}
}

// RequireRole checks that the signed-in user has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			Unauthenticated(c)
			return
		}
		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// GetSession returns the request's session context, or nil before LoadSession.
func GetSession(c *gin.Context) *session.Context {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sc, _ := v.(*session.Context)
	return sc
}

// GetUserID returns the signed-in user's id (must be used after SessionRequired).
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}
