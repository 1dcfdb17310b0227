package handler

import (
	"net/http"
	"strings"

	"crmdesk/internal/domain"
	"crmdesk/internal/middleware"
	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Files accepted by the registration wizard.
var registrationFiles = []string{"profile_pic", "aadhar_card", "pan_card"}

type AuthHandler struct {
	authSvc *service.AuthService
	log     *zap.Logger
}

func NewAuthHandler(authSvc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, log: log}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	// The backend authenticates by username; older clients post it as email.
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.TrimSpace(req.Email)
	}
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	sc := middleware.GetSession(c)
	d, err := h.authSvc.Login(c.Request.Context(), sc, username, req.Password)
	if err != nil {
		h.log.Info("login failed", zap.String("username", username), zap.Error(err))
		// A rejected login is never a session expiry.
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     d,
		"redirect": homeFor(d.Role),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authSvc.Logout(c.Request.Context(), middleware.GetSession(c))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redirect": "/login"})
}

// LoginPage handles GET /login. With ?error=unauthenticated every trace of
// the old session is removed before the page state is returned.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	sc := middleware.GetSession(c)
	expired := c.Query("error") == "unauthenticated"
	if expired {
		sc.Clear(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"session_expired": true})
		return
	}
	if d, ok := sc.Current(); ok {
		c.JSON(http.StatusOK, gin.H{"session_expired": false, "user": d, "redirect": homeFor(d.Role)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_expired": false})
}

// Register handles POST /api/auth/register (multipart).
func (h *AuthHandler) Register(c *gin.Context) {
	form, cleanup, err := readForm(c, registrationFiles...)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if err := h.authSvc.Register(c.Request.Context(), form); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered", "redirect": "/login"})
}

// homeFor is the dashboard landing route of each role.
func homeFor(role string) string {
	return "/" + domain.RolePathSegment(role) + "/dashboard"
}
