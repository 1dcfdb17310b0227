package handler

import (
	"net/http"

	"crmdesk/internal/middleware"
	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var userFiles = []string{"profile_pic", "aadhar_card", "pan_card"}

type UserHandler struct {
	userSvc   *service.UserService
	toggleSvc *service.ToggleService
	log       *zap.Logger
}

func NewUserHandler(userSvc *service.UserService, toggleSvc *service.ToggleService, log *zap.Logger) *UserHandler {
	return &UserHandler{userSvc: userSvc, toggleSvc: toggleSvc, log: log}
}

// List handles GET /api/users/:role.
func (h *UserHandler) List(c *gin.Context) {
	role := middleware.TargetRole(c)
	refresh := c.Query("refresh") == "1" || c.Query("refresh") == "true"
	table, err := h.userSvc.List(c.Request.Context(), actor(c), role, parsePage(c), c.Query("search"), refresh)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// Create handles POST /api/users/:role (multipart).
func (h *UserHandler) Create(c *gin.Context) {
	form, cleanup, err := readForm(c, userFiles...)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if err := h.userSvc.Create(c.Request.Context(), actor(c), middleware.TargetRole(c), form); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// Edit handles PATCH /api/users/:role/:id.
func (h *UserHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.userSvc.Edit(c.Request.Context(), actor(c), middleware.TargetRole(c), id, fields); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "id": id})
}

// Toggle handles POST /api/users/:role/:id/toggle.
func (h *UserHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.toggleSvc.Toggle(c.Request.Context(), actor(c), middleware.TargetRole(c), id, parsePage(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
