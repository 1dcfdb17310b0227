package handler

import (
	"net/http"
	"strings"

	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPictureSize = 5 << 20

type ProfileHandler struct {
	profileSvc *service.ProfileService
	log        *zap.Logger
}

func NewProfileHandler(profileSvc *service.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc, log: log}
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profileSvc.Get(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PATCH /api/profile (multipart, optional profile_pic).
func (h *ProfileHandler) Update(c *gin.Context) {
	form, cleanup, err := readForm(c)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	var pic *service.Picture
	if fh, err := c.FormFile("profile_pic"); err == nil {
		if fh.Size > maxPictureSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile picture must be 5MB or smaller"})
			return
		}
		ct := fh.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile picture must be an image"})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read profile picture"})
			return
		}
		defer file.Close()
		pic = &service.Picture{Filename: fh.Filename, ContentType: ct, Content: file}
	}

	p, err := h.profileSvc.Update(c.Request.Context(), actor(c), form, pic)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
