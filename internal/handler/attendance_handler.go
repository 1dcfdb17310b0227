package handler

import (
	"net/http"
	"strconv"

	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AttendanceHandler struct {
	attendanceSvc *service.AttendanceService
	log           *zap.Logger
}

func NewAttendanceHandler(attendanceSvc *service.AttendanceService, log *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, log: log}
}

// Month handles GET /api/attendance?month=yyyy-mm&user_id=n. Without
// user_id the caller's own calendar is shown.
func (h *AttendanceHandler) Month(c *gin.Context) {
	a := actor(c)
	userID := a.UserID
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = id
	}
	m, err := h.attendanceSvc.Month(c.Request.Context(), a, userID, c.Query("month"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
