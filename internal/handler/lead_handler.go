package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crmdesk/internal/backend"
	"crmdesk/internal/export"
	"crmdesk/internal/leads"
	"crmdesk/internal/models"
	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeadHandler struct {
	leadSvc *service.LeadService
	log     *zap.Logger
}

func NewLeadHandler(leadSvc *service.LeadService, log *zap.Logger) *LeadHandler {
	return &LeadHandler{leadSvc: leadSvc, log: log}
}

func bindTableRequest(c *gin.Context) (leads.Query, service.ViewOptions, bool) {
	var q leads.Query
	var opts service.ViewOptions
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return q, opts, false
	}
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return q, opts, false
	}
	return q, opts, true
}

// List handles GET /api/leads.
func (h *LeadHandler) List(c *gin.Context) {
	q, opts, ok := bindTableRequest(c)
	if !ok {
		return
	}
	table, err := h.leadSvc.List(c.Request.Context(), actor(c), q, opts)
	h.respondTable(c, table, err)
}

// FollowUps handles GET /api/leads/followups/:bucket.
func (h *LeadHandler) FollowUps(c *gin.Context) {
	q, opts, ok := bindTableRequest(c)
	if !ok {
		return
	}
	table, err := h.leadSvc.FollowUps(c.Request.Context(), actor(c), c.Param("bucket"), q, opts)
	h.respondTable(c, table, err)
}

// respondTable renders a failed backend fetch as an empty table carrying the
// error, so the page shows it inline. Session and request errors are
// handled as everywhere else.
func (h *LeadHandler) respondTable(c *gin.Context, table service.LeadTable, err error) {
	if err == nil {
		c.JSON(http.StatusOK, table)
		return
	}
	if !isFetchFailure(err) {
		respondError(c, h.log, err)
		return
	}
	status := http.StatusBadGateway
	table.Error = "could not load leads, please try again"
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		table.Error = apiErr.Message
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
	}
	h.log.Warn("lead fetch failed", zap.String("tag", table.Query.Tag), zap.Error(err))
	c.JSON(status, table)
}

// UpdateStatus handles POST /api/leads/:id/status.
func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status       string `json:"status" binding:"required,leadstatus"`
		Message      string `json:"message"`
		FollowUpDate string `json:"follow_up_date"`
		FollowUpTime string `json:"follow_up_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of " + strings.Join(leads.Statuses(), ", ")})
		return
	}
	res, err := h.leadSvc.UpdateStatus(c.Request.Context(), actor(c), leads.StatusUpdate{
		LeadID:       id,
		Status:       req.Status,
		Message:      req.Message,
		FollowUpDate: req.FollowUpDate,
		FollowUpTime: req.FollowUpTime,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Assign handles PATCH /api/leads/:id/assign.
func (h *LeadHandler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		StaffID int64 `json:"assigned_to" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assigned_to is required"})
		return
	}
	if err := h.leadSvc.Assign(c.Request.Context(), actor(c), id, req.StaffID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "assigned_to": req.StaffID})
}

// Export handles POST /api/leads/export and streams the backend spreadsheet.
func (h *LeadHandler) Export(c *gin.Context) {
	var req struct {
		Status        string `json:"status" binding:"required"`
		StartDate     string `json:"start_date" binding:"ymd"`
		EndDate       string `json:"end_date" binding:"ymd"`
		AllInterested bool   `json:"all_interested"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required and dates must be yyyy-mm-dd"})
		return
	}
	d, outcome, err := h.leadSvc.Export(c.Request.Context(), actor(c), leads.ExportRequest(req))
	if err != nil {
		if errors.Is(err, service.ErrInvalid) || errors.Is(err, backend.ErrNoToken) || errors.Is(err, backend.ErrUnauthenticated) {
			respondError(c, h.log, err)
			return
		}
		h.log.Warn("lead export failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": outcome.Message()})
		return
	}
	if outcome == leads.ExportNoData {
		c.JSON(http.StatusNotFound, gin.H{"error": outcome.Message()})
		return
	}
	defer d.Close()

	c.Header("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	c.DataFromReader(http.StatusOK, d.ContentLength, d.ContentType, d.Body, nil)
}

// Snapshot handles GET /api/leads/export.xlsx. It writes the rows of the
// table the user last loaded, as filtered and sorted now.
func (h *LeadHandler) Snapshot(c *gin.Context) {
	q, opts, ok := bindTableRequest(c)
	if !ok {
		return
	}
	table, err := h.leadSvc.Snapshot(c.Request.Context(), actor(c), q, opts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	rows := make([]models.Lead, len(table.Items))
	for i, r := range table.Items {
		rows[i] = r.Lead
	}
	var buf bytes.Buffer
	if err := export.WriteLeads(&buf, rows); err != nil {
		h.log.Error("write lead snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build spreadsheet"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(table.Query.Tag, time.Now())+`"`)
	c.Header("X-Row-Count", strconv.Itoa(len(rows)))
	c.DataFromReader(http.StatusOK, int64(buf.Len()), export.ContentType, io.Reader(&buf), nil)
}
