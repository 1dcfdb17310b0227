package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"crmdesk/internal/backend"
	"crmdesk/internal/domain"
	"crmdesk/internal/leads"
	"crmdesk/internal/models"
	"crmdesk/internal/viewstate"
	"crmdesk/internal/ws"

	"go.uber.org/zap"
)

// leadViewPrefix namespaces cached lead tables. Any mutation of a lead drops
// every user's cached tables since ownership and team views overlap.
const leadViewPrefix = "leads:"

// ViewOptions are the parts of a table request applied to the fetched page
// without going back to the backend.
type ViewOptions struct {
	Search  string `form:"search"`
	Status  string `form:"status"`
	SortBy  string `form:"sort"`
	Desc    bool   `form:"desc"`
	Refresh bool   `form:"refresh"`
}

// LeadRow is a lead with its display annotations.
type LeadRow struct {
	models.Lead
	Bucket          leads.Bucket        `json:"bucket,omitempty"`
	FollowUpDateOut string              `json:"follow_up_date_display"`
	FollowUpTimeOut string              `json:"follow_up_time_display"`
	StatusDisplay   leads.StatusDisplay `json:"status_display"`
	CanDial         bool                `json:"can_dial"`
}

// LeadTable is one rendered page of a lead report.
type LeadTable struct {
	Query     leads.Query `json:"query"`
	Items     []LeadRow   `json:"items"`
	Total     int         `json:"total"`
	Shown     int         `json:"shown"`
	Page      int         `json:"page"`
	Pages     int         `json:"pages"`
	PageSize  int         `json:"page_size"`
	Cached    bool        `json:"cached"`
	FetchedAt time.Time   `json:"fetched_at"`
	// Error is set when the fetch failed; Items is then empty.
	Error string `json:"error,omitempty"`
}

type LeadService struct {
	api    Backend
	views  viewstate.Store
	notify Notifier
	audit  *AuditService
	log    *zap.Logger
	now    func() time.Time
}

func NewLeadService(api Backend, views viewstate.Store, notify Notifier, audit *AuditService, log *zap.Logger) *LeadService {
	return &LeadService{api: api, views: views, notify: notify, audit: audit, log: log, now: time.Now}
}

func leadViewKey(a Actor, q leads.Query) string {
	return fmt.Sprintf("%s%d:%s", leadViewPrefix, a.UserID, q.Key())
}

// scope fills the caller context the backend filters by.
func scope(a Actor, q leads.Query) leads.Query {
	q = q.Normalize()
	if q.Source == "" {
		q.Source = domain.LeadSource(a.Role)
	}
	return q
}

// fetch returns the page for q, from the view cache unless refresh is set
// or nothing is cached.
func (s *LeadService) fetch(ctx context.Context, a Actor, q leads.Query, refresh bool) (models.PagedResult[models.Lead], viewstate.Entry, bool, error) {
	key := leadViewKey(a, q)
	if !refresh {
		page, e, err := viewstate.Load[models.PagedResult[models.Lead]](ctx, s.views, key)
		if err == nil {
			return page, e, true, nil
		}
		if !errors.Is(err, viewstate.ErrMiss) {
			s.log.Warn("view state read failed", zap.String("key", key), zap.Error(err))
		}
	}
	seq, err := viewstate.Begin(ctx, s.views, key)
	if err != nil {
		s.log.Warn("view state seq failed", zap.String("key", key), zap.Error(err))
	}
	page, err := s.api.ListLeads(ctx, a.Token, q)
	if err != nil {
		return page, viewstate.Entry{}, false, err
	}
	if seq > 0 {
		landed, err := viewstate.Save(ctx, s.views, key, seq, page)
		if err != nil {
			s.log.Warn("view state write failed", zap.String("key", key), zap.Error(err))
		} else if !landed {
			s.log.Debug("stale lead page discarded", zap.String("key", key), zap.Uint64("seq", seq))
		}
	}
	return page, viewstate.Entry{Seq: seq, StoredAt: s.now()}, false, nil
}

// List renders one page of a lead report. Search, status filter and sort
// only narrow or reorder the fetched rows.
func (s *LeadService) List(ctx context.Context, a Actor, q leads.Query, opts ViewOptions) (LeadTable, error) {
	q = scope(a, q)
	if err := q.Validate(); err != nil {
		return LeadTable{}, invalid(err)
	}
	page, entry, cached, err := s.fetch(ctx, a, q, opts.Refresh)
	if err != nil {
		return LeadTable{Query: q, Items: []LeadRow{}, Page: q.Page, PageSize: domain.DefaultPageSize}, err
	}
	rows := page.Items
	if leads.IsFollowUpTag(q.Tag) {
		kept := rows[:0:0]
		for _, l := range rows {
			if leads.CanAppearInFollowUps(l) {
				kept = append(kept, l)
			}
		}
		rows = kept
	}
	rows = leads.FilterStatus(rows, opts.Status)
	rows = leads.Search(rows, opts.Search)
	rows, err = leads.Sort(rows, opts.SortBy, opts.Desc)
	if err != nil {
		return LeadTable{}, invalid(err)
	}
	return LeadTable{
		Query:     q,
		Items:     s.annotate(rows),
		Total:     page.Total,
		Shown:     len(rows),
		Page:      page.Page,
		Pages:     page.Pages(),
		PageSize:  page.PageSize,
		Cached:    cached,
		FetchedAt: entry.StoredAt,
	}, nil
}

// FollowUps lists one follow-up bucket. Each bucket is its own backend query.
func (s *LeadService) FollowUps(ctx context.Context, a Actor, bucket string, q leads.Query, opts ViewOptions) (LeadTable, error) {
	b, ok := leads.ParseBucket(bucket)
	if !ok {
		return LeadTable{}, invalid(fmt.Errorf("unknown follow-up bucket %q", bucket))
	}
	q.Tag = b.Tag()
	return s.List(ctx, a, q, opts)
}

func (s *LeadService) annotate(rows []models.Lead) []LeadRow {
	now := s.now()
	out := make([]LeadRow, len(rows))
	for i, l := range rows {
		date, clock := leads.FollowUpDisplay(l)
		out[i] = LeadRow{
			Lead:            l,
			Bucket:          leads.Classify(l, now),
			FollowUpDateOut: date,
			FollowUpTimeOut: clock,
			StatusDisplay:   leads.DisplayFor(l.Status),
			CanDial:         l.HasPhone(),
		}
	}
	return out
}

// StatusResult reports an accepted status update.
type StatusResult struct {
	Update leads.StatusUpdate `json:"update"`
	// ScheduleMissing flags an Intrested lead saved without a follow-up date
	// or time. It is accepted but will not show in any follow-up bucket.
	ScheduleMissing bool `json:"schedule_missing"`
}

// UpdateStatus validates and submits a status change, then makes every open
// table refetch. The cached rows are never patched in place.
func (s *LeadService) UpdateStatus(ctx context.Context, a Actor, u leads.StatusUpdate) (StatusResult, error) {
	u, err := leads.ValidateStatusUpdate(u)
	if err != nil {
		return StatusResult{}, invalid(err)
	}
	if err := s.api.UpdateLeadStatus(ctx, a.Token, u); err != nil {
		return StatusResult{}, err
	}
	s.afterLeadChange(ctx)
	s.audit.Record(ctx, a, ActionLeadStatus, "lead", strconv.FormatInt(u.LeadID, 10), map[string]interface{}{
		"status":         u.Status,
		"follow_up_date": u.FollowUpDate,
		"follow_up_time": u.FollowUpTime,
	})
	return StatusResult{Update: u, ScheduleMissing: u.ScheduleMissing()}, nil
}

// Assign hands a lead to a staff member with the same refetch semantics as
// a status update.
func (s *LeadService) Assign(ctx context.Context, a Actor, leadID, staffID int64) error {
	if leadID <= 0 {
		return invalid(leads.ErrMissingLead)
	}
	if staffID <= 0 {
		return invalid(errors.New("staff id is required"))
	}
	if err := s.api.AssignLead(ctx, a.Token, leadID, staffID); err != nil {
		return err
	}
	s.afterLeadChange(ctx)
	s.notify.BroadcastToUser(staffID, ws.Event{Type: ws.EventLeadsRefetch, Data: map[string]int64{"assigned_lead": leadID}})
	s.audit.Record(ctx, a, ActionLeadAssign, "lead", strconv.FormatInt(leadID, 10), map[string]interface{}{"staff_id": staffID})
	return nil
}

func (s *LeadService) afterLeadChange(ctx context.Context) {
	if err := s.views.InvalidatePrefix(ctx, leadViewPrefix); err != nil {
		s.log.Warn("lead view invalidation failed", zap.Error(err))
	}
	s.notify.BroadcastAll(ws.Event{Type: ws.EventLeadsRefetch})
}

// Export asks the backend for a spreadsheet. A 404 is not an error: the
// outcome says there was nothing to export.
func (s *LeadService) Export(ctx context.Context, a Actor, r leads.ExportRequest) (*backend.Download, leads.ExportOutcome, error) {
	r, err := r.Normalize()
	if err != nil {
		return nil, leads.ExportFailed, invalid(err)
	}
	d, err := s.api.ExportLeads(ctx, a.Token, r)
	outcome := leads.ExportOK
	if err != nil {
		outcome = leads.OutcomeForStatus(backend.StatusOf(err))
		if outcome == leads.ExportNoData {
			return nil, outcome, nil
		}
		if outcome == leads.ExportOK {
			outcome = leads.ExportFailed
		}
		return nil, outcome, err
	}
	s.audit.Record(ctx, a, ActionLeadExport, "lead", "", map[string]interface{}{
		"status":         r.Status,
		"start_date":     r.StartDate,
		"end_date":       r.EndDate,
		"all_interested": r.AllInterested,
	})
	return d, outcome, nil
}

// Snapshot returns the rows of the table the user last loaded for q, as
// rendered with opts, without querying the backend.
func (s *LeadService) Snapshot(ctx context.Context, a Actor, q leads.Query, opts ViewOptions) (LeadTable, error) {
	q = scope(a, q)
	if err := q.Validate(); err != nil {
		return LeadTable{}, invalid(err)
	}
	if _, err := s.views.Get(ctx, leadViewKey(a, q)); err != nil {
		if errors.Is(err, viewstate.ErrMiss) {
			return LeadTable{}, ErrNothingFetched
		}
		return LeadTable{}, err
	}
	opts.Refresh = false
	return s.List(ctx, a, q, opts)
}
