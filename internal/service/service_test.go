package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"crmdesk/internal/backend"
	"crmdesk/internal/domain"
	"crmdesk/internal/leads"
	"crmdesk/internal/models"
	"crmdesk/internal/viewstate"
	"crmdesk/internal/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeBackend implements the calls the tests exercise; anything else panics
// through the nil embedded interface.
type fakeBackend struct {
	Backend

	mu          sync.Mutex
	leadCalls   int
	leadPage    models.PagedResult[models.Lead]
	leadGate    chan struct{}
	leadStarted chan struct{}
	userPage    models.PagedResult[models.User]
	userCalls   int
	statusErr   error
	updates     []leads.StatusUpdate
	exportErr   error
	toggleErr   error
	toggleRes   backend.ToggleResult
	toggleGate  chan struct{}
	slabs       []models.Slab
	earned      decimal.Decimal
	attendance  []models.AttendanceRecord
	attendedFor int64
}

func (f *fakeBackend) ListLeads(ctx context.Context, ts backend.TokenSource, q leads.Query) (models.PagedResult[models.Lead], error) {
	f.mu.Lock()
	f.leadCalls++
	p := f.leadPage
	p.Items = append([]models.Lead(nil), f.leadPage.Items...)
	gate, started := f.leadGate, f.leadStarted
	f.leadGate, f.leadStarted = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}
	return p, nil
}

func (f *fakeBackend) setLeadStatus(id int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leadPage.Items {
		if f.leadPage.Items[i].ID == id {
			f.leadPage.Items[i].Status = status
		}
	}
}

func (f *fakeBackend) UpdateLeadStatus(ctx context.Context, ts backend.TokenSource, u leads.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeBackend) ExportLeads(ctx context.Context, ts backend.TokenSource, r leads.ExportRequest) (*backend.Download, error) {
	return nil, f.exportErr
}

func (f *fakeBackend) ListUsers(ctx context.Context, ts backend.TokenSource, role string, page int) (models.PagedResult[models.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	p := f.userPage
	p.Items = append([]models.User(nil), f.userPage.Items...)
	return p, nil
}

func (f *fakeBackend) ToggleUser(ctx context.Context, ts backend.TokenSource, role string, id int64) (backend.ToggleResult, error) {
	if f.toggleGate != nil {
		<-f.toggleGate
	}
	return f.toggleRes, f.toggleErr
}

func (f *fakeBackend) Slabs(ctx context.Context, ts backend.TokenSource) ([]models.Slab, error) {
	return f.slabs, nil
}

func (f *fakeBackend) StaffEarnings(ctx context.Context, ts backend.TokenSource, staffID int64) (decimal.Decimal, error) {
	return f.earned, nil
}

func (f *fakeBackend) Attendance(ctx context.Context, ts backend.TokenSource, userID int64, month string) ([]models.AttendanceRecord, error) {
	f.attendedFor = userID
	return f.attendance, nil
}

type recordingNotifier struct {
	mu           sync.Mutex
	events       []ws.Event
	roles        [][]string
	disconnected []int64
}

func (n *recordingNotifier) BroadcastAll(ev ws.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) BroadcastToUser(userID int64, ev ws.Event) {
	n.BroadcastAll(ev)
}

func (n *recordingNotifier) BroadcastToRoles(ev ws.Event, roles ...string) {
	n.mu.Lock()
	n.roles = append(n.roles, roles)
	n.mu.Unlock()
	n.BroadcastAll(ev)
}

func (n *recordingNotifier) DisconnectUser(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnected = append(n.disconnected, userID)
	return 1
}

type auditSink struct {
	entries []*models.AuditLog
}

func (a *auditSink) Create(ctx context.Context, e *models.AuditLog) error {
	a.entries = append(a.entries, e)
	return nil
}

func newStore(t *testing.T) *viewstate.MemoryStore {
	s := viewstate.NewMemoryStore(time.Hour)
	t.Cleanup(s.Close)
	return s
}

func staffActor() Actor {
	return Actor{UserID: 7, Role: domain.RoleStaff}
}

func adminActor() Actor {
	return Actor{UserID: 1, Role: domain.RoleAdmin}
}

func strp(s string) *string { return &s }

func TestLeadListUsesCacheUntilRefresh(t *testing.T) {
	api := &fakeBackend{leadPage: models.PagedResult[models.Lead]{
		Items:    []models.Lead{{ID: 1, Name: "Asha", Status: "New"}, {ID: 2, Name: "Ravi", Status: "Lost"}},
		Total:    2,
		Page:     1,
		PageSize: 10,
	}}
	svc := NewLeadService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if first.Cached || first.Shown != 2 || first.Query.Source != domain.SourceAssociate {
		t.Errorf("first = %+v", first)
	}
	second, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{Search: "asha"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !second.Cached || second.Shown != 1 || second.Total != 2 {
		t.Errorf("second = cached %v shown %d total %d", second.Cached, second.Shown, second.Total)
	}
	if api.leadCalls != 1 {
		t.Errorf("backend calls = %d, want 1", api.leadCalls)
	}
	if _, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if api.leadCalls != 2 {
		t.Errorf("refresh did not refetch, calls = %d", api.leadCalls)
	}
}

func TestFollowUpsKeepOnlyInterested(t *testing.T) {
	api := &fakeBackend{leadPage: models.PagedResult[models.Lead]{
		Items: []models.Lead{
			{ID: 1, Status: domain.StatusInterested, FollowUpDate: strp("2026-10-19"), FollowUpTime: strp("10:00")},
			{ID: 2, Status: domain.StatusInterested},
			{ID: 3, Status: domain.StatusNew, FollowUpDate: strp("2026-10-19")},
		},
		Total: 3, Page: 1, PageSize: 10,
	}}
	svc := NewLeadService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop())

	table, err := svc.FollowUps(context.Background(), staffActor(), "today", leads.Query{}, ViewOptions{})
	if err != nil {
		t.Fatalf("FollowUps: %v", err)
	}
	if table.Query.Tag != domain.TagTodayFollow {
		t.Errorf("tag = %q", table.Query.Tag)
	}
	if table.Shown != 2 || table.Items[0].ID != 1 || table.Items[1].ID != 2 {
		t.Errorf("rows = %+v", table.Items)
	}
	if table.Items[1].FollowUpDateOut != "N/A" {
		t.Errorf("unscheduled row shows %q", table.Items[1].FollowUpDateOut)
	}

	_, err = svc.FollowUps(context.Background(), staffActor(), "yesterday", leads.Query{}, ViewOptions{})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown bucket err = %v", err)
	}
}

func TestUpdateStatusInvalidatesAndBroadcasts(t *testing.T) {
	api := &fakeBackend{leadPage: models.PagedResult[models.Lead]{Items: []models.Lead{{ID: 5, Status: "New"}}, Total: 1, Page: 1, PageSize: 10}}
	notify := &recordingNotifier{}
	audit := &auditSink{}
	svc := NewLeadService(api, newStore(t), notify, NewAuditService(audit, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{}); err != nil {
		t.Fatal(err)
	}
	res, err := svc.UpdateStatus(ctx, staffActor(), leads.StatusUpdate{LeadID: 5, Status: "interested", Message: "call back"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if res.Update.Status != domain.StatusInterested || !res.ScheduleMissing {
		t.Errorf("result = %+v", res)
	}
	if len(notify.events) != 1 || notify.events[0].Type != ws.EventLeadsRefetch {
		t.Errorf("events = %+v", notify.events)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != ActionLeadStatus {
		t.Errorf("audit = %+v", audit.entries)
	}
	table, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if table.Cached || api.leadCalls != 2 {
		t.Errorf("cached view survived a status change (cached=%v calls=%d)", table.Cached, api.leadCalls)
	}
}

func TestSlowFetchDoesNotOutliveStatusUpdate(t *testing.T) {
	api := &fakeBackend{
		leadPage:    models.PagedResult[models.Lead]{Items: []models.Lead{{ID: 5, Status: "New"}}, Total: 1, Page: 1, PageSize: 10},
		leadGate:    make(chan struct{}),
		leadStarted: make(chan struct{}),
	}
	gate, started := api.leadGate, api.leadStarted
	svc := NewLeadService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop())
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{})
		slow <- err
	}()
	<-started

	// The slow fetch has already read "New" when the update goes through.
	if _, err := svc.UpdateStatus(ctx, staffActor(), leads.StatusUpdate{LeadID: 5, Status: "Lost"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	api.setLeadStatus(5, "Lost")
	close(gate)
	if err := <-slow; err != nil {
		t.Fatalf("slow List: %v", err)
	}

	table, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if table.Cached || len(table.Items) != 1 {
		t.Fatalf("stale page served from cache: cached=%v rows=%d", table.Cached, len(table.Items))
	}
	if got := table.Items[0].Status; got != domain.StatusLost {
		t.Errorf("status = %q, want %q", got, domain.StatusLost)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	api := &fakeBackend{}
	svc := NewLeadService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop())
	_, err := svc.UpdateStatus(context.Background(), staffActor(), leads.StatusUpdate{LeadID: 5, Status: "pending"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if len(api.updates) != 0 {
		t.Error("invalid update reached the backend")
	}
}

func TestExportOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome leads.ExportOutcome
		wantErr bool
	}{
		{"no data", &backend.APIError{Status: http.StatusNotFound, Message: "none"}, leads.ExportNoData, false},
		{"server error", &backend.APIError{Status: http.StatusInternalServerError, Message: "boom"}, leads.ExportFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLeadService(&fakeBackend{exportErr: tt.err}, newStore(t), &recordingNotifier{}, nil, zap.NewNop())
			d, outcome, err := svc.Export(context.Background(), adminActor(), leads.ExportRequest{Status: "new"})
			if d != nil {
				t.Error("download returned on failure")
			}
			if outcome != tt.outcome || (err != nil) != tt.wantErr {
				t.Errorf("outcome = %v err = %v", outcome, err)
			}
		})
	}
}

func TestSnapshotNeedsFetchedTable(t *testing.T) {
	api := &fakeBackend{leadPage: models.PagedResult[models.Lead]{Items: []models.Lead{{ID: 1}}, Total: 1, Page: 1, PageSize: 10}}
	svc := NewLeadService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Snapshot(ctx, staffActor(), leads.Query{}, ViewOptions{}); !errors.Is(err, ErrNothingFetched) {
		t.Fatalf("err = %v, want ErrNothingFetched", err)
	}
	if _, err := svc.List(ctx, staffActor(), leads.Query{}, ViewOptions{}); err != nil {
		t.Fatal(err)
	}
	table, err := svc.Snapshot(ctx, staffActor(), leads.Query{}, ViewOptions{Refresh: true})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !table.Cached || api.leadCalls != 1 {
		t.Errorf("snapshot went to the backend (calls=%d)", api.leadCalls)
	}
}

func rosterBackend() *fakeBackend {
	return &fakeBackend{userPage: models.PagedResult[models.User]{
		Items:    []models.User{{ID: 3, Name: "Meena", UserActive: true}, {ID: 4, Name: "Kiran", UserActive: false}},
		Total:    2,
		Page:     1,
		PageSize: 10,
	}}
}

func TestUserListChecksRole(t *testing.T) {
	svc := NewUserService(rosterBackend(), newStore(t), nil, zap.NewNop())
	_, err := svc.List(context.Background(), Actor{UserID: 2, Role: domain.RoleTeamLeader}, domain.RoleAdmin, 1, "", false)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	table, err := svc.List(context.Background(), Actor{UserID: 2, Role: domain.RoleTeamLeader}, domain.RoleStaff, 1, "mee", false)
	if err != nil {
		t.Fatal(err)
	}
	if table.Shown != 1 || table.Total != 2 {
		t.Errorf("table = %+v", table)
	}
}

func TestToggleRevertsOnFailure(t *testing.T) {
	api := rosterBackend()
	api.toggleErr = &backend.APIError{Status: http.StatusBadRequest, Message: "cannot deactivate"}
	views := newStore(t)
	users := NewUserService(api, views, nil, zap.NewNop())
	toggles := NewToggleService(api, views, &recordingNotifier{}, nil, zap.NewNop(), time.Minute)
	ctx := context.Background()

	if _, err := users.List(ctx, adminActor(), domain.RoleStaff, 1, "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := toggles.Toggle(ctx, adminActor(), domain.RoleStaff, 3, 1); err == nil {
		t.Fatal("expected toggle error")
	}
	table, err := users.List(ctx, adminActor(), domain.RoleStaff, 1, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if !table.Cached || !table.Items[0].UserActive {
		t.Errorf("row not restored: %+v", table.Items[0])
	}
}

func TestToggleReconcilesWithServer(t *testing.T) {
	api := rosterBackend()
	api.toggleRes = backend.ToggleResult{Active: true, Reported: true}
	views := newStore(t)
	notify := &recordingNotifier{}
	users := NewUserService(api, views, nil, zap.NewNop())
	toggles := NewToggleService(api, views, notify, nil, zap.NewNop(), time.Minute)
	ctx := context.Background()

	if _, err := users.List(ctx, adminActor(), domain.RoleStaff, 1, "", false); err != nil {
		t.Fatal(err)
	}
	// Optimistically 3 flips to inactive, but the server says it is active.
	out, err := toggles.Toggle(ctx, adminActor(), domain.RoleStaff, 3, 1)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !out.Visible || !out.Known || !out.Active {
		t.Errorf("outcome = %+v", out)
	}
	table, _ := users.List(ctx, adminActor(), domain.RoleStaff, 1, "", false)
	if !table.Items[0].UserActive {
		t.Error("cached row does not match server state")
	}
	if len(notify.events) != 1 || notify.events[0].Type != ws.EventUserChanged {
		t.Errorf("events = %+v", notify.events)
	}
}

type sessionEnder struct{ ended []int64 }

func (e *sessionEnder) DeleteForUser(ctx context.Context, userID int64) error {
	e.ended = append(e.ended, userID)
	return nil
}

func TestToggleDeactivationEndsSessions(t *testing.T) {
	api := rosterBackend()
	api.toggleRes = backend.ToggleResult{Active: false, Reported: true}
	ender := &sessionEnder{}
	notify := &recordingNotifier{}
	toggles := NewToggleService(api, newStore(t), notify, nil, zap.NewNop(), time.Minute).
		EndSessionsOnDeactivate(ender)

	if _, err := toggles.Toggle(context.Background(), adminActor(), domain.RoleStaff, 3, 1); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(ender.ended) != 1 || ender.ended[0] != 3 {
		t.Errorf("ended = %v", ender.ended)
	}
	if len(notify.disconnected) != 1 || notify.disconnected[0] != 3 {
		t.Errorf("disconnected = %v", notify.disconnected)
	}

	api.toggleRes = backend.ToggleResult{Active: true, Reported: true}
	if _, err := toggles.Toggle(context.Background(), adminActor(), domain.RoleStaff, 4, 1); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(ender.ended) != 1 || len(notify.disconnected) != 1 {
		t.Errorf("activation ended sessions: %v, streams: %v", ender.ended, notify.disconnected)
	}
}

func TestToggleInFlight(t *testing.T) {
	api := rosterBackend()
	api.toggleGate = make(chan struct{})
	api.toggleRes = backend.ToggleResult{Active: false, Reported: true}
	toggles := NewToggleService(api, newStore(t), &recordingNotifier{}, nil, zap.NewNop(), time.Minute)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := toggles.Toggle(ctx, adminActor(), domain.RoleStaff, 3, 1)
		done <- err
	}()

	// Wait for the first toggle to hold the lock.
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err = toggles.Toggle(ctx, adminActor(), domain.RoleStaff, 3, 1)
		if errors.Is(err, ErrToggleInFlight) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(api.toggleGate)
	if !errors.Is(err, ErrToggleInFlight) {
		t.Fatalf("second toggle err = %v, want ErrToggleInFlight", err)
	}
	if err := <-done; err != nil && !errors.Is(err, viewstate.ErrMiss) {
		t.Errorf("first toggle err = %v", err)
	}
}

func TestIncentiveAccess(t *testing.T) {
	api := &fakeBackend{
		slabs: []models.Slab{
			{ID: 1, StartValue: decimal.NewFromInt(0), EndValue: decimal.NewFromInt(10000), Amount: decimal.NewFromInt(500)},
			{ID: 2, StartValue: decimal.NewFromInt(10001), FlatPercent: decimal.NewFromInt(10)},
		},
		earned: decimal.NewFromInt(20000),
	}
	svc := NewIncentiveService(api)
	ctx := context.Background()

	if _, err := svc.ForStaff(ctx, staffActor(), 99); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff viewing another: err = %v", err)
	}
	res, err := svc.ForStaff(ctx, staffActor(), 0)
	if err != nil {
		t.Fatalf("ForStaff: %v", err)
	}
	if res.StaffID != 7 || res.Slab == nil || res.Slab.ID != 2 || !res.Payout.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("result = %+v", res)
	}
	if _, err := svc.ForStaff(ctx, adminActor(), 99); err != nil {
		t.Errorf("admin viewing staff: %v", err)
	}
}

func TestAttendanceMonth(t *testing.T) {
	api := &fakeBackend{attendance: []models.AttendanceRecord{{Date: "2026-10-05", Status: "Present"}}}
	svc := NewAttendanceService(api)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	m, err := svc.Month(ctx, staffActor(), 0, "")
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if m.Month != "2026-10" || api.attendedFor != 7 {
		t.Errorf("month = %q user = %d", m.Month, api.attendedFor)
	}
	if _, err := svc.Month(ctx, staffActor(), 12, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Month(ctx, staffActor(), 0, "October"); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := NewAuthService(&fakeBackend{}, nil, zap.NewNop())
	err := svc.Register(context.Background(), backend.Form{Fields: map[string][]string{"name": {"A"}, "email": {"a@b.c"}}})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}
