package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crmdesk/internal/leads"

	"github.com/shopspring/decimal"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestNoTokenFailsBeforeNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := c.ListLeads(context.Background(), staticToken(""), leads.Query{})
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if called {
		t.Fatal("backend was called without a token")
	}
}

func TestTokenHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	if _, err := c.ListLeads(context.Background(), staticToken("abc123"), leads.Query{}); err != nil {
		t.Fatal(err)
	}
	if got != "Token abc123" {
		t.Errorf("Authorization = %q, want %q", got, "Token abc123")
	}
}

func TestListLeadsQueryAndEnvelope(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/api/leads/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		query = r.URL.RawQuery
		w.Write([]byte(`{"count": 23, "results": [
			{"id": 1, "name": "Asha", "status": "Intrested", "follow_up_date": "2026-10-19", "assigned_to": 4, "assigned_to_name": "Ravi"},
			{"id": 2, "name": "Bo", "status": "New", "follow_up_date": null, "assigned_to": null}
		]}`))
	})
	res, err := c.ListLeads(context.Background(), staticToken("t"), leads.Query{Tag: "interested", Source: "admin", Page: 3})
	if err != nil {
		t.Fatal(err)
	}
	if query != "page=3&source=admin&tag=interested" {
		t.Errorf("query = %q", query)
	}
	if res.Total != 23 || res.Page != 3 || res.Pages() != 3 || len(res.Items) != 2 {
		t.Fatalf("result = %+v", res)
	}
	first := res.Items[0]
	if first.AssignedTo == nil || first.AssignedTo.ID != 4 || first.AssignedTo.Name != "Ravi" {
		t.Errorf("assignee = %+v", first.AssignedTo)
	}
	if res.Items[1].AssignedTo != nil || res.Items[1].FollowUpDate != nil {
		t.Errorf("second lead = %+v", res.Items[1])
	}
}

func TestDecodePagedShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		total int
		items int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2, 2},
		{"results count", `{"results":[{"id":1}],"count":9}`, 9, 1},
		{"data array total", `{"data":[{"id":1}],"total":4}`, 4, 1},
		{"nested data", `{"success":true,"data":{"leads":[{"id":1},{"id":2}],"total_count":12}}`, 12, 2},
		{"outer total nested items", `{"count":7,"data":{"items":[{"id":1}]}}`, 7, 1},
		{"empty object", `{}`, 0, 0},
		{"null", `null`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decodePaged[struct{ ID int }](json.RawMessage(tt.body), 1, 10)
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != tt.total || len(res.Items) != tt.items {
				t.Errorf("total=%d items=%d, want %d/%d", res.Total, len(res.Items), tt.total, tt.items)
			}
			if res.Items == nil {
				t.Error("Items must never be nil")
			}
		})
	}
	if _, err := decodePaged[struct{}](json.RawMessage(`"oops"`), 1, 10); err == nil {
		t.Error("string body should fail")
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"not found", 404, `{"detail":"Not found."}`, ErrNotFound, "Not found."},
		{"unauthenticated", 401, `{"detail":"Invalid token."}`, ErrUnauthenticated, "Invalid token."},
		{"field errors", 400, `{"mobile":["invalid"],"email":["taken","bad"]}`, nil, "email: taken, bad; mobile: invalid"},
		{"html", 502, `<h1>Bad Gateway</h1>`, nil, "<h1>Bad Gateway</h1>"},
		{"empty", 500, ``, nil, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			err := c.AssignLead(context.Background(), staticToken("t"), 1, 2)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if StatusOf(err) != tt.status {
				t.Errorf("StatusOf = %d", StatusOf(err))
			}
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestFlattenErrorBody(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"non_field_errors":["Unable to log in."]}`, "Unable to log in."},
		{`{"success":false,"message":"Lead not assigned"}`, "Lead not assigned"},
		{`{"errors":{"email":["required"]}}`, "errors: email: required"},
		{`["a","b"]`, `["a","b"]`},
		{`plain text`, "plain text"},
		{`{"count":0}`, "count: 0"},
	}
	for _, tt := range tests {
		if got := FlattenErrorBody([]byte(tt.body), 400); got != tt.want {
			t.Errorf("FlattenErrorBody(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestUpdateLeadStatusPayload(t *testing.T) {
	var body map[string]any
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"success":true}`))
	})
	err := c.UpdateLeadStatus(context.Background(), staticToken("t"), leads.StatusUpdate{LeadID: 42, Status: "Lost"})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/accounts/api/leads/42/status/" {
		t.Errorf("path = %s", path)
	}
	if body["status"] != "Lost" || body["follow_up_date"] != nil || body["follow_up_time"] != nil {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["follow_up_date"]; !ok {
		t.Error("follow_up_date must be sent as null")
	}
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("login must be anonymous")
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if _, ok := creds["email"]; ok {
			t.Error("login body must not carry an email key")
		}
		if creds["username"] != "Agent.Seven" {
			t.Errorf("username = %q, want it sent verbatim", creds["username"])
		}
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"non_field_errors":["Invalid credentials"]}`))
			return
		}
		w.Write([]byte(`{"message":"ok","data":{"token_detail":"tok","id":7,"email":"a@b.c","name":"A","is_team_leader":true}}`))
	})
	data, err := c.Login(context.Background(), "Agent.Seven", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if data.TokenDetail != "tok" || data.ID != 7 || !data.IsTeamLeader {
		t.Errorf("data = %+v", data)
	}
	_, err = c.Login(context.Background(), "Agent.Seven", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Errorf("err = %v", err)
	}
}

func TestToggleUser(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ToggleResult
	}{
		{"reported", `{"user_active": false}`, ToggleResult{Active: false, Reported: true}},
		{"wrapped", `{"data":{"user_active": true}}`, ToggleResult{Active: true, Reported: true}},
		{"missing", `{"success": true}`, ToggleResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/accounts/users/team-leader/9/toggle-status/" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			})
			got, err := c.ToggleUser(context.Background(), staticToken("t"), "team_leader", 9)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAddUserMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Error(err)
			return
		}
		if r.FormValue("name") != "Meera" {
			t.Errorf("name = %q", r.FormValue("name"))
		}
		f, hdr, err := r.FormFile("profile_pic")
		if err != nil {
			t.Error(err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if hdr.Filename != "me.png" || string(b) != "png-bytes" {
			t.Errorf("file = %s %q", hdr.Filename, b)
		}
		w.WriteHeader(http.StatusCreated)
	})
	err := c.AddUser(context.Background(), staticToken("t"), "staff", Form{
		Fields: map[string][]string{"name": {"Meera"}},
		Files:  []File{{Field: "profile_pic", Filename: "me.png", Content: strings.NewReader("png-bytes")}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExportLeads(t *testing.T) {
	t.Run("stream", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("all_interested") != "1" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Disposition", `attachment; filename="interested.xlsx"`)
			w.Write([]byte("xlsx"))
		})
		d, err := c.ExportLeads(context.Background(), staticToken("t"), leads.ExportRequest{Status: "Intrested", AllInterested: true})
		if err != nil {
			t.Fatal(err)
		}
		defer d.Close()
		b, _ := io.ReadAll(d.Body)
		if string(b) != "xlsx" || d.Filename != "interested.xlsx" {
			t.Errorf("download = %q %s", b, d.Filename)
		}
	})
	t.Run("no data", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.ExportLeads(context.Background(), staticToken("t"), leads.ExportRequest{Status: "Lost"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v", err)
		}
		if leads.OutcomeForStatus(StatusOf(err)) != leads.ExportNoData {
			t.Error("404 must map to ExportNoData")
		}
	})
}

func TestAttendanceNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("month") != "2026-10" || r.URL.Query().Get("user_id") != "3" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusNotFound)
	})
	recs, err := c.Attendance(context.Background(), staticToken("t"), 3, "2026-10")
	if err != nil {
		t.Fatal(err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("records = %v", recs)
	}
}

func TestDashboardKPIs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/dashboard/admin/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"visit":2,"total_leads":40,"site_visits_done":"5","note":"x"}}`))
	})
	kpis, err := c.Dashboard(context.Background(), staticToken("t"), "admin")
	if err != nil {
		t.Fatal(err)
	}
	if len(kpis) != 3 {
		t.Fatalf("kpis = %+v", kpis)
	}
	if kpis[0].Key != "total_leads" || kpis[0].Value.String() != "40" || kpis[0].Tag != "total_leads" {
		t.Errorf("first = %+v", kpis[0])
	}
	if kpis[1].Key != "visit" {
		t.Errorf("second = %+v", kpis[1])
	}
	if kpis[2].Label != "Site Visits Done" || kpis[2].Tag != "" {
		t.Errorf("extra = %+v", kpis[2])
	}
}

func TestSlabsAndEarnings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/api/slabs/":
			w.Write([]byte(`[{"id":1,"start_value":"0","end_value":"10000","amount":"500","flat_percent":"0"},{"id":2,"start_value":10001,"end_value":null,"amount":0,"flat_percent":2.5}]`))
		case "/accounts/api/staff/4/earnings/":
			w.Write([]byte(`{"total_earn":"12000.50"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	slabs, err := c.Slabs(context.Background(), staticToken("t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(slabs) != 2 || !slabs[1].Unbounded() || !slabs[1].FlatPercent.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("slabs = %+v", slabs)
	}
	earned, err := c.StaffEarnings(context.Background(), staticToken("t"), 4)
	if err != nil {
		t.Fatal(err)
	}
	if !earned.Equal(decimal.RequireFromString("12000.5")) {
		t.Errorf("earned = %s", earned)
	}
}
