package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"crmdesk/internal/domain"
	"crmdesk/internal/models"
)

type kpiDef struct {
	key   string
	label string
	tag   string
}

// Cards in display order. Keys the backend sends beyond these are appended
// in key order with a label derived from the key.
var kpiDefs = []kpiDef{
	{"total_leads", "Total Leads", domain.TagTotalLeads},
	{"new", "New", domain.TagNew},
	{"contacted", "Contacted", domain.TagContacted},
	{"interested", "Interested", domain.TagInterested},
	{"not_interested", "Not Interested", domain.TagNotInterested},
	{"lost", "Lost", domain.TagLost},
	{"visit", "Visit", domain.TagVisit},
	{"other_location", "Other Location", domain.TagOtherLocation},
	{"not_picked", "Not Picked", domain.TagNotPicked},
	{"pending_follow", "Pending Follow-ups", domain.TagPendingFollow},
	{"today_follow", "Today's Follow-ups", domain.TagTodayFollow},
	{"tommorrow_follow", "Tomorrow's Follow-ups", domain.TagTomorrowFollow},
	{"total_admins", "Admins", ""},
	{"total_team_leaders", "Team Leaders", ""},
	{"total_staff", "Staff", ""},
	{"total_freelancers", "Freelancers", ""},
}

func dashboardPath(role string) string {
	return "/accounts/dashboard/" + domain.RolePathSegment(role) + "/"
}

// Dashboard fetches the KPI counters for role's landing page.
func (c *Client) Dashboard(ctx context.Context, ts TokenSource, role string) ([]models.KPI, error) {
	var raw json.RawMessage
	if err := c.do(ctx, ts, request{method: http.MethodGet, path: dashboardPath(role)}, &raw); err != nil {
		return nil, err
	}
	return decodeKPIs(unwrapData(raw))
}

func decodeKPIs(raw json.RawMessage) ([]models.KPI, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var counters map[string]any
	if err := dec.Decode(&counters); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	values := make(map[string]json.Number, len(counters))
	for k, v := range counters {
		switch n := v.(type) {
		case json.Number:
			values[k] = n
		case string:
			if _, err := json.Number(n).Float64(); err == nil {
				values[k] = json.Number(n)
			}
		}
	}

	out := make([]models.KPI, 0, len(values))
	seen := make(map[string]bool, len(kpiDefs))
	for _, d := range kpiDefs {
		seen[d.key] = true
		if v, ok := values[d.key]; ok {
			out = append(out, models.KPI{Key: d.key, Label: d.label, Value: v, Tag: d.tag})
		}
	}
	var extra []string
	for k := range values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, models.KPI{Key: k, Label: labelFor(k), Value: values[k]})
	}
	return out, nil
}

func labelFor(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
