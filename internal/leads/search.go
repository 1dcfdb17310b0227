package leads

import (
	"errors"
	"sort"
	"strings"

	"crmdesk/internal/models"
)

var ErrUnknownSortField = errors.New("unknown sort field")

// Search keeps the rows whose name, email or phone contains term,
// case-insensitively. It never adds rows: the result is a subset of rows in
// the original order. An empty term returns all rows.
func Search(rows []models.Lead, term string) []models.Lead {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Lead, 0, len(rows))
	for _, r := range rows {
		if term == "" ||
			strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.Email), term) ||
			strings.Contains(strings.ToLower(r.Call), term) {
			out = append(out, r)
		}
	}
	return out
}

// FilterStatus keeps rows with the given status; empty keeps everything.
func FilterStatus(rows []models.Lead, status string) []models.Lead {
	if strings.TrimSpace(status) == "" {
		return rows
	}
	want, ok := Canonical(status)
	if !ok {
		return []models.Lead{}
	}
	out := make([]models.Lead, 0, len(rows))
	for _, r := range rows {
		if c, _ := Canonical(r.Status); c == want {
			out = append(out, r)
		}
	}
	return out
}

var sortKeys = map[string]func(models.Lead) string{
	"name":   func(l models.Lead) string { return strings.ToLower(l.Name) },
	"email":  func(l models.Lead) string { return strings.ToLower(l.Email) },
	"call":   func(l models.Lead) string { return l.Call },
	"status": func(l models.Lead) string { return l.Status },
	"follow_up_date": func(l models.Lead) string {
		d, _ := FollowUpDisplay(l)
		if d == NotAvailable {
			return ""
		}
		return d
	},
	"created_date": func(l models.Lead) string { return l.CreatedDate },
	"updated_date": func(l models.Lead) string { return l.UpdatedDate },
}

// Sort returns a sorted copy of rows. An empty field keeps the fetched order.
func Sort(rows []models.Lead, field string, desc bool) ([]models.Lead, error) {
	out := make([]models.Lead, len(rows))
	copy(out, rows)
	if field == "" {
		return out, nil
	}
	if field == "id" {
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		})
		return out, nil
	}
	key, ok := sortKeys[field]
	if !ok {
		return nil, ErrUnknownSortField
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	return out, nil
}
