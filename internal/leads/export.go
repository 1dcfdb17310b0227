package leads

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var ErrExportStatus = errors.New("export needs a status")

// ExportRequest asks the backend for a spreadsheet of leads. AllInterested
// widens the scope from one staff member to the whole team.
type ExportRequest struct {
	Status        string `json:"status"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	AllInterested bool   `json:"all_interested"`
}

// Normalize canonicalizes the status and validates the date range.
func (r ExportRequest) Normalize() (ExportRequest, error) {
	if strings.TrimSpace(r.Status) == "" {
		return r, ErrExportStatus
	}
	status, ok := Canonical(r.Status)
	if !ok {
		return r, ErrUnknownStatus
	}
	r.Status = status
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	if err := validateRange(r.StartDate, r.EndDate); err != nil {
		return r, err
	}
	return r, nil
}

// Values encodes the request. all_interested is sent as "1" only when set.
func (r ExportRequest) Values() url.Values {
	v := url.Values{}
	v.Set("status", r.Status)
	if r.StartDate != "" {
		v.Set("start_date", r.StartDate)
	}
	if r.EndDate != "" {
		v.Set("end_date", r.EndDate)
	}
	if r.AllInterested {
		v.Set("all_interested", "1")
	}
	return v
}

// ExportOutcome is what the user is told after an export request.
type ExportOutcome int

const (
	ExportOK ExportOutcome = iota
	ExportNoData
	ExportFailed
)

// OutcomeForStatus maps the backend HTTP status of an export call.
func OutcomeForStatus(code int) ExportOutcome {
	switch {
	case code >= 200 && code < 300:
		return ExportOK
	case code == http.StatusNotFound:
		return ExportNoData
	default:
		return ExportFailed
	}
}

func (o ExportOutcome) Message() string {
	switch o {
	case ExportOK:
		return "Export ready"
	case ExportNoData:
		return "No leads found for the selected status and dates"
	default:
		return "Export failed, please try again"
	}
}
