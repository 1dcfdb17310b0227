// Package leads holds the lead lifecycle rules of the dashboard: the status
// vocabulary, follow-up classification, query construction, client-side
// search and export request shaping. Nothing here performs I/O.
package leads

import (
	"errors"
	"strings"
	"time"

	"crmdesk/internal/domain"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrUnknownStatus    = errors.New("unknown lead status")
	ErrFilterOnlyStatus = errors.New("status can only be used as a filter")
	ErrBadFollowUpDate  = errors.New("follow-up date must be yyyy-mm-dd")
	ErrBadFollowUpTime  = errors.New("follow-up time must be HH:mm")
	ErrMissingLead      = errors.New("lead id is required")
)

var updateStatuses = []string{
	domain.StatusNew,
	domain.StatusContacted,
	domain.StatusInterested,
	domain.StatusNotInterested,
	domain.StatusLost,
	domain.StatusVisit,
}

var filterOnlyStatuses = []string{
	domain.StatusOtherLocation,
	domain.StatusNotPicked,
}

// Statuses returns the statuses a lead can be moved to.
func Statuses() []string {
	out := make([]string, len(updateStatuses))
	copy(out, updateStatuses)
	return out
}

// Canonical maps a user-supplied status to the backend spelling. Matching is
// case-insensitive and the correct spelling "Interested" is folded into the
// backend's "Intrested".
func Canonical(status string) (string, bool) {
	s := strings.TrimSpace(status)
	if strings.EqualFold(s, "interested") {
		return domain.StatusInterested, true
	}
	for _, known := range updateStatuses {
		if strings.EqualFold(s, known) {
			return known, true
		}
	}
	for _, known := range filterOnlyStatuses {
		if strings.EqualFold(s, known) {
			return known, true
		}
	}
	return "", false
}

// IsUpdateStatus reports whether status is a valid update target.
func IsUpdateStatus(status string) bool {
	c, ok := Canonical(status)
	if !ok {
		return false
	}
	for _, s := range updateStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// IsInterested reports whether status is the follow-up pending status.
func IsInterested(status string) bool {
	c, _ := Canonical(status)
	return c == domain.StatusInterested
}

// StatusUpdate is a proposed status change for one lead.
type StatusUpdate struct {
	LeadID       int64  `json:"-"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
	FollowUpTime string `json:"follow_up_time,omitempty"`
}

// ScheduleMissing reports an Intrested update without a full follow-up
// schedule. The backend decides whether that is acceptable; the dashboard
// only flags it.
func (u StatusUpdate) ScheduleMissing() bool {
	return u.Status == domain.StatusInterested && (u.FollowUpDate == "" || u.FollowUpTime == "")
}

// ValidateStatusUpdate checks that u is well formed and returns it normalized:
// the status in backend spelling, and date/time cleared unless the status is
// Intrested. A missing date or time on Intrested is accepted; a malformed one
// is not.
func ValidateStatusUpdate(u StatusUpdate) (StatusUpdate, error) {
	if u.LeadID <= 0 {
		return u, ErrMissingLead
	}
	status, ok := Canonical(u.Status)
	if !ok {
		return u, ErrUnknownStatus
	}
	if !IsUpdateStatus(status) {
		return u, ErrFilterOnlyStatus
	}
	u.Status = status
	if status != domain.StatusInterested {
		u.FollowUpDate = ""
		u.FollowUpTime = ""
		return u, nil
	}
	u.FollowUpDate = strings.TrimSpace(u.FollowUpDate)
	u.FollowUpTime = strings.TrimSpace(u.FollowUpTime)
	if u.FollowUpDate != "" {
		if _, err := time.Parse(DateLayout, u.FollowUpDate); err != nil {
			return u, ErrBadFollowUpDate
		}
	}
	if u.FollowUpTime != "" {
		t, err := normalizeTime(u.FollowUpTime)
		if err != nil {
			return u, ErrBadFollowUpTime
		}
		u.FollowUpTime = t
	}
	return u, nil
}

// normalizeTime accepts HH:mm and the HH:mm:ss the backend echoes back.
func normalizeTime(v string) (string, error) {
	if t, err := time.Parse(TimeLayout, v); err == nil {
		return t.Format(TimeLayout), nil
	}
	t, err := time.Parse("15:04:05", v)
	if err != nil {
		return "", err
	}
	return t.Format(TimeLayout), nil
}

// StatusDisplay is how a status is rendered in tables and badges.
type StatusDisplay struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

// DisplayFor returns display information for a status. Unknown statuses are
// shown as-is in a neutral tone.
func DisplayFor(status string) StatusDisplay {
	c, ok := Canonical(status)
	if !ok {
		return StatusDisplay{Label: status, Tone: "neutral"}
	}
	switch c {
	case domain.StatusNew:
		return StatusDisplay{Label: "New", Tone: "neutral"}
	case domain.StatusContacted:
		return StatusDisplay{Label: "Contacted", Tone: "info"}
	case domain.StatusInterested:
		return StatusDisplay{Label: "Interested", Tone: "success"}
	case domain.StatusNotInterested:
		return StatusDisplay{Label: "Not Interested", Tone: "danger"}
	case domain.StatusLost:
		return StatusDisplay{Label: "Lost", Tone: "danger"}
	case domain.StatusVisit:
		return StatusDisplay{Label: "Visit", Tone: "warning"}
	case domain.StatusOtherLocation:
		return StatusDisplay{Label: "Other Location", Tone: "neutral"}
	case domain.StatusNotPicked:
		return StatusDisplay{Label: "Not Picked", Tone: "warning"}
	}
	return StatusDisplay{Label: c, Tone: "neutral"}
}
