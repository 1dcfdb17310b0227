package leads

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crmdesk/internal/domain"
)

var (
	ErrUnknownTag = errors.New("unknown report tag")
	ErrBadDate    = errors.New("dates must be yyyy-mm-dd")
	ErrDateRange  = errors.New("start date is after end date")
)

var knownTags = map[string]bool{
	domain.TagTotalLeads:     true,
	domain.TagNew:            true,
	domain.TagContacted:      true,
	domain.TagInterested:     true,
	domain.TagNotInterested:  true,
	domain.TagLost:           true,
	domain.TagVisit:          true,
	domain.TagOtherLocation:  true,
	domain.TagNotPicked:      true,
	domain.TagPendingFollow:  true,
	domain.TagTodayFollow:    true,
	domain.TagTomorrowFollow: true,
}

// IsKnownTag reports whether tag is a report the backend serves.
func IsKnownTag(tag string) bool { return knownTags[tag] }

// Query is the server-side part of a leads table request. Search and sort
// are applied locally to the fetched page and are not part of it.
type Query struct {
	Tag          string `form:"tag"`
	Source       string `form:"source"`
	StartDate    string `form:"start_date"`
	EndDate      string `form:"end_date"`
	Page         int    `form:"page"`
	StaffID      int64  `form:"staff_id"`
	TeamLeaderID int64  `form:"team_leader_id"`
}

// Normalize trims fields, defaults the tag to total_leads and the page to 1.
func (q Query) Normalize() Query {
	q.Tag = strings.TrimSpace(q.Tag)
	if q.Tag == "" {
		q.Tag = domain.TagTotalLeads
	}
	q.Source = strings.TrimSpace(q.Source)
	q.StartDate = strings.TrimSpace(q.StartDate)
	q.EndDate = strings.TrimSpace(q.EndDate)
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Validate checks the tag and the inclusive date range.
func (q Query) Validate() error {
	if !IsKnownTag(q.Tag) {
		return ErrUnknownTag
	}
	return validateRange(q.StartDate, q.EndDate)
}

func validateRange(start, end string) error {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse(DateLayout, start); err != nil {
			return ErrBadDate
		}
	}
	if end != "" {
		if e, err = time.Parse(DateLayout, end); err != nil {
			return ErrBadDate
		}
	}
	if start != "" && end != "" && s.After(e) {
		return ErrDateRange
	}
	return nil
}

// Values encodes the query as the backend expects it. Empty fields are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("tag", q.Tag)
	if q.Source != "" {
		v.Set("source", q.Source)
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.StaffID > 0 {
		v.Set("staff_id", strconv.FormatInt(q.StaffID, 10))
	}
	if q.TeamLeaderID > 0 {
		v.Set("team_leader_id", strconv.FormatInt(q.TeamLeaderID, 10))
	}
	return v
}

// Key identifies the fetched result set. Two queries with the same key map
// to the same server response.
func (q Query) Key() string {
	return q.Values().Encode()
}
