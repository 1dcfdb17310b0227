// Package attendance lays a user's attendance records out as a month calendar.
package attendance

import (
	"errors"
	"strings"
	"time"

	"crmdesk/internal/models"
)

const MonthLayout = "2006-01"

var ErrBadMonth = errors.New("month must be yyyy-mm")

// Day statuses. Backend values are folded into these.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLeave   = "leave"
	StatusHalfDay = "half_day"
	StatusHoliday = "holiday"
	StatusNone    = "none"
)

type Day struct {
	Date     string `json:"date"`
	Day      int    `json:"day"`
	InMonth  bool   `json:"in_month"`
	Status   string `json:"status"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
	IsToday  bool   `json:"is_today"`
	IsFuture bool   `json:"is_future"`
}

type Month struct {
	Month   string         `json:"month"`
	Weeks   [][]Day        `json:"weeks"`
	Summary map[string]int `json:"summary"`
}

// ParseMonth parses yyyy-mm in loc. Empty means the month containing now.
func ParseMonth(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation(MonthLayout, v, now.Location())
	if err != nil {
		return time.Time{}, ErrBadMonth
	}
	return t, nil
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present", "p":
		return StatusPresent
	case "absent", "a":
		return StatusAbsent
	case "leave", "l", "on leave":
		return StatusLeave
	case "half day", "half_day", "halfday", "h":
		return StatusHalfDay
	case "holiday":
		return StatusHoliday
	}
	return StatusNone
}

// Build lays out the month starting at month as Sunday-first weeks. Days
// outside the month pad the first and last week. Records outside the month
// or with unparseable dates are ignored; a later record for the same date
// replaces an earlier one.
func Build(month time.Time, records []models.AttendanceRecord, now time.Time) Month {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	byDate := make(map[string]models.AttendanceRecord, len(records))
	for _, r := range records {
		date := strings.TrimSpace(r.Date)
		if len(date) > 10 {
			date = date[:10]
		}
		t, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil || t.Before(first) || t.After(last) {
			continue
		}
		byDate[date] = r
	}

	out := Month{
		Month:   first.Format(MonthLayout),
		Summary: map[string]int{},
	}
	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, 6-int(last.Weekday()))
	var week []Day
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		day := Day{
			Date:     key,
			Day:      d.Day(),
			InMonth:  d.Month() == first.Month(),
			Status:   StatusNone,
			IsToday:  d.Equal(today),
			IsFuture: d.After(today),
		}
		if day.InMonth {
			if r, ok := byDate[key]; ok {
				day.Status = normalizeStatus(r.Status)
				day.CheckIn = r.CheckIn
				day.CheckOut = r.CheckOut
			}
			out.Summary[day.Status]++
		}
		week = append(week, day)
		if len(week) == 7 {
			out.Weeks = append(out.Weeks, week)
			week = nil
		}
	}
	return out
}
