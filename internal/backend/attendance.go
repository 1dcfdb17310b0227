package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"crmdesk/internal/models"
)

// Attendance fetches a user's attendance records for month (yyyy-mm). A
// month with no records is answered with 404 and returned as an empty list.
func (c *Client) Attendance(ctx context.Context, ts TokenSource, userID int64, month string) ([]models.AttendanceRecord, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	if month != "" {
		q.Set("month", month)
	}
	var raw json.RawMessage
	err := c.do(ctx, ts, request{method: http.MethodGet, path: "/accounts/api/attendance/", query: q}, &raw)
	if errors.Is(err, ErrNotFound) {
		return []models.AttendanceRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := decodePaged[models.AttendanceRecord](raw, 1, 0)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}
