package service

import (
	"context"
	"time"

	"crmdesk/internal/attendance"
)

type AttendanceService struct {
	api Backend
	now func() time.Time
}

func NewAttendanceService(api Backend) *AttendanceService {
	return &AttendanceService{api: api, now: time.Now}
}

// Month builds the attendance calendar of userID (the caller when zero) for
// month (yyyy-mm, the current month when empty). A month without records is
// an empty calendar.
func (s *AttendanceService) Month(ctx context.Context, a Actor, userID int64, month string) (attendance.Month, error) {
	if userID <= 0 {
		userID = a.UserID
	}
	if userID != a.UserID && !canViewOthers(a.Role) {
		return attendance.Month{}, ErrForbidden
	}
	now := s.now()
	start, err := attendance.ParseMonth(month, now)
	if err != nil {
		return attendance.Month{}, invalid(err)
	}
	records, err := s.api.Attendance(ctx, a.Token, userID, start.Format(attendance.MonthLayout))
	if err != nil {
		return attendance.Month{}, err
	}
	return attendance.Build(start, records, now), nil
}
