package service

import (
	"context"
	"errors"
	"fmt"

	"crmdesk/internal/backend"
	"crmdesk/internal/leads"
	"crmdesk/internal/models"
	"crmdesk/internal/ws"

	"github.com/shopspring/decimal"
)

var (
	ErrForbidden      = errors.New("not allowed for your role")
	ErrInvalid        = errors.New("invalid request")
	ErrToggleInFlight = errors.New("a status change for this account is already in progress")
	ErrNothingFetched = errors.New("no leads table has been loaded yet")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// Actor is the signed-in user a service call is made for.
type Actor struct {
	Token     backend.TokenSource
	UserID    int64
	Role      string
	IP        string
	UserAgent string
}

// Backend is the part of the REST client the services use.
type Backend interface {
	Login(ctx context.Context, username, password string) (*models.LoginData, error)
	Register(ctx context.Context, f backend.Form) error

	ListLeads(ctx context.Context, ts backend.TokenSource, q leads.Query) (models.PagedResult[models.Lead], error)
	UpdateLeadStatus(ctx context.Context, ts backend.TokenSource, u leads.StatusUpdate) error
	AssignLead(ctx context.Context, ts backend.TokenSource, leadID, staffID int64) error
	ExportLeads(ctx context.Context, ts backend.TokenSource, r leads.ExportRequest) (*backend.Download, error)

	ListUsers(ctx context.Context, ts backend.TokenSource, role string, page int) (models.PagedResult[models.User], error)
	AddUser(ctx context.Context, ts backend.TokenSource, role string, f backend.Form) error
	EditUser(ctx context.Context, ts backend.TokenSource, role string, id int64, fields map[string]any) error
	ToggleUser(ctx context.Context, ts backend.TokenSource, role string, id int64) (backend.ToggleResult, error)

	Profile(ctx context.Context, ts backend.TokenSource, role string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, ts backend.TokenSource, role string, f backend.Form) (*models.Profile, error)
	Dashboard(ctx context.Context, ts backend.TokenSource, role string) ([]models.KPI, error)
	Attendance(ctx context.Context, ts backend.TokenSource, userID int64, month string) ([]models.AttendanceRecord, error)
	Slabs(ctx context.Context, ts backend.TokenSource) ([]models.Slab, error)
	StaffEarnings(ctx context.Context, ts backend.TokenSource, staffID int64) (decimal.Decimal, error)
}

// Notifier pushes events to open dashboard tabs.
type Notifier interface {
	BroadcastAll(ev ws.Event)
	BroadcastToUser(userID int64, ev ws.Event)
	BroadcastToRoles(ev ws.Event, roles ...string)
	// DisconnectUser closes the user's open tabs and reports how many.
	DisconnectUser(userID int64) int
}

// SessionEnder signs a user out of every dashboard session.
type SessionEnder interface {
	DeleteForUser(ctx context.Context, userID int64) error
}
