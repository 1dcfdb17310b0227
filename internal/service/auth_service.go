package service

import (
	"context"
	"strconv"
	"strings"

	"crmdesk/internal/backend"
	"crmdesk/internal/domain"
	"crmdesk/internal/session"

	"go.uber.org/zap"
)

type AuthService struct {
	api   Backend
	audit *AuditService
	log   *zap.Logger
}

func NewAuthService(api Backend, audit *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{api: api, audit: audit, log: log}
}

// Login authenticates against the backend and starts a session. The role is
// derived from the backend's flags; see domain.RoleFromFlags.
func (s *AuthService) Login(ctx context.Context, sc *session.Context, username, password string) (session.Data, error) {
	username = strings.TrimSpace(username)
	data, err := s.api.Login(ctx, username, password)
	if err != nil {
		return session.Data{}, err
	}
	d := session.Data{
		UserID: data.ID,
		Email:  data.Email,
		Name:   data.Name,
		Role:   domain.RoleFromFlags(data.IsAdmin, data.IsTeamLeader, data.IsStaffNew, data.IsFreelancer),
	}
	if d.Email == "" && strings.Contains(username, "@") {
		d.Email = username
	}
	if err := sc.Set(ctx, data.TokenDetail, d); err != nil {
		return session.Data{}, err
	}
	d, _ = sc.Current()
	s.log.Info("login", zap.Int64("user_id", d.UserID), zap.String("role", d.Role))
	s.audit.Record(ctx, Actor{UserID: d.UserID, Role: d.Role}, ActionLogin, "session", strconv.FormatInt(d.UserID, 10), nil)
	return d, nil
}

// Logout ends the session. It succeeds whether or not one was active.
func (s *AuthService) Logout(ctx context.Context, sc *session.Context) {
	if d, ok := sc.Current(); ok {
		s.audit.Record(ctx, Actor{UserID: d.UserID, Role: d.Role}, ActionLogout, "session", strconv.FormatInt(d.UserID, 10), nil)
	}
	sc.Clear(ctx)
}

// Register forwards the self-registration wizard.
func (s *AuthService) Register(ctx context.Context, f backend.Form) error {
	for _, field := range []string{"name", "email", "password"} {
		if strings.TrimSpace(f.Fields.Get(field)) == "" {
			return invalid(fieldRequired(field))
		}
	}
	return s.api.Register(ctx, f)
}

type fieldRequired string

func (f fieldRequired) Error() string { return string(f) + " is required" }
