package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"crmdesk/internal/backend"
	"crmdesk/internal/domain"
	"crmdesk/internal/models"
	"crmdesk/internal/viewstate"

	"go.uber.org/zap"
)

// Fields an edit may change. Activation goes through Toggle only.
var editableUserFields = map[string]bool{
	"name":           true,
	"email":          true,
	"mobile":         true,
	"dob":            true,
	"address":        true,
	"bank_name":      true,
	"account_number": true,
	"ifsc_code":      true,
	"team_leader":    true,
}

// UserTable is one page of a role roster.
type UserTable struct {
	Role     string        `json:"role"`
	Items    []models.User `json:"items"`
	Total    int           `json:"total"`
	Shown    int           `json:"shown"`
	Page     int           `json:"page"`
	Pages    int           `json:"pages"`
	PageSize int           `json:"page_size"`
	Cached   bool          `json:"cached"`
}

type UserService struct {
	api   Backend
	views viewstate.Store
	audit *AuditService
	log   *zap.Logger
}

func NewUserService(api Backend, views viewstate.Store, audit *AuditService, log *zap.Logger) *UserService {
	return &UserService{api: api, views: views, audit: audit, log: log}
}

func rosterPrefix(a Actor, role string) string {
	return fmt.Sprintf("users:%d:%s:", a.UserID, role)
}

func rosterKey(a Actor, role string, page int) string {
	return rosterPrefix(a, role) + strconv.Itoa(page)
}

func checkManage(a Actor, role string) error {
	if !domain.CanManage(a.Role, role) {
		return ErrForbidden
	}
	return nil
}

// List returns a roster page, served from the view cache unless refresh is
// set. search narrows the page by name, email or mobile.
func (s *UserService) List(ctx context.Context, a Actor, role string, page int, search string, refresh bool) (UserTable, error) {
	if err := checkManage(a, role); err != nil {
		return UserTable{}, err
	}
	if page < 1 {
		page = 1
	}
	key := rosterKey(a, role, page)
	var res models.PagedResult[models.User]
	cached := false
	if !refresh {
		var err error
		res, _, err = viewstate.Load[models.PagedResult[models.User]](ctx, s.views, key)
		switch {
		case err == nil:
			cached = true
		case !errors.Is(err, viewstate.ErrMiss):
			s.log.Warn("view state read failed", zap.String("key", key), zap.Error(err))
		}
	}
	if !cached {
		seq, err := viewstate.Begin(ctx, s.views, key)
		if err != nil {
			s.log.Warn("view state seq failed", zap.String("key", key), zap.Error(err))
		}
		res, err = s.api.ListUsers(ctx, a.Token, role, page)
		if err != nil {
			return UserTable{Role: role, Items: []models.User{}, Page: page}, err
		}
		if seq > 0 {
			if _, err := viewstate.Save(ctx, s.views, key, seq, res); err != nil {
				s.log.Warn("view state write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	items := searchUsers(res.Items, search)
	return UserTable{
		Role:     role,
		Items:    items,
		Total:    res.Total,
		Shown:    len(items),
		Page:     res.Page,
		Pages:    res.Pages(),
		PageSize: res.PageSize,
		Cached:   cached,
	}, nil
}

func searchUsers(rows []models.User, term string) []models.User {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.User, 0, len(rows))
	for _, u := range rows {
		if term == "" ||
			strings.Contains(strings.ToLower(u.Name), term) ||
			strings.Contains(strings.ToLower(u.Email), term) ||
			strings.Contains(u.Mobile, term) {
			out = append(out, u)
		}
	}
	return out
}

// Create adds an account of role. Accounts are never deleted, only
// deactivated.
func (s *UserService) Create(ctx context.Context, a Actor, role string, f backend.Form) error {
	if err := checkManage(a, role); err != nil {
		return err
	}
	for _, field := range []string{"name", "email"} {
		if strings.TrimSpace(f.Fields.Get(field)) == "" {
			return invalid(fieldRequired(field))
		}
	}
	if err := s.api.AddUser(ctx, a.Token, role, f); err != nil {
		return err
	}
	s.invalidate(ctx, a, role)
	s.audit.Record(ctx, a, ActionUserCreate, role, "", map[string]interface{}{"email": f.Fields.Get("email")})
	return nil
}

// Edit patches the allowed fields of an account. Unknown fields are dropped.
func (s *UserService) Edit(ctx context.Context, a Actor, role string, id int64, fields map[string]interface{}) error {
	if err := checkManage(a, role); err != nil {
		return err
	}
	safe := make(map[string]interface{})
	for k, v := range fields {
		if editableUserFields[k] {
			safe[k] = v
		}
	}
	if len(safe) == 0 {
		return invalid(errors.New("no editable fields"))
	}
	if err := s.api.EditUser(ctx, a.Token, role, id, safe); err != nil {
		return err
	}
	s.invalidate(ctx, a, role)
	keys := make([]string, 0, len(safe))
	for k := range safe {
		keys = append(keys, k)
	}
	s.audit.Record(ctx, a, ActionUserEdit, role, strconv.FormatInt(id, 10), map[string]interface{}{"fields": keys})
	return nil
}

func (s *UserService) invalidate(ctx context.Context, a Actor, role string) {
	if err := s.views.InvalidatePrefix(ctx, rosterPrefix(a, role)); err != nil {
		s.log.Warn("roster invalidation failed", zap.Error(err))
	}
}
