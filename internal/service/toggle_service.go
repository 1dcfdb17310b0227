package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"crmdesk/internal/domain"
	"crmdesk/internal/models"
	"crmdesk/internal/viewstate"
	"crmdesk/internal/ws"

	"go.uber.org/zap"
)

// ToggleOutcome is the state of an account after a toggle.
type ToggleOutcome struct {
	ID     int64 `json:"id"`
	Active bool  `json:"user_active"`
	// Known is false when neither the server nor the cached roster told us
	// the resulting state.
	Known bool `json:"known"`
	// Visible reports whether the row was on the cached roster page and
	// was flipped optimistically.
	Visible bool `json:"visible"`
}

// ToggleService flips accounts between active and inactive with an
// optimistic update of the caller's cached roster.
type ToggleService struct {
	api     Backend
	views   viewstate.Store
	notify  Notifier
	audit   *AuditService
	log     *zap.Logger
	lockTTL time.Duration

	sessions SessionEnder
}

func NewToggleService(api Backend, views viewstate.Store, notify Notifier, audit *AuditService, log *zap.Logger, lockTTL time.Duration) *ToggleService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &ToggleService{api: api, views: views, notify: notify, audit: audit, log: log, lockTTL: lockTTL}
}

// EndSessionsOnDeactivate makes a confirmed deactivation sign the account out
// of the dashboard.
func (s *ToggleService) EndSessionsOnDeactivate(e SessionEnder) *ToggleService {
	s.sessions = e
	return s
}

// Toggle flips account id of role. page names the roster page the caller is
// looking at; the row there is flipped before the backend call and either
// reconciled with the backend's answer or restored if the call fails.
//
// One toggle per account may be in flight; a second gets ErrToggleInFlight.
func (s *ToggleService) Toggle(ctx context.Context, a Actor, role string, id int64, page int) (ToggleOutcome, error) {
	if err := checkManage(a, role); err != nil {
		return ToggleOutcome{}, err
	}
	if id <= 0 {
		return ToggleOutcome{}, invalid(errors.New("user id is required"))
	}
	if page < 1 {
		page = 1
	}
	unlock, ok, err := s.views.Lock(ctx, fmt.Sprintf("toggle:%s:%d", role, id), s.lockTTL)
	if err != nil {
		return ToggleOutcome{}, err
	}
	if !ok {
		return ToggleOutcome{}, ErrToggleInFlight
	}
	defer unlock()

	out := ToggleOutcome{ID: id}
	apply := func(p models.PagedResult[models.User]) (models.PagedResult[models.User], error) {
		for i := range p.Items {
			if p.Items[i].ID == id {
				p.Items[i].UserActive = !p.Items[i].UserActive
				out.Visible = true
				out.Active = p.Items[i].UserActive
				out.Known = true
				break
			}
		}
		return p, nil
	}
	remote := func(ctx context.Context) (func(models.PagedResult[models.User]) models.PagedResult[models.User], error) {
		res, err := s.api.ToggleUser(ctx, a.Token, role, id)
		if err != nil {
			return nil, err
		}
		if !res.Reported {
			return nil, nil
		}
		out.Active = res.Active
		out.Known = true
		return func(p models.PagedResult[models.User]) models.PagedResult[models.User] {
			for i := range p.Items {
				if p.Items[i].ID == id {
					p.Items[i].UserActive = res.Active
				}
			}
			return p
		}, nil
	}

	key := rosterKey(a, role, page)
	_, err = viewstate.Commit(ctx, s.views, key, apply, remote)
	if err != nil && !errors.Is(err, viewstate.ErrMiss) {
		if out.Visible {
			s.log.Info("toggle reverted", zap.String("role", role), zap.Int64("user_id", id), zap.Error(err))
		}
		return ToggleOutcome{ID: id}, err
	}

	if out.Known && !out.Active {
		if s.sessions != nil {
			if err := s.sessions.DeleteForUser(ctx, id); err != nil {
				s.log.Warn("ending sessions of deactivated user failed", zap.Int64("user_id", id), zap.Error(err))
			}
		}
		if n := s.notify.DisconnectUser(id); n > 0 {
			s.log.Info("closed event streams of deactivated user", zap.Int64("user_id", id), zap.Int("tabs", n))
		}
	}
	if out.Known {
		s.notify.BroadcastToRoles(ws.Event{Type: ws.EventUserChanged, Data: map[string]interface{}{
			"role":        role,
			"id":          id,
			"user_active": out.Active,
		}}, managersOf(role)...)
	}
	s.audit.Record(ctx, a, ActionUserToggle, role, strconv.FormatInt(id, 10), map[string]interface{}{
		"user_active": out.Active,
		"known":       out.Known,
	})
	return out, nil
}

// managersOf lists the roles that manage accounts of role.
func managersOf(role string) []string {
	var out []string
	for actor := range domain.ManagedRoles {
		if domain.CanManage(actor, role) {
			out = append(out, actor)
		}
	}
	return out
}
