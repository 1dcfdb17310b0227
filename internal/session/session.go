// Package session keeps the signed-in user's backend token on the server and
// mirrors the role and id into cookies for route gating.
package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"crmdesk/config"
	"crmdesk/internal/auth"
	"crmdesk/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cookie names shared with the dashboard frontend.
const (
	CookieAuthToken = "authToken"
	CookieUserRole  = "userRole"
	CookieUserID    = "userId"
)

var ErrNoSession = errors.New("no active session")

// Store persists session records.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Data is the user-facing part of a session.
type Data struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Manager struct {
	cfg    *config.SessionConfig
	store  Store
	sealer *Sealer
	log    *zap.Logger
	now    func() time.Time
}

func NewManager(cfg *config.SessionConfig, store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		sealer: NewSealer(cfg.EncryptionKey),
		log:    log,
		now:    time.Now,
	}
}

// Load resolves the session of a request. It never fails: a missing,
// forged, expired or undecryptable session yields an inactive Context.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Context {
	c := &Context{m: m, w: w, r: r}
	cookie, err := r.Cookie(CookieAuthToken)
	if err != nil || cookie.Value == "" {
		return c
	}
	claims, err := auth.ParseSessionToken(m.cfg, cookie.Value)
	if err != nil {
		return c
	}
	c.id = claims.SessionID
	rec, err := m.store.Get(r.Context(), claims.SessionID)
	if err != nil {
		m.log.Debug("session lookup failed", zap.String("session_id", claims.SessionID), zap.Error(err))
		return c
	}
	tok, err := m.sealer.Open(rec.TokenSealed)
	if err != nil {
		m.log.Warn("session token unreadable", zap.String("session_id", rec.ID), zap.Error(err))
		return c
	}
	c.token = string(tok)
	c.data = Data{
		UserID:    rec.UserID,
		Email:     rec.Email,
		Name:      rec.Name,
		Role:      rec.Role,
		ExpiresAt: rec.ExpiresAt,
	}
	c.active = true
	return c
}

// Sweep deletes expired records once.
func (m *Manager) Sweep(ctx context.Context) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		m.log.Warn("session sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		m.log.Info("expired sessions removed", zap.Int64("count", n))
	}
}

// RunSweeper calls Sweep every SweepInterval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context) {
	if m.cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Context is the session of one request. Everything that calls the backend
// depends only on it.
type Context struct {
	m      *Manager
	w      http.ResponseWriter
	r      *http.Request
	id     string
	token  string
	data   Data
	active bool
}

// Token returns the backend token, or ErrNoSession.
func (c *Context) Token() (string, error) {
	if !c.active || c.token == "" {
		return "", ErrNoSession
	}
	return c.token, nil
}

// Current returns the session data and whether a session is active.
func (c *Context) Current() (Data, bool) {
	return c.data, c.active
}

// Active reports whether the request carries a valid session.
func (c *Context) Active() bool { return c.active }

// Set starts a new session for token, replacing any current one, and writes
// the three cookies.
func (c *Context) Set(ctx context.Context, token string, d Data) error {
	if token == "" {
		return ErrNoSession
	}
	if c.id != "" {
		c.deleteRecord(ctx)
	}
	m := c.m
	now := m.now()
	d.ExpiresAt = now.Add(m.cfg.TTL)
	sealed, err := m.sealer.Seal([]byte(token))
	if err != nil {
		return err
	}
	rec := &models.Session{
		ID:          uuid.NewString(),
		UserID:      d.UserID,
		Email:       d.Email,
		Name:        d.Name,
		Role:        d.Role,
		TokenSealed: sealed,
		ExpiresAt:   d.ExpiresAt,
	}
	if c.r != nil {
		rec.IP = clientIP(c.r)
		rec.UserAgent = truncate(c.r.UserAgent(), 512)
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return err
	}
	signed, err := auth.GenerateSessionToken(m.cfg, rec.ID, d.UserID, d.Role, d.ExpiresAt)
	if err != nil {
		return err
	}
	maxAge := int(m.cfg.TTL / time.Second)
	c.setCookie(CookieAuthToken, signed, maxAge, true)
	c.setCookie(CookieUserRole, d.Role, maxAge, false)
	c.setCookie(CookieUserID, strconv.FormatInt(d.UserID, 10), maxAge, false)

	c.id = rec.ID
	c.token = token
	c.data = d
	c.active = true
	return nil
}

// Clear ends the session: the record is deleted and every session cookie is
// expired, whether or not a session was active.
func (c *Context) Clear(ctx context.Context) {
	if c.id != "" {
		c.deleteRecord(ctx)
	}
	for _, name := range []string{CookieAuthToken, CookieUserRole, CookieUserID} {
		c.setCookie(name, "", -1, name == CookieAuthToken)
	}
	c.id = ""
	c.token = ""
	c.data = Data{}
	c.active = false
}

func (c *Context) deleteRecord(ctx context.Context) {
	if err := c.m.store.Delete(ctx, c.id); err != nil {
		c.m.log.Warn("session delete failed", zap.String("session_id", c.id), zap.Error(err))
	}
}

func (c *Context) setCookie(name, value string, maxAge int, httpOnly bool) {
	if c.w == nil {
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.m.cfg.CookieDomain,
		MaxAge:   maxAge,
		Secure:   c.m.cfg.CookieSecure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return truncate(ip, 45)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return truncate(host, 45)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
