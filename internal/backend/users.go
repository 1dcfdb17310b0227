package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"crmdesk/internal/domain"
	"crmdesk/internal/models"
)

func usersPath(role string) string {
	return "/accounts/users/" + domain.RolePathSegment(role) + "/"
}

// ListUsers fetches one page of the roster for role.
func (c *Client) ListUsers(ctx context.Context, ts TokenSource, role string, page int) (models.PagedResult[models.User], error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	var raw json.RawMessage
	if err := c.do(ctx, ts, request{method: http.MethodGet, path: usersPath(role), query: q}, &raw); err != nil {
		return models.PagedResult[models.User]{}, err
	}
	return decodePaged[models.User](raw, page, domain.DefaultPageSize)
}

// AddUser creates an account of role from a multipart form.
func (c *Client) AddUser(ctx context.Context, ts TokenSource, role string, f Form) error {
	req, err := formRequest(http.MethodPost, usersPath(role)+"add/", f)
	if err != nil {
		return err
	}
	return c.do(ctx, ts, req, nil)
}

// EditUser patches the given fields of an account.
func (c *Client) EditUser(ctx context.Context, ts TokenSource, role string, id int64, fields map[string]any) error {
	req, err := jsonRequest(http.MethodPatch, fmt.Sprintf("%s%d/edit/", usersPath(role), id), fields)
	if err != nil {
		return err
	}
	return c.do(ctx, ts, req, nil)
}

// ToggleResult is the backend's answer to an activation toggle. Reported is
// false when the response did not carry the resulting state.
type ToggleResult struct {
	Active   bool
	Reported bool
}

// ToggleUser flips an account between active and inactive.
func (c *Client) ToggleUser(ctx context.Context, ts TokenSource, role string, id int64) (ToggleResult, error) {
	var raw json.RawMessage
	req := request{method: http.MethodPost, path: fmt.Sprintf("%s%d/toggle-status/", usersPath(role), id)}
	if err := c.do(ctx, ts, req, &raw); err != nil {
		return ToggleResult{}, err
	}
	var body struct {
		UserActive *bool `json:"user_active"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(unwrapData(raw), &body); err != nil {
			return ToggleResult{}, fmt.Errorf("decode toggle response: %w", err)
		}
	}
	if body.UserActive == nil {
		return ToggleResult{}, nil
	}
	return ToggleResult{Active: *body.UserActive, Reported: true}, nil
}
