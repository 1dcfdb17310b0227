package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"crmdesk/internal/domain"
	"crmdesk/internal/models"
)

func profilePath(role string) string {
	return "/accounts/api/" + domain.RolePathSegment(role) + "/profile/"
}

// Profile fetches the signed-in user's own record.
func (c *Client) Profile(ctx context.Context, ts TokenSource, role string) (*models.Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, ts, request{method: http.MethodGet, path: profilePath(role)}, &raw); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

// UpdateProfile patches the profile with a multipart form and returns the
// updated record.
func (c *Client) UpdateProfile(ctx context.Context, ts TokenSource, role string, f Form) (*models.Profile, error) {
	req, err := formRequest(http.MethodPatch, profilePath(role), f)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, ts, req, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return decodeProfile(raw)
}

func decodeProfile(raw json.RawMessage) (*models.Profile, error) {
	var p models.Profile
	if err := json.Unmarshal(unwrapData(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
