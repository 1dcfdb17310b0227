package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"crmdesk/internal/models"
)

// ErrLoginRejected is a 2xx login response without a token.
var ErrLoginRejected = errors.New("invalid username or password")

type loginResponse struct {
	Message string            `json:"message"`
	Data    *models.LoginData `json:"data"`
}

// Login exchanges credentials for the backend token and the role flags.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginData, error) {
	req, err := jsonRequest(http.MethodPost, "/accounts/apilogin/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, nil, req, &raw); err != nil {
		return nil, err
	}
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	data := resp.Data
	if data == nil {
		// Some deployments answer with the login fields at the top level.
		data = &models.LoginData{}
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, err
		}
	}
	if data.TokenDetail == "" {
		if resp.Message != "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: resp.Message}
		}
		return nil, ErrLoginRejected
	}
	return data, nil
}

// Register submits the self-registration form. No session is needed.
func (c *Client) Register(ctx context.Context, f Form) error {
	req, err := formRequest(http.MethodPost, "/accounts/register/", f)
	if err != nil {
		return err
	}
	return c.do(ctx, nil, req, nil)
}
