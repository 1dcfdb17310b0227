package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"crmdesk/internal/models"

	"github.com/shopspring/decimal"
)

// Slabs fetches the configured incentive tiers.
func (c *Client) Slabs(ctx context.Context, ts TokenSource) ([]models.Slab, error) {
	var raw json.RawMessage
	if err := c.do(ctx, ts, request{method: http.MethodGet, path: "/accounts/api/slabs/"}, &raw); err != nil {
		return nil, err
	}
	res, err := decodePaged[models.Slab](raw, 1, 0)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// StaffEarnings returns the total a staff member has earned this cycle.
func (c *Client) StaffEarnings(ctx context.Context, ts TokenSource, staffID int64) (decimal.Decimal, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/accounts/api/staff/%d/earnings/", staffID)
	if err := c.do(ctx, ts, request{method: http.MethodGet, path: path}, &raw); err != nil {
		return decimal.Zero, err
	}
	var body struct {
		TotalEarn *decimal.Decimal `json:"total_earn"`
	}
	if err := json.Unmarshal(unwrapData(raw), &body); err != nil {
		return decimal.Zero, fmt.Errorf("decode earnings: %w", err)
	}
	if body.TotalEarn == nil {
		return decimal.Zero, nil
	}
	return *body.TotalEarn, nil
}
