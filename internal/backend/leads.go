package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"crmdesk/internal/domain"
	"crmdesk/internal/leads"
	"crmdesk/internal/models"
)

// ListLeads fetches one page of a lead report.
func (c *Client) ListLeads(ctx context.Context, ts TokenSource, q leads.Query) (models.PagedResult[models.Lead], error) {
	q = q.Normalize()
	req := request{method: http.MethodGet, path: "/accounts/api/leads/", query: q.Values()}
	var raw json.RawMessage
	if err := c.do(ctx, ts, req, &raw); err != nil {
		return models.PagedResult[models.Lead]{}, err
	}
	res, err := decodePaged[models.Lead](raw, q.Page, domain.DefaultPageSize)
	if err != nil {
		return res, err
	}
	for i := range res.Items {
		res.Items[i].Normalize()
	}
	return res, nil
}

// UpdateLeadStatus posts a validated status update. Date and time are sent
// as null when unset.
func (c *Client) UpdateLeadStatus(ctx context.Context, ts TokenSource, u leads.StatusUpdate) error {
	payload := map[string]any{
		"status":         u.Status,
		"message":        u.Message,
		"follow_up_date": nullable(u.FollowUpDate),
		"follow_up_time": nullable(u.FollowUpTime),
	}
	req, err := jsonRequest(http.MethodPost, fmt.Sprintf("/accounts/api/leads/%d/status/", u.LeadID), payload)
	if err != nil {
		return err
	}
	return c.do(ctx, ts, req, nil)
}

// AssignLead hands a lead to a staff member.
func (c *Client) AssignLead(ctx context.Context, ts TokenSource, leadID, staffID int64) error {
	req, err := jsonRequest(http.MethodPatch, fmt.Sprintf("/accounts/api/leads/%d/assign/", leadID), map[string]int64{
		"assigned_to": staffID,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, ts, req, nil)
}

// Download is a streamed file response. The caller must Close it.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	Filename      string
	ContentLength int64
}

func (d *Download) Close() error { return d.Body.Close() }

// ExportLeads starts a spreadsheet export. A 404 means no lead matched and
// is reported as ErrNotFound.
func (c *Client) ExportLeads(ctx context.Context, ts TokenSource, r leads.ExportRequest) (*Download, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	resp, err := c.send(ctx, ts, request{
		method: http.MethodGet,
		path:   "/accounts/api/leads/export/",
		query:  r.Values(),
	})
	if err != nil {
		cancel()
		return nil, err
	}
	d := &Download{
		Body:          &cancelBody{ReadCloser: resp.Body, cancel: cancel},
		ContentType:   resp.Header.Get("Content-Type"),
		Filename:      "leads.xlsx",
		ContentLength: resp.ContentLength,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	if d.ContentType == "" {
		d.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return d, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
