// Package backend is the REST client for the lead management backend. Every
// authenticated call takes the caller's TokenSource and sends
// "Authorization: Token <value>"; nothing else about the session leaks in.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxErrorBody bounds how much of a failed response is read for the message.
const maxErrorBody = 1 << 20

// TokenSource yields the backend token of the current session.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req.body = bytes.NewReader(b)
	req.contentType = "application/json"
	return req, nil
}

// httpClient returns a client that signs requests with the session token.
// A nil source means an anonymous call such as login.
func (c *Client) httpClient(ctx context.Context, ts TokenSource) (*http.Client, error) {
	if ts == nil {
		return c.http, nil
	}
	tok, err := ts.Token()
	if err != nil || tok == "" {
		return nil, ErrNoToken
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Token"})
	return oauth2.NewClient(ctx, src), nil
}

// send performs the call and returns the response for 2xx statuses. Any
// other status is turned into an *APIError and the body is closed.
func (c *Client) send(ctx context.Context, ts TokenSource, r request) (*http.Response, error) {
	hc, err := c.httpClient(ctx, ts)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	fields := []zap.Field{
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.log.Debug("backend request", fields...)
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= 500 {
		c.log.Warn("backend request", fields...)
	} else {
		c.log.Debug("backend request", fields...)
	}
	return nil, &APIError{Status: resp.StatusCode, Message: FlattenErrorBody(body, resp.StatusCode)}
}

// do performs the call under the client timeout and decodes a JSON body
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, ts TokenSource, r request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.send(ctx, ts, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s %s: %w", r.method, r.path, err)
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// unwrapData returns the "data" member of an envelope, or raw itself when
// there is no object-valued data member.
func unwrapData(raw json.RawMessage) json.RawMessage {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if d, ok := env["data"]; ok && len(bytes.TrimSpace(d)) > 0 && bytes.TrimSpace(d)[0] == '{' {
		return d
	}
	return raw
}
