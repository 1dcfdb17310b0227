package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"crmdesk/internal/models"
)

// Member names the backend uses for list items and totals across endpoints.
var (
	itemKeys  = []string{"results", "items", "leads", "data"}
	totalKeys = []string{"count", "total", "total_count"}
)

// decodePaged normalizes the list envelopes the backend returns into one
// PagedResult: a bare array, {"results": [...], "count": n} and friends, or
// any of those nested under "data".
func decodePaged[T any](raw json.RawMessage, page, pageSize int) (models.PagedResult[T], error) {
	res := models.PagedResult[T]{Page: page, PageSize: pageSize}
	items, total, err := findItems(raw, 0)
	if err != nil {
		return res, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &res.Items); err != nil {
			return res, fmt.Errorf("decode list items: %w", err)
		}
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	if total >= 0 {
		res.Total = total
	} else {
		res.Total = len(res.Items)
	}
	return res, nil
}

// findItems returns the item array and the total, -1 when absent.
func findItems(raw json.RawMessage, depth int) (json.RawMessage, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, -1, nil
	}
	if raw[0] == '[' {
		return raw, -1, nil
	}
	if raw[0] != '{' {
		return nil, -1, fmt.Errorf("unexpected list body %.40q", raw)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, -1, fmt.Errorf("decode list envelope: %w", err)
	}
	total := -1
	for _, k := range totalKeys {
		if v, ok := env[k]; ok {
			var n int
			if json.Unmarshal(v, &n) == nil {
				total = n
				break
			}
		}
	}
	for _, k := range itemKeys {
		v, ok := env[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '[' {
			return v, total, nil
		}
		if len(v) > 0 && v[0] == '{' && depth < 2 {
			items, inner, err := findItems(v, depth+1)
			if inner < 0 {
				inner = total
			}
			return items, inner, err
		}
	}
	return nil, total, nil
}
