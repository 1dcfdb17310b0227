package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNoToken is returned before any network call when the session holds no token.
	ErrNoToken         = errors.New("not signed in")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("session expired")
)

// APIError is a non-2xx backend response with its flattened message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is match 404 against ErrNotFound and 401 against ErrUnauthenticated.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Keys whose messages are shown without a "field:" prefix.
var bareKeys = map[string]bool{
	"detail":           true,
	"message":          true,
	"error":            true,
	"non_field_errors": true,
}

// Keys that carry no message.
var ignoredKeys = map[string]bool{
	"success":     true,
	"status":      true,
	"status_code": true,
}

// FlattenErrorBody turns a backend error body into one line. Field error
// objects like {"email": ["taken"], "mobile": ["invalid"]} become
// "email: taken; mobile: invalid" with keys in sorted order. Anything that is
// not a JSON object is returned as-is; an empty body yields the status text.
func FlattenErrorBody(body []byte, status int) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		if st := http.StatusText(status); st != "" {
			return st
		}
		return fmt.Sprintf("request failed with status %d", status)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return text
	}
	if msg := flattenObject(fields); msg != "" {
		return msg
	}
	return text
}

func flattenObject(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !ignoredKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := flattenValue(fields[k])
		if msg == "" {
			continue
		}
		if bareKeys[k] {
			parts = append(parts, msg)
		} else {
			parts = append(parts, k+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

func flattenValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if s := flattenValue(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", ")
	case map[string]any:
		return flattenObject(t)
	default:
		return fmt.Sprint(t)
	}
}
