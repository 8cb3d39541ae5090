package sedarapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrBadResponse  = errors.New("malformed backend response")
)

// APIError is a non-2xx answer from the backend. Errors holds the per-field
// messages ("errors": {"code": ["..."]}) when the backend sends them.
type APIError struct {
	Status  int
	Message string
	Code    string
	Errors  map[string][]string
	Body    []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("sedar api: %d %s (%s)", e.Status, msg, e.Code)
	}
	return fmt.Sprintf("sedar api: %d %s", e.Status, msg)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// FieldError returns the first backend message for field.
func (e *APIError) FieldError(field string) (string, bool) {
	msgs := e.Errors[field]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// IsCodeConflict reports a rejection of the entity's unique code.
func IsCodeConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := apiErr.Errors["code"]
	return ok
}

func parseAPIError(status int, body []byte) *APIError {
	out := &APIError{Status: status, Body: body}
	var raw struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		out.Message = strings.TrimSpace(string(body))
		return out
	}
	out.Message = raw.Message
	out.Code = raw.Code
	if len(raw.Errors) == 0 {
		return out
	}
	// each field arrives either as [msg...] or as a bare msg
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw.Errors, &fields); err != nil {
		return out
	}
	out.Errors = make(map[string][]string, len(fields))
	for k, v := range fields {
		out.Errors[k] = fieldMessages(v)
	}
	return out
}

func fieldMessages(raw json.RawMessage) []string {
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, m := range list {
			if s := messageString(m); s != "" {
				msgs = append(msgs, s)
			}
		}
		return msgs
	}
	var one any
	if err := json.Unmarshal(raw, &one); err != nil {
		return []string{}
	}
	if s := messageString(one); s != "" {
		return []string{s}
	}
	return []string{}
}

func messageString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
