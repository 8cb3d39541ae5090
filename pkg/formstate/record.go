package formstate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Nested detail namespaces seen on HR payloads.
const (
	NestedFromDetails = "from_details"
	NestedToDetails   = "to_details"
	NestedGeneralInfo = "general_info"
	NestedSubmittable = "submittable"
)

// EntityRecord is a server-supplied object after boundary normalization.
// Reads tolerate absence everywhere.
type EntityRecord map[string]any

// Nested returns the sub-object stored under name, or nil.
func (r EntityRecord) Nested(name string) EntityRecord {
	if r == nil {
		return nil
	}
	switch v := r[name].(type) {
	case map[string]any:
		return EntityRecord(v)
	case EntityRecord:
		return v
	default:
		return nil
	}
}

// Get returns the value under key when it is present and not null.
func (r EntityRecord) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Resolve applies the precedence rule: the first nested object (in order)
// holding a non-empty key wins, then the top-level key.
func (r EntityRecord) Resolve(key string, nested ...string) (any, bool) {
	for _, name := range nested {
		if v, ok := r.Nested(name).Get(key); ok && !isBlank(v) {
			return v, true
		}
	}
	v, ok := r.Get(key)
	if !ok || isBlank(v) {
		return nil, false
	}
	return v, true
}

// String returns the value under key as a string, "" when absent.
func (r EntityRecord) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return stringify(v)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// IDString renders an opaque identifier (string or number) as a string.
func IDString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return IDString(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case map[string]any:
		return IDString(t["id"])
	default:
		return fmt.Sprint(t)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64, float32, int, int32, int64, uint, uint64:
		return IDString(t)
	default:
		return fmt.Sprint(t)
	}
}
