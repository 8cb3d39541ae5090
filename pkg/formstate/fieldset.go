package formstate

import (
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
)

// FieldSet is the flat value set bound to form inputs.
type FieldSet map[string]any

// Lookups maps a lookup name (e.g. "job_levels") to its loaded option list.
type Lookups map[string][]Option

// FileRef is an attachment: either a new upload (Data set) or a reference to
// an attachment already stored by the backend (Stored set).
type FileRef struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Data        []byte `json:"data,omitempty"`
	Stored      string `json:"stored,omitempty"`
}

// IsNew reports whether the user chose a new file.
func (f *FileRef) IsNew() bool {
	return f != nil && len(f.Data) > 0
}

// Clone returns a shallow copy with cloned list values.
func (fs FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(fs))
	for k, v := range fs {
		out[k] = cloneValue(v)
	}
	return out
}

func (fs FieldSet) String(key string) string {
	s, _ := fs[key].(string)
	return s
}

func (fs FieldSet) Bool(key string) bool {
	b, _ := fs[key].(bool)
	return b
}

// Option returns the reference option stored under key, or nil.
func (fs FieldSet) Option(key string) *Option {
	o, _ := fs[key].(*Option)
	return o
}

// Date returns the calendar date stored under key.
func (fs FieldSet) Date(key string) (civil.Date, bool) {
	d, ok := fs[key].(civil.Date)
	return d, ok
}

// Number returns the numeric value stored under key.
func (fs FieldSet) Number(key string) (decimal.Decimal, bool) {
	d, ok := fs[key].(decimal.Decimal)
	return d, ok
}

func (fs FieldSet) File(key string) *FileRef {
	f, _ := fs[key].(*FileRef)
	return f
}

func (fs FieldSet) Strings(key string) []string {
	s, _ := fs[key].([]string)
	return s
}

func (fs FieldSet) Options(key string) []Option {
	s, _ := fs[key].([]Option)
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []Option:
		return append([]Option{}, t...)
	case *Option:
		if t == nil {
			return t
		}
		c := *t
		return &c
	case *FileRef:
		if t == nil {
			return t
		}
		c := *t
		return &c
	default:
		return v
	}
}

// isEmptyValue reports whether v counts as "no value" for a required check.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return isBlank(t)
	case []string:
		return len(t) == 0
	case []Option:
		return len(t) == 0
	case *Option:
		return t == nil || t.ID == ""
	case *FileRef:
		return t == nil || (!t.IsNew() && t.Stored == "")
	case civil.Date:
		return !t.IsValid()
	default:
		return false
	}
}
