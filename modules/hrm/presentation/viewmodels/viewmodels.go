package viewmodels

import "time"

// Field is the schema metadata a client renders an input from.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required []string `json:"required,omitempty"`
	ReadOnly bool     `json:"read_only"`
	Lookup   string   `json:"lookup,omitempty"`
	Rules    string   `json:"rules,omitempty"`
	WireKey  string   `json:"wire_key,omitempty"`
}

type Form struct {
	Kind     string  `json:"kind"`
	Resource string  `json:"resource"`
	Fields   []Field `json:"fields,omitempty"`
}

type Guard struct {
	EntityID string `json:"entity_id"`
	Mode     string `json:"mode"`
	Applied  bool   `json:"applied"`
}

// File hides upload bytes; only the name and the stored reference are shown.
type File struct {
	Name   string `json:"name"`
	Stored string `json:"stored,omitempty"`
	Size   int64  `json:"size,omitempty"`
	New    bool   `json:"new"`
}

type Session struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Mode      string         `json:"mode"`
	EntityID  string         `json:"entity_id,omitempty"`
	Editable  bool           `json:"editable"`
	Guard     Guard          `json:"guard"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Option struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type Validation struct {
	OK       bool              `json:"ok"`
	Errors   map[string]bool   `json:"errors"`
	Messages map[string]string `json:"messages,omitempty"`
}

type Change struct {
	Field string `json:"field"`
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type SubmitResult struct {
	Kind     string `json:"kind"`
	Mode     string `json:"mode"`
	EntityID string `json:"entity_id,omitempty"`
	Response any    `json:"response,omitempty"`
}
