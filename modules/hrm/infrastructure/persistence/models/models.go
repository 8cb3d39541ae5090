package models

import (
	"encoding/json"
	"time"
)

type Guard struct {
	EntityID string `json:"entity_id"`
	Mode     string `json:"mode"`
	Applied  bool   `json:"applied"`
}

type FormSession struct {
	ID        string                     `json:"id"`
	Kind      string                     `json:"kind"`
	Mode      string                     `json:"mode"`
	EntityID  string                     `json:"entity_id,omitempty"`
	Owner     string                     `json:"owner,omitempty"`
	Guard     Guard                      `json:"guard"`
	Record    json.RawMessage            `json:"record,omitempty"`
	Fields    map[string]json.RawMessage `json:"fields"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}
