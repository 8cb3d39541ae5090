package formstate

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
	ErrBadValue      = errors.New("invalid field value")
)

// DecodeJSON converts a raw JSON value into the typed value of f.
func DecodeJSON(f Field, raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return f.EmptyValue(), nil
	}
	if f.Kind == KindFile {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s == "" {
				return nil, nil
			}
			return &FileRef{Stored: s, Name: baseName(s)}, nil
		}
		var ref FileRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, errors.Wrapf(ErrBadValue, "%s: %v", f.Key, err)
		}
		if !ref.IsNew() && ref.Stored == "" {
			return nil, nil
		}
		return &ref, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrapf(ErrBadValue, "%s: %v", f.Key, err)
	}
	return DecodeValue(f, v)
}

// DecodeForm converts form-encoded values (one or many) into the typed value of f.
// File fields accept only the stored reference here; uploads arrive separately.
func DecodeForm(f Field, values []string) (any, error) {
	switch f.Kind {
	case KindStringList:
		return toStrings(anySlice(values)), nil
	case KindOptionList:
		return toOptions(anySlice(values)), nil
	}
	if len(values) == 0 {
		return f.EmptyValue(), nil
	}
	v := values[len(values)-1]
	if f.Kind == KindBool && len(values) > 1 {
		// checkbox pattern: hidden "false" followed by "true"
		for _, s := range values {
			if toBool(s) {
				return true, nil
			}
		}
	}
	return DecodeValue(f, v)
}

// DecodeValue converts an already-decoded value (JSON types) into the typed value of f.
func DecodeValue(f Field, v any) (any, error) {
	if v == nil {
		return f.EmptyValue(), nil
	}
	switch f.Kind {
	case KindString:
		return stringify(v), nil
	case KindNumber:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		d, ok := toDecimal(v)
		if !ok {
			return nil, errors.Wrapf(ErrBadValue, "%s: not a number", f.Key)
		}
		return d, nil
	case KindBool:
		return toBool(v), nil
	case KindDate:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		d, ok := ParseDate(v)
		if !ok {
			return nil, errors.Wrapf(ErrBadValue, "%s: not a date", f.Key)
		}
		return d, nil
	case KindOption:
		switch t := v.(type) {
		case map[string]any:
			id := IDString(t["id"])
			if id == "" {
				return nil, nil
			}
			o := &Option{ID: id, Label: labelOf(t)}
			for k, v := range t {
				if k == "id" || k == "label" {
					continue
				}
				if o.Attrs == nil {
					o.Attrs = map[string]any{}
				}
				o.Attrs[k] = v
			}
			return o, nil
		default:
			id := IDString(t)
			if id == "" {
				return nil, nil
			}
			return &Option{ID: id}, nil
		}
	case KindOptionList:
		return toOptions(v), nil
	case KindStringList:
		return toStrings(v), nil
	case KindFile:
		s := stringify(v)
		if s == "" {
			return nil, nil
		}
		return &FileRef{Stored: s, Name: baseName(s)}, nil
	}
	return nil, errors.Wrapf(ErrBadValue, "%s: unsupported kind %s", f.Key, f.Kind)
}

// DecodeFieldSet rebuilds a FieldSet from its JSON encoding (see json.Marshal
// on FieldSet values). Keys unknown to the schema are ignored; missing keys get
// their empty value.
func DecodeFieldSet(s *Schema, raw map[string]json.RawMessage) (FieldSet, error) {
	out := make(FieldSet, len(s.Fields))
	for _, f := range s.Fields {
		r, ok := raw[f.Key]
		if !ok {
			out[f.Key] = f.EmptyValue()
			continue
		}
		v, err := DecodeJSON(f, r)
		if err != nil {
			return nil, err
		}
		out[f.Key] = v
	}
	return out, nil
}

// ApplyEdits decodes user edits into a copy of fields. Unknown and read-only
// keys are rejected as a whole; nothing is applied on error.
func ApplyEdits(s *Schema, fields FieldSet, edits map[string]json.RawMessage) (FieldSet, error) {
	out := fields.Clone()
	for key, raw := range edits {
		f, ok := s.Field(key)
		if !ok {
			return fields, errors.Wrapf(ErrUnknownField, "%q", key)
		}
		if !f.Editable() {
			return fields, errors.Wrapf(ErrReadOnlyField, "%q", key)
		}
		v, err := DecodeJSON(f, raw)
		if err != nil {
			return fields, err
		}
		out[key] = v
	}
	return out, nil
}

// NumberString renders a number field value for display, "" when unset.
func NumberString(v any) string {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return ""
	}
	return d.String()
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
