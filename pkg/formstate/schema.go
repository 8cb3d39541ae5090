package formstate

import (
	"fmt"
	"slices"
)

// Kind is the value type a field carries inside a FieldSet.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindDate
	KindFile
	KindOption
	KindStringList
	KindOptionList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindFile:
		return "file"
	case KindOption:
		return "option"
	case KindStringList:
		return "string_list"
	case KindOptionList:
		return "option_list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field declares one FieldSet key: where its value comes from, how it is
// validated and how it goes back on the wire.
type Field struct {
	Key  string
	Kind Kind

	// Source is the record key read by the projector. Defaults to Key.
	Source string
	// Nested lists detail namespaces consulted before the top-level key.
	Nested []string

	// IDSource and LabelSource split a reference field into its id and its
	// human-readable name. IDSource defaults to Source+"_id".
	IDSource    string
	LabelSource string
	// Lookup names the option list used to derive ids from labels.
	Lookup string

	// WireKey is the payload key. Defaults to IDSource for options, Source otherwise.
	WireKey string

	Default     any
	DisplayOnly bool
	ReadOnly    bool

	// Required lists the modes in which the field must hold a value.
	Required []Mode
	// Rules are go-playground/validator tags checked on non-empty values.
	Rules string

	// Derive computes display-only values from the record and projected fields.
	Derive func(record EntityRecord, fields FieldSet) any
}

func (f Field) source() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Key
}

func (f Field) idSource() string {
	if f.IDSource != "" {
		return f.IDSource
	}
	return f.source() + "_id"
}

func (f Field) wireKey() string {
	if f.WireKey != "" {
		return f.WireKey
	}
	if f.Kind == KindOption {
		return f.idSource()
	}
	return f.source()
}

// WireName returns the payload key for the field.
func (f Field) WireName() string {
	return f.wireKey()
}

// RequiredIn reports whether the field is mandatory in mode.
func (f Field) RequiredIn(mode Mode) bool {
	return slices.Contains(f.Required, mode)
}

// Editable reports whether user input may set the field.
func (f Field) Editable() bool {
	return !f.ReadOnly && !f.DisplayOnly && f.Derive == nil
}

// EmptyValue is the type-appropriate empty value, never an absent key.
func (f Field) EmptyValue() any {
	switch f.Kind {
	case KindString:
		return ""
	case KindBool:
		return false
	case KindStringList:
		return []string{}
	case KindOptionList:
		return []Option{}
	default:
		return nil
	}
}

func (f Field) defaultValue() any {
	if f.Default != nil {
		return cloneValue(f.Default)
	}
	return f.EmptyValue()
}

// CrossCheck validates a relation between fields. Valid returns false to flag Key.
type CrossCheck struct {
	Key   string
	Tag   string
	Valid func(fields FieldSet, mode Mode) bool
}

// Schema is the full field declaration of one entity form.
type Schema struct {
	Name     string
	Resource string
	Fields   []Field
	Checks   []CrossCheck

	index map[string]int
}

// NewSchema indexes fields by key. Duplicate keys are a programming error.
func NewSchema(name, resource string, fields []Field, checks ...CrossCheck) *Schema {
	s := &Schema{
		Name:     name,
		Resource: resource,
		Fields:   fields,
		Checks:   checks,
		index:    make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Key == "" {
			panic(fmt.Sprintf("formstate: schema %s: field %d has no key", name, i))
		}
		if _, dup := s.index[f.Key]; dup {
			panic(fmt.Sprintf("formstate: schema %s: duplicate field %q", name, f.Key))
		}
		s.index[f.Key] = i
	}
	return s
}

// Field returns the declaration for key.
func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Keys returns every declared key in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Lookups returns the distinct lookup names the schema depends on.
func (s *Schema) Lookups() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range s.Fields {
		if f.Lookup == "" {
			continue
		}
		if _, ok := seen[f.Lookup]; ok {
			continue
		}
		seen[f.Lookup] = struct{}{}
		out = append(out, f.Lookup)
	}
	return out
}
