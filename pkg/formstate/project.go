package formstate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Keys probed when a reference arrives as an embedded object.
var labelKeys = []string{"label", "name", "title", "full_name", "description"}

// Projector maps an entity record onto the FieldSet of one schema.
type Projector struct {
	schema *Schema
	log    logrus.FieldLogger
}

func NewProjector(schema *Schema, log logrus.FieldLogger) *Projector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Projector{schema: schema, log: log}
}

func (p *Projector) Schema() *Schema {
	return p.schema
}

// Project returns the field values the form should display. Create mode
// ignores the record and yields a complete default set; edit and view derive
// each field from the record. It never fails: missing data becomes empty values.
func (p *Projector) Project(mode Mode, record EntityRecord, lookups Lookups) FieldSet {
	fields := make(FieldSet, len(p.schema.Fields))
	if mode == ModeCreate || !mode.Valid() {
		for _, f := range p.schema.Fields {
			fields[f.Key] = f.defaultValue()
		}
		p.derive(nil, fields)
		return fields
	}
	for _, f := range p.schema.Fields {
		if f.Derive != nil {
			continue
		}
		fields[f.Key] = p.projectField(f, record, lookups)
	}
	p.derive(record, fields)
	return fields
}

// Derive recomputes the derived display fields of fields after user edits.
func (p *Projector) Derive(record EntityRecord, fields FieldSet) FieldSet {
	out := fields.Clone()
	p.derive(record, out)
	return out
}

func (p *Projector) derive(record EntityRecord, fields FieldSet) {
	for _, f := range p.schema.Fields {
		if f.Derive == nil {
			continue
		}
		v := f.Derive(record, fields)
		if v == nil {
			v = f.EmptyValue()
		}
		fields[f.Key] = v
	}
}

func (p *Projector) projectField(f Field, record EntityRecord, lookups Lookups) any {
	switch f.Kind {
	case KindOption:
		if o := p.projectOption(f, record, lookups); o != nil {
			return o
		}
		return nil
	case KindOptionList:
		v, _ := record.Resolve(f.source(), f.Nested...)
		return toOptions(v)
	case KindStringList:
		v, _ := record.Resolve(f.source(), f.Nested...)
		return toStrings(v)
	}

	v, ok := record.Resolve(f.source(), f.Nested...)
	if !ok {
		return f.EmptyValue()
	}
	switch f.Kind {
	case KindString:
		return stringify(v)
	case KindNumber:
		d, ok := toDecimal(v)
		if !ok {
			p.log.WithField("field", f.Key).Debugf("formstate: %s: unparseable number %v", p.schema.Name, v)
			return nil
		}
		return d
	case KindBool:
		return toBool(v)
	case KindDate:
		d, ok := ParseDate(v)
		if !ok {
			p.log.WithField("field", f.Key).Debugf("formstate: %s: unparseable date %v", p.schema.Name, v)
			return nil
		}
		return d
	case KindFile:
		switch t := v.(type) {
		case string:
			return &FileRef{Stored: t, Name: baseName(t)}
		case map[string]any:
			stored := stringify(t["url"])
			if stored == "" {
				stored = stringify(t["path"])
			}
			if stored == "" {
				return nil
			}
			return &FileRef{Stored: stored, Name: stringify(t["name"])}
		}
		return nil
	}
	return f.EmptyValue()
}

// projectOption resolves a reference field. Each nested namespace is tried as
// a whole (object, id key, label key) before the top level; a missing id is
// derived from the label by exact match in the lookup.
func (p *Projector) projectOption(f Field, record EntityRecord, lookups Lookups) *Option {
	var id, label string
	var attrs map[string]any

	layers := make([]EntityRecord, 0, len(f.Nested)+1)
	for _, name := range f.Nested {
		layers = append(layers, record.Nested(name))
	}
	layers = append(layers, record)
	for _, layer := range layers {
		id, label, attrs = optionFromLayer(f, layer)
		if id != "" || label != "" {
			break
		}
	}

	options := lookups[f.Lookup]
	if id == "" && label != "" {
		if o, ok := FindByLabel(options, label); ok {
			id = o.ID
		}
	}
	if label == "" && id != "" {
		if o, ok := FindByID(options, id); ok {
			label = o.Label
		}
	}
	if id == "" {
		return nil
	}
	opt := &Option{ID: id, Label: label}
	if len(attrs) > 0 {
		opt.Attrs = make(map[string]any, len(attrs))
		for k, v := range attrs {
			if k == "id" || k == "label" {
				continue
			}
			opt.Attrs[k] = v
		}
	}
	return opt
}

func optionFromLayer(f Field, layer EntityRecord) (id, label string, attrs map[string]any) {
	if v, ok := layer.Get(f.source()); ok && !isBlank(v) {
		if obj, isObj := v.(map[string]any); isObj {
			id = IDString(obj["id"])
			label = labelOf(obj)
			attrs = obj
		} else if f.LabelSource == "" || f.LabelSource == f.source() {
			label = stringify(v)
		}
	}
	if id == "" {
		if v, ok := layer.Get(f.idSource()); ok && !isBlank(v) {
			id = IDString(v)
		}
	}
	if label == "" && f.LabelSource != "" {
		if v, ok := layer.Get(f.LabelSource); ok && !isBlank(v) {
			label = stringify(v)
		}
	}
	return id, label, attrs
}

func labelOf(obj map[string]any) string {
	for _, k := range labelKeys {
		if s := stringify(obj[k]); s != "" {
			return s
		}
	}
	first, last := stringify(obj["first_name"]), stringify(obj["last_name"])
	return strings.TrimSpace(first + " " + last)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "on" || s == "yes" || s == "active" {
			return true
		}
		b, _ := strconv.ParseBool(s)
		return b
	case json.Number:
		return t.String() != "0"
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func toStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		return append(out, t...)
	case []any:
		for _, item := range t {
			var s string
			if obj, ok := item.(map[string]any); ok {
				s = labelOf(obj)
			} else {
				s = stringify(item)
			}
			if s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toOptions(v any) []Option {
	out := []Option{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	seen := map[string]struct{}{}
	for _, item := range items {
		var o Option
		if obj, isObj := item.(map[string]any); isObj {
			o = Option{ID: IDString(obj["id"]), Label: labelOf(obj)}
		} else {
			o = Option{ID: IDString(item)}
		}
		if o.ID == "" {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

func baseName(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
