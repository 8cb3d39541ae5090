package forms

import (
	"bytes"
	_ "embed"
	"strings"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/sedar/pkg/formstate"
)

//go:embed extras.yaml
var catalogueYAML []byte

// Catalogue describes the uniform lookup tables of the extras screens.
type Catalogue struct {
	Tables []TableSpec `yaml:"tables"`
}

type TableSpec struct {
	Kind     string                `yaml:"kind"`
	Resource string                `yaml:"resource"`
	Fields   []FieldSpec           `yaml:"fields"`
	Lookups  map[string]LookupSpec `yaml:"lookups"`
}

type FieldSpec struct {
	Key      string   `yaml:"key"`
	Kind     string   `yaml:"kind"`
	Source   string   `yaml:"source"`
	WireKey  string   `yaml:"wire_key"`
	Lookup   string   `yaml:"lookup"`
	Required []string `yaml:"required"`
	Rules    string   `yaml:"rules"`
	Default  any      `yaml:"default"`
}

type LookupSpec struct {
	Resource string `yaml:"resource"`
	LabelKey string `yaml:"label_key"`
}

var kindNames = map[string]formstate.Kind{
	"string":      formstate.KindString,
	"number":      formstate.KindNumber,
	"bool":        formstate.KindBool,
	"date":        formstate.KindDate,
	"file":        formstate.KindFile,
	"option":      formstate.KindOption,
	"string_list": formstate.KindStringList,
	"option_list": formstate.KindOptionList,
}

// LoadCatalogue parses and checks a catalogue document. Unknown YAML keys are
// rejected so a typo cannot silently drop a rule.
func LoadCatalogue(doc []byte) (*Catalogue, error) {
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	var c Catalogue
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decode extras catalogue")
	}
	seen := map[string]struct{}{}
	for i, t := range c.Tables {
		if strings.TrimSpace(t.Kind) == "" || strings.TrimSpace(t.Resource) == "" {
			return nil, errors.Errorf("extras table %d: kind and resource are required", i)
		}
		if _, dup := seen[t.Kind]; dup {
			return nil, errors.Errorf("extras table %q declared twice", t.Kind)
		}
		seen[t.Kind] = struct{}{}
		for _, f := range t.Fields {
			if _, ok := kindNames[f.Kind]; !ok {
				return nil, errors.Errorf("extras table %q: field %q: unknown kind %q", t.Kind, f.Key, f.Kind)
			}
			if isBaseField(f.Key) {
				return nil, errors.Errorf("extras table %q: field %q is built in", t.Kind, f.Key)
			}
			for _, m := range f.Required {
				if !formstate.Mode(m).Valid() {
					return nil, errors.Errorf("extras table %q: field %q: unknown mode %q", t.Kind, f.Key, m)
				}
			}
			if f.Lookup != "" {
				if _, ok := t.Lookups[f.Lookup]; !ok {
					return nil, errors.Errorf("extras table %q: field %q: lookup %q is not declared", t.Kind, f.Key, f.Lookup)
				}
			}
		}
	}
	return &c, nil
}

func isBaseField(key string) bool {
	return key == "code" || key == "name" || key == "status"
}

// Forms builds one form per table. Every table starts with code, name and
// status; code and name are required, status defaults to active.
func (c *Catalogue) Forms() []*Form {
	out := make([]*Form, 0, len(c.Tables))
	for _, t := range c.Tables {
		fields := []formstate.Field{
			{Key: "code", Kind: formstate.KindString, Required: editing},
			{Key: "name", Kind: formstate.KindString, Required: editing},
			{Key: "status", Kind: formstate.KindString, Default: "active"},
		}
		for _, f := range t.Fields {
			required := make([]formstate.Mode, 0, len(f.Required))
			for _, m := range f.Required {
				required = append(required, formstate.Mode(m))
			}
			fields = append(fields, formstate.Field{
				Key:      f.Key,
				Kind:     kindNames[f.Kind],
				Source:   f.Source,
				WireKey:  f.WireKey,
				Lookup:   f.Lookup,
				Required: required,
				Rules:    f.Rules,
				Default:  f.Default,
			})
		}
		lookups := make(map[string]LookupSource, len(t.Lookups))
		for name, l := range t.Lookups {
			lookups[name] = LookupSource{Resource: l.Resource, LabelKey: l.LabelKey}
		}
		schema := formstate.NewSchema(t.Kind, t.Resource, fields)
		out = append(out, newForm(Kind(t.Kind), schema, nil, lookups))
	}
	return out
}
