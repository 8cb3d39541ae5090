// Package forms declares the concrete HR entity forms: their field schemas,
// the payload aliases their records arrive with and the lookup lists they use.
package forms

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sedar/pkg/formstate"
)

var ErrUnknownKind = errors.New("unknown form kind")

// Kind names a form, e.g. "employee" or "rest_day".
type Kind string

const (
	KindEmployee Kind = "employee"
	KindPosition Kind = "position"
	KindMovement Kind = "movement"
)

// LookupSource says where the options of a lookup list come from.
type LookupSource struct {
	Resource string
	// LabelKey is the row column shown to the user. Empty means the usual
	// name/title keys.
	LabelKey string
}

// Form bundles everything the session layer needs for one entity form.
type Form struct {
	Kind       Kind
	Schema     *formstate.Schema
	Normalizer *formstate.Normalizer
	Lookups    map[string]LookupSource

	projector *formstate.Projector
	builder   *formstate.Builder
	validator *formstate.Validator
}

func newForm(kind Kind, schema *formstate.Schema, normalizer *formstate.Normalizer, lookups map[string]LookupSource) *Form {
	if normalizer == nil {
		normalizer = formstate.NewNormalizer()
	}
	if lookups == nil {
		lookups = map[string]LookupSource{}
	}
	return &Form{
		Kind:       kind,
		Schema:     schema,
		Normalizer: normalizer,
		Lookups:    lookups,
	}
}

func (f *Form) bind(log logrus.FieldLogger) {
	f.projector = formstate.NewProjector(f.Schema, log)
	f.builder = formstate.NewBuilder(f.Schema, log)
	f.validator = formstate.NewValidator(f.Schema)
}

// Resource is the backend collection the form reads and writes.
func (f *Form) Resource() string {
	return f.Schema.Resource
}

func (f *Form) Project(mode formstate.Mode, record formstate.EntityRecord, lookups formstate.Lookups) formstate.FieldSet {
	return f.projector.Project(mode, record, lookups)
}

// Derive refreshes the derived display fields after edits.
func (f *Form) Derive(record formstate.EntityRecord, fields formstate.FieldSet) formstate.FieldSet {
	return f.projector.Derive(record, fields)
}

func (f *Form) Validate(fields formstate.FieldSet, mode formstate.Mode) formstate.Result {
	return f.validator.Validate(fields, mode)
}

func (f *Form) Build(fields formstate.FieldSet, mode formstate.Mode, lookups formstate.Lookups) (formstate.WirePayload, error) {
	return f.builder.Build(fields, mode, lookups)
}

// Lookup returns the source of a lookup list the form depends on.
func (f *Form) Lookup(name string) (LookupSource, bool) {
	src, ok := f.Lookups[name]
	return src, ok
}

// checkLookups fails when a field names a lookup list the form has no source for.
func (f *Form) checkLookups() error {
	for _, name := range f.Schema.Lookups() {
		if _, ok := f.Lookups[name]; !ok {
			return errors.Errorf("form %q: lookup %q has no source", f.Kind, name)
		}
	}
	return nil
}

// Registry holds every known form by kind.
type Registry struct {
	forms map[Kind]*Form
}

// NewRegistry builds the employee, position and movement forms plus every
// lookup table of the extras catalogue.
func NewRegistry(log logrus.FieldLogger) (*Registry, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	extras, err := LoadCatalogue(catalogueYAML)
	if err != nil {
		return nil, err
	}
	r := &Registry{forms: map[Kind]*Form{}}
	all := []*Form{EmployeeForm(), PositionForm(), MovementForm()}
	all = append(all, extras.Forms()...)
	for _, f := range all {
		if _, dup := r.forms[f.Kind]; dup {
			return nil, errors.Errorf("duplicate form kind %q", f.Kind)
		}
		if err := f.checkLookups(); err != nil {
			return nil, err
		}
		f.bind(log)
		r.forms[f.Kind] = f
	}
	return r, nil
}

func (r *Registry) Get(kind Kind) (*Form, error) {
	f, ok := r.forms[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", string(kind))
	}
	return f, nil
}

// Kinds returns every registered kind, sorted.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.forms))
	for k := range r.forms {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resources returns the distinct backend resources touched by any form,
// including lookup sources.
func (r *Registry) Resources() []string {
	seen := map[string]struct{}{}
	for _, f := range r.forms {
		seen[f.Resource()] = struct{}{}
		for _, src := range f.Lookups {
			seen[src.Resource] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for res := range seen {
		out = append(out, res)
	}
	sort.Strings(out)
	return out
}
