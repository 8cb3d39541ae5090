// Package mappers turns form sessions and their parts into view models.
package mappers

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/sedar/modules/hrm/services"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/intl"
	"github.com/iota-uz/sedar/pkg/serrors"
)

// FieldLabel localizes a field key, falling back to a humanized key.
func FieldLabel(ctx context.Context, key string) string {
	return intl.T(ctx, "HRM.Fields."+key, humanize(key), nil)
}

func humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	if len(words) == 0 {
		return key
	}
	r := []rune(words[0])
	r[0] = unicode.ToUpper(r[0])
	words[0] = string(r)
	return strings.Join(words, " ")
}

func FormToViewModel(ctx context.Context, f *forms.Form, withFields bool) viewmodels.Form {
	vm := viewmodels.Form{Kind: string(f.Kind), Resource: f.Resource()}
	if !withFields {
		return vm
	}
	vm.Fields = make([]viewmodels.Field, 0, len(f.Schema.Fields))
	for _, field := range f.Schema.Fields {
		required := make([]string, 0, len(field.Required))
		for _, m := range field.Required {
			required = append(required, m.String())
		}
		vm.Fields = append(vm.Fields, viewmodels.Field{
			Key:      field.Key,
			Label:    FieldLabel(ctx, field.Key),
			Kind:     field.Kind.String(),
			Required: required,
			ReadOnly: !field.Editable(),
			Lookup:   field.Lookup,
			Rules:    field.Rules,
			WireKey:  field.WireName(),
		})
	}
	return vm
}

func SessionToViewModel(s formsession.Session) viewmodels.Session {
	g := s.Guard()
	return viewmodels.Session{
		ID:       s.ID().String(),
		Kind:     s.Kind(),
		Mode:     s.Mode().String(),
		EntityID: s.EntityID(),
		Editable: s.Editable(),
		Guard: viewmodels.Guard{
			EntityID: g.Key.EntityID,
			Mode:     g.Key.Mode.String(),
			Applied:  g.Applied,
		},
		Fields:    FieldsToViewModel(s.Fields()),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

// FieldsToViewModel keeps values as they encode to JSON, except files whose
// bytes are never echoed back.
func FieldsToViewModel(fs formstate.FieldSet) map[string]any {
	out := make(map[string]any, len(fs))
	for k, v := range fs {
		switch t := v.(type) {
		case *formstate.FileRef:
			if t == nil {
				out[k] = nil
				continue
			}
			out[k] = viewmodels.File{Name: t.Name, Stored: t.Stored, Size: t.Size, New: t.IsNew()}
		case *formstate.Option:
			if t == nil {
				out[k] = nil
				continue
			}
			out[k] = OptionToViewModel(*t)
		case []formstate.Option:
			out[k] = OptionsToViewModel(t)
		default:
			out[k] = v
		}
	}
	return out
}

func OptionToViewModel(o formstate.Option) viewmodels.Option {
	return viewmodels.Option{ID: o.ID, Label: o.Label, Attrs: o.Attrs}
}

func OptionsToViewModel(opts []formstate.Option) []viewmodels.Option {
	out := make([]viewmodels.Option, 0, len(opts))
	for _, o := range opts {
		out = append(out, OptionToViewModel(o))
	}
	return out
}

// ValidationToViewModel renders a message for every failing field in the
// request language.
func ValidationToViewModel(ctx context.Context, f *forms.Form, res formstate.Result) viewmodels.Validation {
	vm := viewmodels.Validation{OK: res.OK, Errors: res.Errors}
	if vm.Errors == nil {
		vm.Errors = map[string]bool{}
	}
	failed := res.Failed()
	if len(failed) == 0 {
		return vm
	}
	lang, _ := intl.UseLocale(ctx).Base()
	vm.Messages = make(map[string]string, len(failed))
	for _, key := range failed {
		tag := res.Tags[key]
		param := ""
		if field, ok := f.Schema.Field(key); ok {
			param = RuleParam(field.Rules, tag)
		}
		if strings.HasSuffix(tag, "field") && param != "" {
			param = FieldLabel(ctx, param)
		}
		label := FieldLabel(ctx, key)
		data := map[string]string{"Field": label, "Param": param}
		generic := intl.T(ctx, "ValidationErrors."+tag, serrors.TranslateTag(lang.String(), tag, label, param), data)
		vm.Messages[key] = intl.T(ctx, "HRM.Validation."+key+"."+tag, generic, data)
	}
	return vm
}

// RuleParam returns the parameter of tag inside a validator rule string.
func RuleParam(rules, tag string) string {
	for _, rule := range strings.Split(rules, ",") {
		name, param, _ := strings.Cut(rule, "=")
		if name == tag {
			return param
		}
	}
	return ""
}

func ChangesToViewModel(ctx context.Context, changes []forms.Change) []viewmodels.Change {
	out := make([]viewmodels.Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, viewmodels.Change{
			Field: c.Field,
			Label: FieldLabel(ctx, c.Field),
			From:  c.From,
			To:    c.To,
		})
	}
	return out
}

func SubmitResultToViewModel(res services.SubmitResult) viewmodels.SubmitResult {
	vm := viewmodels.SubmitResult{
		Kind:     string(res.Kind),
		Mode:     res.Mode.String(),
		EntityID: res.EntityID,
	}
	if len(res.Response) > 0 && json.Valid(res.Response) {
		vm.Response = res.Response
	}
	return vm
}
