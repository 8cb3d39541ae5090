package formstate

import (
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/sedar/pkg/constants"
)

// Result is the outcome of a pre-submit validation pass. Errors holds one flag
// per checked field (true = invalid); Tags names the failing rule.
type Result struct {
	OK     bool
	Errors map[string]bool
	Tags   map[string]string
}

// Failed returns the invalid field keys, sorted.
func (r Result) Failed() []string {
	var out []string
	for k, bad := range r.Errors {
		if bad {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Validator enumerates the required and rule-bearing fields of a schema per mode.
type Validator struct {
	schema *Schema
}

func NewValidator(schema *Schema) *Validator {
	return &Validator{schema: schema}
}

// Validate never touches the network; Builder runs only when OK is true.
func (v *Validator) Validate(fields FieldSet, mode Mode) Result {
	res := Result{OK: true, Errors: map[string]bool{}, Tags: map[string]string{}}
	if !mode.Editable() {
		return res
	}
	fail := func(key, tag string) {
		res.OK = false
		res.Errors[key] = true
		if _, set := res.Tags[key]; !set {
			res.Tags[key] = tag
		}
	}
	for _, f := range v.schema.Fields {
		required := f.RequiredIn(mode)
		if !required && f.Rules == "" {
			continue
		}
		res.Errors[f.Key] = false
		val := fields[f.Key]
		if isEmptyValue(val) {
			if required {
				fail(f.Key, "required")
			}
			continue
		}
		if f.Rules == "" {
			continue
		}
		if tag, ok := checkRules(val, f.Rules); !ok {
			fail(f.Key, tag)
		}
	}
	for _, c := range v.schema.Checks {
		if _, seen := res.Errors[c.Key]; !seen {
			res.Errors[c.Key] = false
		}
		if res.Errors[c.Key] {
			continue
		}
		if !c.Valid(fields, mode) {
			fail(c.Key, c.Tag)
		}
	}
	return res
}

func checkRules(v any, rules string) (string, bool) {
	var subject any
	switch t := v.(type) {
	case decimal.Decimal:
		subject = t.InexactFloat64()
	case civil.Date:
		subject = t.String()
	case *Option:
		subject = t.ID
	case []Option:
		subject = IDs(t)
	default:
		subject = t
	}
	err := constants.Validate.Var(subject, rules)
	if err == nil {
		return "", true
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return verrs[0].Tag(), false
	}
	return "invalid", false
}
