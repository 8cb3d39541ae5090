package forms

import (
	"strings"

	"github.com/iota-uz/sedar/pkg/formstate"
)

var editing = []formstate.Mode{formstate.ModeCreate, formstate.ModeEdit}

// EmployeeForm is the employee record dialog. Personal data lives under
// general_info and employment data under submittable.
func EmployeeForm() *Form {
	general := []string{formstate.NestedGeneralInfo}
	employment := []string{formstate.NestedSubmittable}
	fields := []formstate.Field{
		{Key: "employee_no", Kind: formstate.KindString, Nested: general, Required: editing, Rules: "max=30"},
		{Key: "first_name", Kind: formstate.KindString, Nested: general, Required: editing, Rules: "max=100"},
		{Key: "middle_name", Kind: formstate.KindString, Nested: general, Rules: "max=100"},
		{Key: "last_name", Kind: formstate.KindString, Nested: general, Required: editing, Rules: "max=100"},
		{Key: "suffix", Kind: formstate.KindString, Nested: general, Rules: "max=10"},
		{Key: "gender", Kind: formstate.KindString, Nested: general, Rules: "oneof=male female"},
		{Key: "birth_date", Kind: formstate.KindDate, Nested: general},
		{Key: "email", Kind: formstate.KindString, Nested: general, Required: editing, Rules: "email"},
		{Key: "contact_number", Kind: formstate.KindString, Nested: general, Rules: "max=20"},
		{Key: "address", Kind: formstate.KindString, Nested: general, Rules: "max=255"},
		{Key: "hire_date", Kind: formstate.KindDate, Nested: employment, Required: editing},
		{Key: "position", Kind: formstate.KindOption, Nested: employment, Lookup: "positions", Required: editing},
		{Key: "job_level", Kind: formstate.KindOption, Nested: employment, Lookup: "job_levels"},
		{Key: "department", Kind: formstate.KindOption, Nested: employment, Lookup: "departments"},
		{Key: "employment_status", Kind: formstate.KindString, Nested: employment, Rules: "oneof=regular probationary contractual casual"},
		{Key: "salary", Kind: formstate.KindNumber, Nested: employment, Rules: "gte=0"},
		{Key: "tools", Kind: formstate.KindStringList, Nested: employment, WireKey: "tool_ids", Lookup: "tools"},
		{Key: "resume", Kind: formstate.KindFile, Nested: employment},
		{Key: "status", Kind: formstate.KindString, Default: "active", Rules: "oneof=active inactive"},
		{Key: "full_name", Kind: formstate.KindString, DisplayOnly: true, Derive: employeeFullName},
	}
	checks := []formstate.CrossCheck{
		{Key: "hire_date", Tag: "gtfield", Valid: hiredAfterBirth},
	}
	schema := formstate.NewSchema(string(KindEmployee), "employees", fields, checks...)
	normalizer := formstate.NewNormalizer(
		formstate.Alias{Canonical: formstate.NestedGeneralInfo, Sources: []string{"generalInfo", "employee.general_info", "personal_info"}},
		formstate.Alias{Canonical: formstate.NestedSubmittable, Sources: []string{"employee.submittable", "employment"}},
		formstate.Alias{Canonical: "job_level_id", Sources: []string{"position.job_level_id"}},
	)
	return newForm(KindEmployee, schema, normalizer, map[string]LookupSource{
		"positions":   {Resource: "positions", LabelKey: "title"},
		"job_levels":  {Resource: "job-levels", LabelKey: "name"},
		"departments": {Resource: "departments", LabelKey: "name"},
		"tools":       {Resource: "tools", LabelKey: "name"},
	})
}

func employeeFullName(_ formstate.EntityRecord, fs formstate.FieldSet) any {
	parts := make([]string, 0, 4)
	for _, k := range []string{"first_name", "middle_name", "last_name", "suffix"} {
		if s := strings.TrimSpace(fs.String(k)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func hiredAfterBirth(fs formstate.FieldSet, _ formstate.Mode) bool {
	born, ok := fs.Date("birth_date")
	if !ok {
		return true
	}
	hired, ok := fs.Date("hire_date")
	if !ok {
		return true
	}
	return hired.After(born)
}
