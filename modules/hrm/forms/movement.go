package forms

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/wI2L/jsondiff"

	"github.com/iota-uz/sedar/pkg/formstate"
)

// movementCompared are the assignment attributes shown side by side in the
// approval dialog. Each has a from_ and a to_ field.
var movementCompared = []string{"position", "job_level", "department", "job_rate"}

// MovementForm is the movement / developmental assignment (MDA) request.
// Current assignment values come from from_details, proposed ones from to_details.
func MovementForm() *Form {
	from := []string{formstate.NestedFromDetails}
	to := []string{formstate.NestedToDetails}
	fields := []formstate.Field{
		{Key: "employee", Kind: formstate.KindOption, Lookup: "employees", Required: editing},
		{Key: "movement_type", Kind: formstate.KindOption, Lookup: "movement_types", Required: editing},
		{Key: "effective_date", Kind: formstate.KindDate, Required: editing},
		{Key: "end_date", Kind: formstate.KindDate},

		{Key: "from_position", Kind: formstate.KindOption, Source: "position", Nested: from, Lookup: "positions", WireKey: "from_position_id", ReadOnly: true},
		{Key: "from_job_level", Kind: formstate.KindOption, Source: "job_level", Nested: from, Lookup: "job_levels", WireKey: "from_job_level_id", ReadOnly: true},
		{Key: "from_department", Kind: formstate.KindOption, Source: "department", Nested: from, Lookup: "departments", WireKey: "from_department_id", ReadOnly: true},
		{Key: "from_job_rate", Kind: formstate.KindNumber, Source: "job_rate", Nested: from, WireKey: "from_job_rate", ReadOnly: true},

		{Key: "to_position", Kind: formstate.KindOption, Source: "position", Nested: to, Lookup: "positions", WireKey: "to_position_id", Required: editing},
		{Key: "to_job_level", Kind: formstate.KindOption, Source: "job_level", Nested: to, Lookup: "job_levels", WireKey: "to_job_level_id"},
		{Key: "to_department", Kind: formstate.KindOption, Source: "department", Nested: to, Lookup: "departments", WireKey: "to_department_id"},
		{Key: "to_job_rate", Kind: formstate.KindNumber, Source: "job_rate", Nested: to, WireKey: "to_job_rate", Rules: "gte=0"},

		{Key: "approver", Kind: formstate.KindOption, Lookup: "employees"},
		{Key: "remarks", Kind: formstate.KindString, Rules: "max=1000"},
		{Key: "attachment", Kind: formstate.KindFile},
		{Key: "status", Kind: formstate.KindString, Default: "pending", ReadOnly: true},
		{Key: "changed", Kind: formstate.KindStringList, DisplayOnly: true, Derive: changedAttributes},
	}
	checks := []formstate.CrossCheck{
		{Key: "end_date", Tag: "gtefield", Valid: endNotBeforeStart},
	}
	schema := formstate.NewSchema(string(KindMovement), "movements", fields, checks...)
	normalizer := formstate.NewNormalizer(
		formstate.Alias{Canonical: formstate.NestedFromDetails, Sources: []string{"fromDetails", "movement.from_details", "current"}},
		formstate.Alias{Canonical: formstate.NestedToDetails, Sources: []string{"toDetails", "movement.to_details", "proposed"}},
		formstate.Alias{Canonical: "employee", Sources: []string{"movement.employee", "employee_details"}},
		formstate.Alias{Canonical: "movement_type", Sources: []string{"movement.movement_type", "type"}},
	)
	return newForm(KindMovement, schema, normalizer, map[string]LookupSource{
		"employees":      {Resource: "employees"},
		"movement_types": {Resource: "movement-types", LabelKey: "name"},
		"positions":      {Resource: "positions", LabelKey: "title"},
		"job_levels":     {Resource: "job-levels", LabelKey: "name"},
		"departments":    {Resource: "departments", LabelKey: "name"},
	})
}

func endNotBeforeStart(fs formstate.FieldSet, _ formstate.Mode) bool {
	end, ok := fs.Date("end_date")
	if !ok {
		return true
	}
	start, ok := fs.Date("effective_date")
	if !ok {
		return true
	}
	return !end.Before(start)
}

// Change is one attribute that differs between the current and the proposed
// assignment.
type Change struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ChangeSummary compares the from_* and to_* values of a movement field set.
// Unset proposed values do not count as a change.
func ChangeSummary(fs formstate.FieldSet) ([]Change, error) {
	before, after := assignmentSide(fs, "from_"), assignmentSide(fs, "to_")
	for k, v := range after {
		if v == "" {
			delete(after, k)
			delete(before, k)
		}
	}
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil, errors.Wrap(err, "compare assignment")
	}
	changes := make([]Change, 0, len(patch))
	for _, op := range patch {
		field := strings.TrimPrefix(string(op.Path), "/")
		if field == "" {
			continue
		}
		changes = append(changes, Change{Field: field, From: before[field], To: after[field]})
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return slices.Index(movementCompared, a.Field) - slices.Index(movementCompared, b.Field)
	})
	return changes, nil
}

func assignmentSide(fs formstate.FieldSet, prefix string) map[string]string {
	out := make(map[string]string, len(movementCompared))
	for _, attr := range movementCompared {
		key := prefix + attr
		switch v := fs[key].(type) {
		case *formstate.Option:
			if v != nil {
				out[attr] = v.Label
				if out[attr] == "" {
					out[attr] = v.ID
				}
			}
		case nil:
			out[attr] = ""
		default:
			out[attr] = formstate.NumberString(v)
		}
	}
	return out
}

func changedAttributes(_ formstate.EntityRecord, fs formstate.FieldSet) any {
	changes, err := ChangeSummary(fs)
	if err != nil {
		return []string{}
	}
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Field)
	}
	return out
}
