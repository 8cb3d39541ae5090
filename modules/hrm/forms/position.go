package forms

import (
	"strings"

	"github.com/iota-uz/sedar/pkg/formstate"
)

// PositionForm is the position masterlist dialog.
func PositionForm() *Form {
	sub := []string{formstate.NestedSubmittable}
	fields := []formstate.Field{
		{Key: "code", Kind: formstate.KindString, Nested: sub, Required: editing, Rules: "max=20"},
		{Key: "title", Kind: formstate.KindString, Nested: sub, Required: editing, Rules: "max=150"},
		{Key: "job_level", Kind: formstate.KindOption, Nested: sub, Lookup: "job_levels", Required: editing},
		{Key: "department", Kind: formstate.KindOption, Nested: sub, Lookup: "departments"},
		{Key: "reports_to", Kind: formstate.KindOption, Nested: sub, Lookup: "positions"},
		{Key: "job_rate", Kind: formstate.KindNumber, Nested: sub, Rules: "gte=0"},
		{Key: "headcount", Kind: formstate.KindNumber, Nested: sub, Rules: "gte=0"},
		{Key: "is_vacant", Kind: formstate.KindBool, Nested: sub},
		{Key: "effective_date", Kind: formstate.KindDate, Nested: sub},
		{Key: "description", Kind: formstate.KindString, Nested: sub, Rules: "max=500"},
		{Key: "status", Kind: formstate.KindString, Default: "active", Rules: "oneof=active inactive"},
		{Key: "display_name", Kind: formstate.KindString, DisplayOnly: true, Derive: positionDisplayName},
	}
	schema := formstate.NewSchema(string(KindPosition), "positions", fields)
	normalizer := formstate.NewNormalizer(
		formstate.Alias{Canonical: formstate.NestedSubmittable, Sources: []string{"position.submittable", "details"}},
		formstate.Alias{Canonical: "job_level_id", Sources: []string{"jobLevelId", "job_level.id"}},
		formstate.Alias{Canonical: "reports_to_id", Sources: []string{"parent_position_id", "parent.id"}},
	)
	return newForm(KindPosition, schema, normalizer, map[string]LookupSource{
		"job_levels":  {Resource: "job-levels", LabelKey: "name"},
		"departments": {Resource: "departments", LabelKey: "name"},
		"positions":   {Resource: "positions", LabelKey: "title"},
	})
}

func positionDisplayName(_ formstate.EntityRecord, fs formstate.FieldSet) any {
	code, title := strings.TrimSpace(fs.String("code")), strings.TrimSpace(fs.String("title"))
	switch {
	case code == "":
		return title
	case title == "":
		return code
	default:
		return code + " - " + title
	}
}
