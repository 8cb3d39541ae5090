package formstate

import (
	"io"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testSchema() *Schema {
	return NewSchema("position", "positions", []Field{
		{Key: "code", Kind: KindString, Required: []Mode{ModeCreate, ModeEdit}, Rules: "max=20"},
		{Key: "title", Kind: KindString, Nested: []string{NestedSubmittable}, Required: []Mode{ModeCreate, ModeEdit}},
		{Key: "job_rate", Kind: KindNumber, Nested: []string{NestedFromDetails}, Rules: "gte=0"},
		{Key: "is_vacant", Kind: KindBool},
		{Key: "effective_date", Kind: KindDate},
		{Key: "job_level", Kind: KindOption, Lookup: "job_levels"},
		{Key: "tools", Kind: KindStringList, Source: "tool_names", WireKey: "tool_ids", Lookup: "tools"},
		{Key: "attachment", Kind: KindFile},
		{Key: "status", Kind: KindString, Default: "active"},
		{Key: "display_name", Kind: KindString, Derive: func(_ EntityRecord, fs FieldSet) any {
			if fs.String("code") == "" {
				return ""
			}
			return fs.String("code") + " - " + fs.String("title")
		}},
	})
}

func testLookups() Lookups {
	return Lookups{
		"job_levels": {
			{ID: "1", Label: "Junior"},
			{ID: "2", Label: "Senior"},
		},
		"tools": {
			{ID: "10", Label: "Laptop"},
			{ID: "11", Label: "Phone"},
		},
	}
}
