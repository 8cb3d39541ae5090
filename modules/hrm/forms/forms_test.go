package forms

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sedar/pkg/formstate"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := NewRegistry(log)
	require.NoError(t, err)
	return r
}

func mustForm(t *testing.T, r *Registry, kind Kind) *Form {
	t.Helper()
	f, err := r.Get(kind)
	require.NoError(t, err)
	return f
}

func normalize(t *testing.T, f *Form, raw string) formstate.EntityRecord {
	t.Helper()
	rec, err := f.Normalizer.Normalize([]byte(raw))
	require.NoError(t, err)
	return rec
}

func TestRegistry_Kinds(t *testing.T) {
	r := testRegistry(t)
	require.Equal(t, []Kind{
		"employee", "movement", "movement_type", "position",
		"rest_day", "status", "work_hour", "work_week",
	}, r.Kinds())

	_, err := r.Get("payroll")
	require.ErrorIs(t, err, ErrUnknownKind)

	require.Contains(t, r.Resources(), "job-levels")
	require.Contains(t, r.Resources(), "rest-days")
}

func TestForm_CheckLookups(t *testing.T) {
	schema := formstate.NewSchema("asset", "assets", []formstate.Field{
		{Key: "owner", Kind: formstate.KindOption, Lookup: "employees"},
	})
	f := newForm("asset", schema, nil, nil)
	require.ErrorContains(t, f.checkLookups(), `lookup "employees" has no source`)

	f.Lookups["employees"] = LookupSource{Resource: "employees"}
	require.NoError(t, f.checkLookups())
}

func TestCreateModeIsComplete(t *testing.T) {
	r := testRegistry(t)
	for _, kind := range r.Kinds() {
		f := mustForm(t, r, kind)
		fs := f.Project(formstate.ModeCreate, nil, nil)
		for _, key := range f.Schema.Keys() {
			_, ok := fs[key]
			require.True(t, ok, "%s: %s missing", kind, key)
		}
		require.Len(t, fs, len(f.Schema.Fields), kind)
	}
}

func TestMovement_NestedDetailWins(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindMovement)
	rec := normalize(t, f, `{"id":5,"from_details":{"job_rate":100},"job_rate":50}`)

	fs := f.Project(formstate.ModeEdit, rec, nil)
	from, ok := fs.Number("from_job_rate")
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(100).Equal(from), from.String())
	to, ok := fs.Number("to_job_rate")
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(50).Equal(to), to.String())
}

func TestMovement_NestedIDBeatsTopLevelObject(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindMovement)
	rec := normalize(t, f, `{"id":5,"position":{"id":"1","title":"Clerk"},"to_details":{"position_id":"7"}}`)
	lookups := formstate.Lookups{"positions": {{ID: "1", Label: "Clerk"}, {ID: "7", Label: "Supervisor"}}}

	fs := f.Project(formstate.ModeEdit, rec, lookups)
	require.Equal(t, &formstate.Option{ID: "7", Label: "Supervisor"}, fs.Option("to_position"))
	require.Equal(t, "1", fs.Option("from_position").ID)
}

func TestMovement_AliasedDetails(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindMovement)
	rec := normalize(t, f, `{"data":{"movement":{"from_details":{"position":{"id":1,"title":"Clerk"}}},"toDetails":{"position_id":2}}}`)
	lookups := formstate.Lookups{"positions": {{ID: "1", Label: "Clerk"}, {ID: "2", Label: "Senior Clerk"}}}

	fs := f.Project(formstate.ModeView, rec, lookups)
	require.Equal(t, &formstate.Option{ID: "1", Label: "Clerk", Attrs: map[string]any{"title": "Clerk"}}, fs.Option("from_position"))
	require.Equal(t, &formstate.Option{ID: "2", Label: "Senior Clerk"}, fs.Option("to_position"))
	require.Equal(t, []string{"position"}, fs.Strings("changed"))
}

func TestMovement_ChangeSummary(t *testing.T) {
	fs := formstate.FieldSet{
		"from_position":  &formstate.Option{ID: "1", Label: "Clerk"},
		"to_position":    &formstate.Option{ID: "2", Label: "Senior Clerk"},
		"from_job_level": &formstate.Option{ID: "3", Label: "L1"},
		"to_job_level":   nil,
		"from_job_rate":  decimal.NewFromInt(100),
		"to_job_rate":    decimal.NewFromInt(120),
	}
	changes, err := ChangeSummary(fs)
	require.NoError(t, err)
	require.Equal(t, []Change{
		{Field: "position", From: "Clerk", To: "Senior Clerk"},
		{Field: "job_rate", From: "100", To: "120"},
	}, changes)

	same := formstate.FieldSet{
		"from_position": &formstate.Option{ID: "1", Label: "Clerk"},
		"to_position":   &formstate.Option{ID: "1", Label: "Clerk"},
	}
	changes, err = ChangeSummary(same)
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestMovement_EndDateCheck(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindMovement)
	fs := f.Project(formstate.ModeCreate, nil, nil)
	fs["employee"] = &formstate.Option{ID: "9"}
	fs["movement_type"] = &formstate.Option{ID: "1"}
	fs["to_position"] = &formstate.Option{ID: "2"}
	fs["effective_date"] = civil.Date{Year: 2026, Month: 3, Day: 1}
	fs["end_date"] = civil.Date{Year: 2026, Month: 2, Day: 1}

	res := f.Validate(fs, formstate.ModeCreate)
	require.False(t, res.OK)
	require.Equal(t, []string{"end_date"}, res.Failed())
	require.Equal(t, "gtefield", res.Tags["end_date"])

	fs["end_date"] = civil.Date{Year: 2026, Month: 9, Day: 1}
	require.True(t, f.Validate(fs, formstate.ModeCreate).OK)
}

func TestEmployee_RoundTrip(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindEmployee)
	rec := normalize(t, f, `{"data":{
		"general_info":{"employee_no":"E-001","first_name":"Ana","last_name":"Cruz","gender":"female","birth_date":"1990-04-02","email":"ana@example.com"},
		"submittable":{"hire_date":"2015-06-01","position":{"id":3,"title":"Clerk"},"job_level":"Senior","salary":"25000.50",
			"tools":[{"id":10,"name":"Laptop"}],"resume":"uploads/cv.pdf","employment_status":"regular"},
		"status":"active"}}`)
	lookups := formstate.Lookups{
		"positions":  {{ID: "3", Label: "Clerk"}},
		"job_levels": {{ID: "1", Label: "Junior"}, {ID: "2", Label: "Senior"}},
		"tools":      {{ID: "10", Label: "Laptop"}, {ID: "11", Label: "Phone"}},
	}

	fs := f.Project(formstate.ModeEdit, rec, lookups)
	require.Equal(t, "Ana Cruz", fs.String("full_name"))
	require.True(t, f.Validate(fs, formstate.ModeEdit).OK)

	p, err := f.Build(fs, formstate.ModeEdit, lookups)
	require.NoError(t, err)
	require.False(t, p.NeedsMultipart())
	want := map[string]any{
		"employee_no":       "E-001",
		"first_name":        "Ana",
		"last_name":         "Cruz",
		"gender":            "female",
		"birth_date":        "1990-04-02",
		"email":             "ana@example.com",
		"hire_date":         "2015-06-01",
		"position_id":       "3",
		"job_level_id":      "2",
		"salary":            json.Number("25000.5"),
		"tool_ids":          []string{"10"},
		"resume":            "uploads/cv.pdf",
		"employment_status": "regular",
		"status":            "active",
		"_method":           "PATCH",
	}
	for k, v := range want {
		require.Equal(t, v, p.Values[k], k)
	}
	require.NotContains(t, p.Values, "full_name")
	require.NotContains(t, p.Values, "department_id")
}

func TestEmployee_HireDateAfterBirth(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, KindEmployee)
	fs := f.Project(formstate.ModeCreate, nil, nil)
	fs["employee_no"] = "E-2"
	fs["first_name"] = "Bo"
	fs["last_name"] = "Diaz"
	fs["email"] = "not-an-email"
	fs["position"] = &formstate.Option{ID: "3"}
	fs["birth_date"] = civil.Date{Year: 2000, Month: 1, Day: 1}
	fs["hire_date"] = civil.Date{Year: 1999, Month: 1, Day: 1}

	res := f.Validate(fs, formstate.ModeCreate)
	require.Equal(t, []string{"email", "hire_date"}, res.Failed())
	require.Equal(t, "email", res.Tags["email"])
}

func TestRestDay_Scenario(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, "rest_day")

	fs := f.Project(formstate.ModeCreate, nil, nil)
	fs["name"] = "Monday"
	res := f.Validate(fs, formstate.ModeCreate)
	require.False(t, res.OK)
	require.Equal(t, map[string]bool{"code": true, "name": false}, res.Errors)

	fs["code"] = "RD-01"
	res = f.Validate(fs, formstate.ModeCreate)
	require.True(t, res.OK)
	p, err := f.Build(fs, formstate.ModeCreate, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "Monday", "code": "RD-01", "status": "active"}, p.Values)
}

func TestWorkWeek_DaysResolveToIDs(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, "work_week")
	src, ok := f.Lookup("rest_days")
	require.True(t, ok)
	require.Equal(t, "rest-days", src.Resource)

	rec := normalize(t, f, `{"id":1,"code":"WW","name":"Standard","day_names":["Saturday","Sunday"]}`)
	aux := formstate.Lookups{"rest_days": {{ID: "6", Label: "Saturday"}, {ID: "7", Label: "Sunday"}}}
	fs := f.Project(formstate.ModeEdit, rec, aux)
	p, err := f.Build(fs, formstate.ModeEdit, aux)
	require.NoError(t, err)
	require.Equal(t, []string{"6", "7"}, p.Values["rest_day_ids"])
}

func TestWorkHour_Rules(t *testing.T) {
	r := testRegistry(t)
	f := mustForm(t, r, "work_hour")
	fs := f.Project(formstate.ModeCreate, nil, nil)
	fs["code"] = "DAY"
	fs["name"] = "Day shift"
	fs["time_in"] = "08:00"
	fs["time_out"] = "25:00"
	fs["break_minutes"] = decimal.NewFromInt(60)
	res := f.Validate(fs, formstate.ModeCreate)
	require.Equal(t, []string{"time_out"}, res.Failed())
}

func TestLoadCatalogue_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "tables:\n  - kind: a\n    resource: a\n    colour: red\n",
		"missing kind":   "tables:\n  - resource: a\n",
		"duplicate":      "tables:\n  - kind: a\n    resource: a\n  - kind: a\n    resource: b\n",
		"bad field kind": "tables:\n  - kind: a\n    resource: a\n    fields:\n      - key: x\n        kind: money\n",
		"built in":       "tables:\n  - kind: a\n    resource: a\n    fields:\n      - key: code\n        kind: string\n",
		"bad mode":       "tables:\n  - kind: a\n    resource: a\n    fields:\n      - key: x\n        kind: string\n        required: [approve]\n",
		"no lookup":      "tables:\n  - kind: a\n    resource: a\n    fields:\n      - key: x\n        kind: string_list\n        lookup: days\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalogue([]byte(doc))
			require.Error(t, err)
		})
	}
}
