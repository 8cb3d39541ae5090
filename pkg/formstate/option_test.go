package formstate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func opts(ids ...string) []Option {
	out := make([]Option, len(ids))
	for i, id := range ids {
		out[i] = Option{ID: id, Label: "L" + id}
	}
	return out
}

func TestMerge_ViewReturnsOnlyEmbedded(t *testing.T) {
	embedded := &Option{ID: "99", Label: "Archived"}

	got := Merge(Loaded(opts("1", "2")), embedded, ModeView)
	require.Equal(t, []Option{*embedded}, got)

	got = Merge(Pending(), embedded, ModeView)
	require.Equal(t, []Option{*embedded}, got)
}

func TestMerge_EditWhileLoading(t *testing.T) {
	embedded := &Option{ID: "3", Label: "Current"}

	require.Equal(t, []Option{*embedded}, Merge(Pending(), embedded, ModeEdit))
	require.Equal(t, []Option{}, Merge(Pending(), nil, ModeEdit))
	require.Equal(t, []Option{*embedded}, Merge(OptionSource{Err: errors.New("boom")}, embedded, ModeEdit))
}

func TestMerge_EditPrependsMissingEmbedded(t *testing.T) {
	embedded := &Option{ID: "99", Label: "Archived"}

	got := Merge(Loaded(opts("1", "2")), embedded, ModeEdit)
	require.Equal(t, []string{"99", "1", "2"}, IDs(got))
}

func TestMerge_EditKeepsListWhenEmbeddedPresent(t *testing.T) {
	got := Merge(Loaded(opts("1", "2")), &Option{ID: "2"}, ModeEdit)
	require.Equal(t, []string{"1", "2"}, IDs(got))

	got = Merge(Loaded(opts("1", "2")), nil, ModeEdit)
	require.Equal(t, []string{"1", "2"}, IDs(got))
}

func TestMerge_CreateIgnoresEmbedded(t *testing.T) {
	require.Equal(t, []string{"1"}, IDs(Merge(Loaded(opts("1")), &Option{ID: "9"}, ModeCreate)))
	require.Equal(t, []Option{}, Merge(Pending(), &Option{ID: "9"}, ModeCreate))
	require.Equal(t, []Option{}, Merge(Loaded(nil), nil, ModeCreate))
}

func TestMerge_Idempotent(t *testing.T) {
	cases := []struct {
		name     string
		src      OptionSource
		embedded *Option
	}{
		{name: "missing embedded", src: Loaded(opts("1", "2")), embedded: &Option{ID: "9"}},
		{name: "present embedded", src: Loaded(opts("1", "2")), embedded: &Option{ID: "1"}},
		{name: "no embedded", src: Loaded(opts("1", "2")), embedded: nil},
		{name: "loading", src: Pending(), embedded: &Option{ID: "9"}},
		{name: "duplicate ids in source", src: Loaded(opts("1", "1", "2")), embedded: &Option{ID: "9"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, mode := range []Mode{ModeCreate, ModeEdit, ModeView} {
				first := Merge(tc.src, tc.embedded, mode)
				second := Merge(tc.src, tc.embedded, mode)
				require.ElementsMatch(t, IDs(first), IDs(second))
				requireUniqueIDs(t, first)

				// feeding the merged list back in must not grow it either
				again := Merge(Loaded(first), tc.embedded, mode)
				require.ElementsMatch(t, IDs(first), IDs(again), "mode=%s", mode)
			}
		})
	}
}

func TestMergeLists(t *testing.T) {
	got := MergeLists(opts("1", "2", "3"), opts("5", "2", "4"))
	require.Equal(t, []string{"5", "4", "1", "2", "3"}, IDs(got))

	require.Equal(t, opts("1"), MergeLists(opts("1"), nil))
	require.Equal(t, opts("7"), MergeLists(nil, opts("7")))

	twice := MergeLists(MergeLists(opts("1"), opts("2")), opts("2"))
	require.Equal(t, []string{"2", "1"}, IDs(twice))
}

func TestFilter(t *testing.T) {
	items := []Option{
		{ID: "1", Label: "Software Engineer"},
		{ID: "2", Label: "HR Officer"},
		{ID: "3", Label: "Senior Software Engineer"},
	}
	got := Filter(items, "software")
	require.ElementsMatch(t, []string{"1", "3"}, IDs(got))
	require.Equal(t, items, Filter(items, "  "))
	require.Empty(t, Filter(items, "accountant"))
}

func TestFindByLabel_IsCaseSensitive(t *testing.T) {
	items := []Option{{ID: "1", Label: "Senior"}}
	o, ok := FindByLabel(items, "Senior")
	require.True(t, ok)
	require.Equal(t, "1", o.ID)

	_, ok = FindByLabel(items, "senior")
	require.False(t, ok)
}

func TestOption_JSONKeepsAttrs(t *testing.T) {
	o := Option{ID: "4", Label: "Davao", Attrs: map[string]any{"region": "XI"}}
	b, err := o.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"4","label":"Davao","region":"XI"}`, string(b))

	var back Option
	require.NoError(t, back.UnmarshalJSON(b))
	require.Equal(t, o, back)
}

func requireUniqueIDs(t *testing.T, items []Option) {
	t.Helper()
	seen := map[string]bool{}
	for _, o := range items {
		require.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
	}
}

func TestOptionsFromRows(t *testing.T) {
	rows := []map[string]any{
		{"id": json.Number("1"), "title": "Clerk", "code": "C1"},
		{"id": json.Number("1"), "title": "Duplicate"},
		{"name": "no id"},
		{"id": "7", "first_name": "Ana", "last_name": "Cruz"},
	}
	got := OptionsFromRows(rows, "title")
	require.Len(t, got, 2)
	require.Equal(t, Option{ID: "1", Label: "Clerk", Attrs: map[string]any{"title": "Clerk", "code": "C1"}}, got[0])
	require.Equal(t, "Ana Cruz", got[1].Label)
}
