package mappers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sedar/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/sedar/pkg/formstate"
)

func TestRuleParam(t *testing.T) {
	require.Equal(t, "20", RuleParam("required,max=20", "max"))
	require.Equal(t, "active inactive", RuleParam("oneof=active inactive", "oneof"))
	require.Equal(t, "", RuleParam("max=20", "min"))
	require.Equal(t, "", RuleParam("", "gtfield"))
}

func TestFieldLabelFallsBackToHumanizedKey(t *testing.T) {
	require.Equal(t, "Break minutes", FieldLabel(context.Background(), "break_minutes"))
	require.Equal(t, "Code", FieldLabel(context.Background(), "code"))
}

func TestFieldsToViewModelHidesUploadBytes(t *testing.T) {
	out := FieldsToViewModel(formstate.FieldSet{
		"resume":   &formstate.FileRef{Name: "cv.pdf", Data: []byte("%PDF")},
		"position": &formstate.Option{ID: "5", Label: "Clerk"},
		"manager":  (*formstate.Option)(nil),
		"name":     "Ana",
	})
	require.Equal(t, viewmodels.File{Name: "cv.pdf", New: true}, out["resume"])
	require.Equal(t, viewmodels.Option{ID: "5", Label: "Clerk"}, out["position"])
	require.Nil(t, out["manager"])
	require.Equal(t, "Ana", out["name"])
}
