package formstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveGuard_SameKeyKeepsState(t *testing.T) {
	prev := Guard{Key: GuardKey{EntityID: "5", Mode: ModeEdit}, Applied: true}

	got := ResolveGuard("5", ModeEdit, prev)
	require.Equal(t, prev, got)
	require.False(t, got.NeedsProjection())
}

func TestResolveGuard_ResetsOnEntityOrModeChange(t *testing.T) {
	prev := Guard{Key: GuardKey{EntityID: "5", Mode: ModeEdit}, Applied: true}

	got := ResolveGuard("6", ModeEdit, prev)
	require.Equal(t, Guard{Key: GuardKey{EntityID: "6", Mode: ModeEdit}, Applied: false}, got)

	got = ResolveGuard("5", ModeView, prev)
	require.Equal(t, GuardKey{EntityID: "5", Mode: ModeView}, got.Key)
	require.True(t, got.NeedsProjection())
}

func TestMarkApplied(t *testing.T) {
	g := ResolveGuard("", ModeCreate, Guard{})
	require.True(t, g.NeedsProjection())

	applied := MarkApplied(g)
	require.True(t, applied.Applied)
	require.False(t, g.Applied, "MarkApplied must not mutate its argument")
	require.Equal(t, applied, ResolveGuard("", ModeCreate, applied))
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"create", " Edit ", "VIEW"} {
		m, err := ParseMode(in)
		require.NoError(t, err, in)
		require.True(t, m.Valid())
	}
	_, err := ParseMode("delete")
	require.ErrorIs(t, err, ErrInvalidMode)
	_, err = ParseMode("")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestValidateTarget(t *testing.T) {
	require.NoError(t, ValidateTarget(ModeCreate, ""))
	require.ErrorIs(t, ValidateTarget(ModeCreate, "7"), ErrEntityNotAllowed)
	require.NoError(t, ValidateTarget(ModeEdit, "7"))
	require.ErrorIs(t, ValidateTarget(ModeEdit, " "), ErrEntityRequired)
	require.ErrorIs(t, ValidateTarget(ModeView, ""), ErrEntityRequired)
	require.ErrorIs(t, ValidateTarget(Mode("archive"), "7"), ErrInvalidMode)
}
