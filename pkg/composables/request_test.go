package composables

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type searchQuery struct {
	Search string `form:"search"`
	Page   int    `form:"page"`
}

func TestUseQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?search=sen&page=2", nil)
	q, err := UseQuery(&searchQuery{}, r)
	require.NoError(t, err)
	require.Equal(t, "sen", q.Search)
	require.Equal(t, 2, q.Page)
}

func TestGetLastQueryParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?mode=view&mode=edit", nil)
	require.Equal(t, "edit", GetLastQueryParam(r, "mode"))
	require.Equal(t, "", GetLastQueryParam(r, "missing"))
}

func TestUseLogger_FallsBackOutsideRequest(t *testing.T) {
	require.NotNil(t, UseLogger(context.Background()))
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	_, err := UseAuth(ctx)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, UseAuthenticated(ctx))

	auth := &AuthContext{
		Subject:     "u-1",
		Token:       "tok",
		Roles:       []string{"hr"},
		Permissions: []string{"positions.update"},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	ctx = WithAuth(ctx, auth)
	got, err := UseAuth(ctx)
	require.NoError(t, err)
	require.Same(t, auth, got)
	require.Equal(t, "Bearer tok", got.Authorization())
	require.True(t, got.HasRole("hr"))
	require.True(t, got.Can("positions.update"))
	require.False(t, got.Expired(time.Now()))
	require.True(t, got.Expired(time.Now().Add(2*time.Hour)))

	var none *AuthContext
	require.Equal(t, "", none.Authorization())
}
