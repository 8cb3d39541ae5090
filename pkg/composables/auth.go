package composables

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/sedar/pkg/constants"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
)

// AuthContext is the identity a request acts under. It is created when the
// caller logs in, forwarded to the SEDAR backend, and torn down on logout.
type AuthContext struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Token       string    `json:"token"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (a *AuthContext) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

func (a *AuthContext) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a *AuthContext) Can(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

// Authorization returns the header value forwarded to the backend.
func (a *AuthContext) Authorization() string {
	if a == nil || a.Token == "" {
		return ""
	}
	return "Bearer " + a.Token
}

func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, constants.AuthKey, auth)
}

// UseAuth returns the auth context of the request or ErrUnauthenticated.
func UseAuth(ctx context.Context) (*AuthContext, error) {
	auth, ok := ctx.Value(constants.AuthKey).(*AuthContext)
	if !ok || auth == nil {
		return nil, ErrUnauthenticated
	}
	return auth, nil
}

func UseAuthenticated(ctx context.Context) bool {
	_, err := UseAuth(ctx)
	return err == nil
}
