package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/httpapi"
)

// AuthResolver maps a presented credential to a live auth context.
type AuthResolver interface {
	Resolve(ctx context.Context, credential string) (*composables.AuthContext, error)
}

// BearerOrCookie extracts the credential from "Authorization: Bearer" or the sid cookie.
func BearerOrCookie(r *http.Request, cookieKey string) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if cookieKey == "" {
		return ""
	}
	if c, err := r.Cookie(cookieKey); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// Authorize attaches the auth context when the credential resolves. Anonymous
// requests pass through; RequireAuth rejects them.
func Authorize(resolver AuthResolver) mux.MiddlewareFunc {
	cookieKey := configuration.Use().SidCookieKey
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := BearerOrCookie(r, cookieKey)
			if cred == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth, err := resolver.Resolve(r.Context(), cred)
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Debug("auth credential rejected")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithAuth(r.Context(), auth)))
		})
	}
}

func RequireAuth() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !composables.UseAuthenticated(r.Context()) {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", map[string]string{
					"request_id": composables.UseRequestID(r.Context()),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
