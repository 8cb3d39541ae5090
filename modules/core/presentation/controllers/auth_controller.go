package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/sedar/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/sedar/modules/core/services"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/httpapi"
	"github.com/iota-uz/sedar/pkg/middleware"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

type AuthController struct {
	app         application.Application
	authService *services.AuthService
	basePath    string
}

func NewAuthController(app application.Application) application.Controller {
	return &AuthController{
		app:         app,
		authService: app.Service(services.AuthService{}).(*services.AuthService),
		basePath:    "/auth/session",
	}
}

func (c *AuthController) Key() string {
	return c.basePath
}

func (c *AuthController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.ProvideLocalizer(c.app),
		middleware.IPRateLimitPeriod(10, time.Minute),
	)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)

	authed := r.PathPrefix(c.basePath).Subrouter()
	authed.Use(
		middleware.ProvideLocalizer(c.app),
		middleware.RequireAuth(),
	)
	authed.HandleFunc("", c.Show).Methods(http.MethodGet)
	authed.HandleFunc("", c.Delete).Methods(http.MethodDelete)
}

// Create accepts {"token": "..."} or an Authorization bearer header.
func (c *AuthController) Create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.LoginDTO
	switch {
	case httpapi.IsMultipart(r) || r.Header.Get("Content-Type") == "application/x-www-form-urlencoded":
		if _, err := composables.UseForm(&dto, r); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "AUTH_INVALID_BODY", "Errors.InvalidBody", "invalid request body", nil)
			return
		}
	case r.ContentLength != 0:
		if err := httpapi.DecodeJSON(r, 1<<16, &dto); err != nil && !errors.Is(err, httpapi.ErrEmptyBody) {
			writeAPIError(w, r, http.StatusBadRequest, "AUTH_INVALID_JSON", "Errors.InvalidJSON", "invalid json", nil)
			return
		}
	}
	if dto.Token == "" {
		dto.Token = middleware.BearerOrCookie(r, "")
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeAPIError(w, r, http.StatusUnprocessableEntity, "AUTH_VALIDATION_FAILED", "Errors.ValidationFailed", "validation failed", errs)
		return
	}

	auth, profile, err := c.authService.Login(r.Context(), dto.Token)
	if err != nil {
		if errors.Is(err, sedarapi.ErrUnauthorized) {
			writeAPIError(w, r, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "Auth.Errors.InvalidToken", "token was rejected", nil)
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Error("login failed")
		writeAPIError(w, r, http.StatusBadGateway, "AUTH_BACKEND_UNAVAILABLE", "Auth.Errors.BackendUnavailable", "backend unavailable", nil)
		return
	}
	http.SetCookie(w, c.authService.Cookie(auth))
	resp := sessionResponse(auth)
	resp.Name = profile.Name
	resp.Email = profile.Email
	writeJSON(w, http.StatusCreated, resp)
}

func (c *AuthController) Show(w http.ResponseWriter, r *http.Request) {
	auth, err := composables.UseAuth(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "Errors.Unauthenticated", "authentication required", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(auth))
}

func (c *AuthController) Delete(w http.ResponseWriter, r *http.Request) {
	auth, err := composables.UseAuth(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "Errors.Unauthenticated", "authentication required", nil)
		return
	}
	if err := c.authService.Logout(r.Context(), auth); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("logout failed")
		writeAPIError(w, r, http.StatusInternalServerError, "AUTH_INTERNAL", "Errors.Internal", "internal error", nil)
		return
	}
	http.SetCookie(w, c.authService.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

func sessionResponse(auth *composables.AuthContext) dtos.SessionResponse {
	resp := dtos.SessionResponse{
		SessionID:   auth.ID,
		Subject:     auth.Subject,
		Roles:       append([]string{}, auth.Roles...),
		Permissions: append([]string{}, auth.Permissions...),
		Locale:      auth.Locale,
	}
	if !auth.ExpiresAt.IsZero() {
		resp.ExpiresAt = auth.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}
