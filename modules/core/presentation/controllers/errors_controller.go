package controllers

import (
	"net/http"

	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/middleware"
)

// NotFound answers unknown routes with the JSON error envelope.
func NotFound(app application.Application) http.Handler {
	return middleware.ProvideLocalizer(app)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, r, http.StatusNotFound, "NOT_FOUND", "Errors.NotFound", "not found", nil)
	}))
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Errors.MethodNotAllowed", "method not allowed", nil)
	})
}
