package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/httpapi"
	"github.com/iota-uz/sedar/pkg/intl"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, messageID, fallback string, fields map[string]string) {
	writeJSON(w, status, httpapi.ErrorEnvelope{
		Code:    code,
		Message: intl.T(r.Context(), messageID, fallback, nil),
		Meta:    map[string]string{"request_id": composables.UseRequestID(r.Context())},
		Fields:  fields,
	})
}
