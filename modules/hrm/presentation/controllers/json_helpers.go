package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/modules/hrm/presentation/mappers"
	"github.com/iota-uz/sedar/modules/hrm/services"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/httpapi"
	"github.com/iota-uz/sedar/pkg/intl"
	"github.com/iota-uz/sedar/pkg/sedarapi"
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

type errorMapping struct {
	target    error
	status    int
	code      string
	messageID string
	fallback  string
}

var errorMappings = []errorMapping{
	{forms.ErrUnknownKind, http.StatusNotFound, "HRM_UNKNOWN_FORM", "HRM.Errors.UnknownForm", "unknown form"},
	{formsession.ErrSessionNotFound, http.StatusNotFound, "HRM_SESSION_NOT_FOUND", "HRM.Errors.SessionNotFound", "form session not found or expired"},
	{formsession.ErrForbidden, http.StatusForbidden, "HRM_FORBIDDEN", "Errors.Forbidden", "forbidden"},
	{formsession.ErrNotEditable, http.StatusConflict, "HRM_READ_ONLY", "HRM.Errors.ReadOnly", "the form is read-only"},
	{formstate.ErrNotSubmittable, http.StatusConflict, "HRM_READ_ONLY", "HRM.Errors.ReadOnly", "the form is read-only"},
	{formstate.ErrInvalidMode, http.StatusBadRequest, "HRM_INVALID_TARGET", "HRM.Errors.InvalidTarget", "invalid mode or entity"},
	{formstate.ErrEntityRequired, http.StatusBadRequest, "HRM_INVALID_TARGET", "HRM.Errors.InvalidTarget", "invalid mode or entity"},
	{formstate.ErrEntityNotAllowed, http.StatusBadRequest, "HRM_INVALID_TARGET", "HRM.Errors.InvalidTarget", "invalid mode or entity"},
	{formstate.ErrUnknownField, http.StatusUnprocessableEntity, "HRM_INVALID_FIELD", "HRM.Errors.InvalidField", "invalid field"},
	{formstate.ErrReadOnlyField, http.StatusUnprocessableEntity, "HRM_INVALID_FIELD", "HRM.Errors.InvalidField", "invalid field"},
	{formstate.ErrBadValue, http.StatusUnprocessableEntity, "HRM_INVALID_FIELD", "HRM.Errors.InvalidField", "invalid field"},
	{formstate.ErrMalformedRecord, http.StatusBadGateway, "HRM_MALFORMED_RECORD", "HRM.Errors.MalformedRecord", "the record could not be read"},
	{services.ErrBadPatch, http.StatusBadRequest, "HRM_BAD_PATCH", "HRM.Errors.BadPatch", "invalid patch document"},
	{services.ErrNoLookup, http.StatusNotFound, "HRM_NO_LOOKUP", "HRM.Errors.NoLookup", "the field has no options"},
	{services.ErrCodeConflict, http.StatusConflict, "SUBMIT_CODE_CONFLICT", "HRM.Errors.CodeConflict", "the code is already taken"},
	{services.ErrSubmitFailed, http.StatusBadGateway, "SUBMIT_FAILED", "HRM.Errors.SubmitFailed", "saving failed, please try again"},
	{sedarapi.ErrNotFound, http.StatusNotFound, "HRM_ENTITY_NOT_FOUND", "HRM.Errors.EntityNotFound", "record not found"},
	{sedarapi.ErrUnauthorized, http.StatusUnauthorized, "HRM_BACKEND_UNAUTHORIZED", "Auth.Errors.InvalidToken", "token was rejected"},
}

// writeServiceError maps service errors onto the API error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, form *forms.Form, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		fields := map[string]string{}
		if form != nil {
			fields = mappers.ValidationToViewModel(r.Context(), form, verr.Result).Messages
		}
		writeAPIError(w, r, http.StatusUnprocessableEntity, "HRM_VALIDATION_FAILED", "Errors.ValidationFailed", "validation failed", fields)
		return
	}
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		var fields map[string]string
		if m.code == "HRM_INVALID_FIELD" {
			fields = map[string]string{"error": err.Error()}
		}
		writeAPIError(w, r, m.status, m.code, m.messageID, m.fallback, fields)
		return
	}
	composables.UseLogger(r.Context()).WithError(err).Error("form request failed")
	writeAPIError(w, r, http.StatusInternalServerError, "HRM_INTERNAL", "Errors.Internal", "internal error", nil)
}
