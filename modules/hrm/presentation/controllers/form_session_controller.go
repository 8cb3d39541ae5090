package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/modules/hrm/presentation/dtos"
	"github.com/iota-uz/sedar/modules/hrm/presentation/mappers"
	"github.com/iota-uz/sedar/modules/hrm/services"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/httpapi"
	"github.com/iota-uz/sedar/pkg/middleware"
)

const maxJSONBody = 1 << 20

// FormSessionController is the JSON API over form sessions.
type FormSessionController struct {
	app      application.Application
	forms    *services.FormService
	basePath string
}

func NewFormSessionController(app application.Application) application.Controller {
	return &FormSessionController{
		app:      app,
		forms:    app.Service(services.FormService{}).(*services.FormService),
		basePath: "/hrm/forms",
	}
}

func (c *FormSessionController) Key() string {
	return c.basePath
}

func (c *FormSessionController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.ProvideLocalizer(c.app),
		middleware.RequireAuth(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{sid}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{sid}", c.Patch).Methods(http.MethodPatch)
	router.HandleFunc("/sessions/{sid}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/sessions/{sid}/refresh", c.Refresh).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{sid}/options/{field}", c.Options).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{sid}/validate", c.Validate).Methods(http.MethodPost)
	router.HandleFunc("/sessions/{sid}/changes", c.Changes).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{sid}/submit", c.Submit).Methods(http.MethodPost)
	router.HandleFunc("/{kind}", c.Schema).Methods(http.MethodGet)
	router.HandleFunc("/{kind}/sessions", c.Open).Methods(http.MethodPost)
}

func (c *FormSessionController) List(w http.ResponseWriter, r *http.Request) {
	registry := c.forms.Registry()
	out := make([]any, 0, len(registry.Kinds()))
	for _, kind := range registry.Kinds() {
		form, err := registry.Get(kind)
		if err != nil {
			continue
		}
		out = append(out, mappers.FormToViewModel(r.Context(), form, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *FormSessionController) Schema(w http.ResponseWriter, r *http.Request) {
	form, err := c.forms.Registry().Get(forms.Kind(mux.Vars(r)["kind"]))
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.FormToViewModel(r.Context(), form, true))
}

func (c *FormSessionController) Open(w http.ResponseWriter, r *http.Request) {
	var dto dtos.OpenSessionDTO
	if httpapi.IsMultipart(r) || r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if _, err := composables.UseForm(&dto, r); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "HRM_INVALID_BODY", "Errors.InvalidBody", "invalid request body", nil)
			return
		}
	} else if err := httpapi.DecodeJSON(r, maxJSONBody, &dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "HRM_INVALID_JSON", "Errors.InvalidJSON", "invalid json", nil)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		writeAPIError(w, r, http.StatusUnprocessableEntity, "HRM_VALIDATION_FAILED", "Errors.ValidationFailed", "validation failed", errs)
		return
	}
	sess, err := c.forms.Open(r.Context(), forms.Kind(mux.Vars(r)["kind"]), dto.EntityID, dto.ModeValue())
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	w.Header().Set("Location", c.basePath+"/sessions/"+sess.ID().String())
	writeJSON(w, http.StatusCreated, mappers.SessionToViewModel(sess))
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["sid"])
	if err != nil {
		writeAPIError(w, r, http.StatusNotFound, "HRM_SESSION_NOT_FOUND", "HRM.Errors.SessionNotFound", "form session not found or expired", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (c *FormSessionController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, _, err := c.forms.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.SessionToViewModel(sess))
}

// Patch accepts a plain {field: value} object, a JSON Patch or a JSON Merge
// Patch, told apart by Content-Type.
func (c *FormSessionController) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil || len(body) == 0 {
		writeAPIError(w, r, http.StatusBadRequest, "HRM_INVALID_BODY", "Errors.InvalidBody", "invalid request body", nil)
		return
	}
	sess, err := c.forms.Patch(r.Context(), id, r.Header.Get("Content-Type"), body)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.SessionToViewModel(sess))
}

func (c *FormSessionController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := c.forms.Close(r.Context(), id); err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *FormSessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))
	sess, applied, err := c.forms.Refresh(r.Context(), id, reset)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projected": applied,
		"session":   mappers.SessionToViewModel(sess),
	})
}

func (c *FormSessionController) Options(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	opts, err := c.forms.Options(r.Context(), id, mux.Vars(r)["field"], r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": mappers.OptionsToViewModel(opts)})
}

func (c *FormSessionController) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	_, form, err := c.forms.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	res, err := c.forms.Validate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, form, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.ValidationToViewModel(r.Context(), form, res))
}

func (c *FormSessionController) Changes(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	changes, err := c.forms.Changes(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": mappers.ChangesToViewModel(r.Context(), changes)})
}

// Submit takes an optional JSON body {"values": {...}} or a multipart body
// whose file parts attach uploads and whose other parts are field edits.
func (c *FormSessionController) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	_, form, err := c.forms.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, nil, err)
		return
	}

	var edits map[string]json.RawMessage
	var files map[string]*formstate.FileRef
	if httpapi.IsMultipart(r) {
		edits, files, err = readMultipart(w, r, form)
		if err != nil {
			writeServiceError(w, r, form, err)
			return
		}
	} else {
		var dto dtos.SubmitDTO
		if err := httpapi.DecodeJSON(r, maxJSONBody, &dto); err != nil && !errors.Is(err, httpapi.ErrEmptyBody) {
			writeAPIError(w, r, http.StatusBadRequest, "HRM_INVALID_JSON", "Errors.InvalidJSON", "invalid json", nil)
			return
		}
		edits = dto.Values
	}
	if len(edits) > 0 {
		if _, err := c.forms.Edit(r.Context(), id, edits); err != nil {
			writeServiceError(w, r, form, err)
			return
		}
	}

	res, err := c.forms.Submit(r.Context(), id, files)
	if err != nil {
		writeServiceError(w, r, form, err)
		return
	}
	status := http.StatusOK
	if res.Mode == formstate.ModeCreate {
		status = http.StatusCreated
	}
	writeJSON(w, status, mappers.SubmitResultToViewModel(res))
}

func readMultipart(w http.ResponseWriter, r *http.Request, form *forms.Form) (map[string]json.RawMessage, map[string]*formstate.FileRef, error) {
	conf := configuration.Use()
	r.Body = http.MaxBytesReader(w, r.Body, conf.MaxUploadSize)
	if err := r.ParseMultipartForm(conf.MaxUploadMemory); err != nil {
		return nil, nil, errors.Join(formstate.ErrBadValue, err)
	}
	edits := map[string]json.RawMessage{}
	for key, values := range r.MultipartForm.Value {
		f, ok := form.Schema.Field(trimListSuffix(key))
		if !ok {
			return nil, nil, errors.Join(formstate.ErrUnknownField, errors.New(key))
		}
		v, err := formstate.DecodeForm(f, values)
		if err != nil {
			return nil, nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, nil, errors.Join(formstate.ErrBadValue, err)
		}
		edits[f.Key] = raw
	}
	files := map[string]*formstate.FileRef{}
	for key, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		ref, err := readFile(headers[0])
		if err != nil {
			return nil, nil, err
		}
		files[key] = ref
	}
	return edits, files, nil
}

func trimListSuffix(key string) string {
	if len(key) > 2 && key[len(key)-2:] == "[]" {
		return key[:len(key)-2]
	}
	return key
}

func readFile(h *multipart.FileHeader) (*formstate.FileRef, error) {
	f, err := h.Open()
	if err != nil {
		return nil, errors.Join(formstate.ErrBadValue, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Join(formstate.ErrBadValue, err)
	}
	return &formstate.FileRef{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Data:        data,
	}, nil
}
