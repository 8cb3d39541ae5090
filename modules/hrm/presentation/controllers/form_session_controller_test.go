package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sedar/modules/hrm"
	"github.com/iota-uz/sedar/pkg/application"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

type fakeBackend struct {
	entities  map[string]string
	lists     map[string][]map[string]any
	submitted []formstate.WirePayload
	submitErr error
}

func (b *fakeBackend) GetEntity(_ context.Context, resource, id string) ([]byte, error) {
	raw, ok := b.entities[resource+"/"+id]
	if !ok {
		return nil, &sedarapi.APIError{Status: http.StatusNotFound}
	}
	return []byte(raw), nil
}

func (b *fakeBackend) ListOptions(_ context.Context, resource string, _ sedarapi.ListParams) ([]map[string]any, error) {
	return b.lists[resource], nil
}

func (b *fakeBackend) Submit(_ context.Context, _, _ string, _ formstate.Mode, payload formstate.WirePayload) ([]byte, error) {
	b.submitted = append(b.submitted, payload)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return []byte(`{"data":{"id":31}}`), nil
}

type client struct {
	t       *testing.T
	handler http.Handler
	subject string
}

func newClient(t *testing.T, backend *fakeBackend) *client {
	t.Helper()
	app := application.New(&application.ApplicationOptions{})
	require.NoError(t, hrm.NewModule(&hrm.ModuleOptions{Backend: backend}).Register(app))
	c := &client{t: t, subject: "u1"}
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if c.subject == "" {
				next.ServeHTTP(w, req)
				return
			}
			auth := &composables.AuthContext{Subject: c.subject, Token: "tok"}
			next.ServeHTTP(w, req.WithContext(composables.WithAuth(req.Context(), auth)))
		})
	})
	for _, ctrl := range app.Controllers() {
		ctrl.Register(r)
	}
	c.handler = r
	return c
}

func (c *client) do(method, path, contentType string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (c *client) open(kind, body string) string {
	c.t.Helper()
	rec, out := c.do(http.MethodPost, "/hrm/forms/"+kind+"/sessions", "application/json", []byte(body))
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := out["id"].(string)
	require.NotEmpty(c.t, id)
	return id
}

func TestFormSessions_RequireAuth(t *testing.T) {
	c := newClient(t, &fakeBackend{})
	c.subject = ""
	rec, out := c.do(http.MethodGet, "/hrm/forms", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", out["code"])
}

func TestFormSessions_ListAndSchema(t *testing.T) {
	c := newClient(t, &fakeBackend{})
	rec, out := c.do(http.MethodGet, "/hrm/forms", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, out["items"])

	rec, out = c.do(http.MethodGet, "/hrm/forms/position", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "positions", out["resource"])
	fields := out["fields"].([]any)
	first := fields[0].(map[string]any)
	require.Equal(t, "code", first["key"])
	require.Equal(t, "Code", first["label"])

	rec, out = c.do(http.MethodGet, "/hrm/forms/payroll", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "HRM_UNKNOWN_FORM", out["code"])
}

func TestFormSessions_OpenRejectsBadTargets(t *testing.T) {
	c := newClient(t, &fakeBackend{})
	rec, out := c.do(http.MethodPost, "/hrm/forms/position/sessions", "application/json", []byte(`{"mode":"edit"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, out["fields"], "EntityID")

	rec, out = c.do(http.MethodPost, "/hrm/forms/position/sessions", "application/json", []byte(`{"mode":"archive"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, out["fields"], "Mode")

	rec, out = c.do(http.MethodPost, "/hrm/forms/position/sessions", "application/json", []byte(`{"mode":"view","entity_id":"404"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "HRM_ENTITY_NOT_FOUND", out["code"])

	rec, _ = c.do(http.MethodPost, "/hrm/forms/position/sessions", "application/json", []byte(`{"mode":`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormSessions_CreateEditSubmit(t *testing.T) {
	backend := &fakeBackend{}
	c := newClient(t, backend)
	sid := c.open("rest_day", `{"mode":"create"}`)
	base := "/hrm/forms/sessions/" + sid

	rec, out := c.do(http.MethodPatch, base, "application/json", []byte(`{"name":"Monday"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Monday", out["fields"].(map[string]any)["name"])

	rec, out = c.do(http.MethodPost, base+"/validate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, out["ok"])
	require.Equal(t, map[string]any{"code": true, "name": false}, out["errors"])
	require.Contains(t, out["messages"].(map[string]any)["code"], "Code")

	rec, out = c.do(http.MethodPost, base+"/submit", "application/json", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "HRM_VALIDATION_FAILED", out["code"])
	require.Empty(t, backend.submitted)

	rec, out = c.do(http.MethodPost, base+"/submit", "application/json", []byte(`{"values":{"code":"RD-01"}}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "create", out["mode"])
	require.Len(t, backend.submitted, 1)
	require.Equal(t, "RD-01", backend.submitted[0].Values["code"])

	rec, out = c.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "HRM_SESSION_NOT_FOUND", out["code"])
}

func TestFormSessions_SubmitConflictKeepsSession(t *testing.T) {
	backend := &fakeBackend{submitErr: &sedarapi.APIError{
		Status: http.StatusUnprocessableEntity,
		Errors: map[string][]string{"code": {"The code has already been taken."}},
	}}
	c := newClient(t, backend)
	sid := c.open("rest_day", `{"mode":"create"}`)
	base := "/hrm/forms/sessions/" + sid

	rec, out := c.do(http.MethodPost, base+"/submit", "application/json", []byte(`{"values":{"code":"RD-01","name":"Monday"}}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "SUBMIT_CODE_CONFLICT", out["code"])
	require.Equal(t, "The code already exists. Please use a different code.", out["message"])

	backend.submitErr = &sedarapi.APIError{Status: http.StatusInternalServerError}
	rec, out = c.do(http.MethodPost, base+"/submit", "application/json", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "SUBMIT_FAILED", out["code"])

	rec, out = c.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "RD-01", out["fields"].(map[string]any)["code"])
}

func TestFormSessions_EditModeOptionsAndMultipart(t *testing.T) {
	backend := &fakeBackend{
		entities: map[string]string{
			"movements/3": `{"data":{"employee":{"id":9,"first_name":"Ana","last_name":"Cruz"},"movement_type":{"id":1,"name":"Promotion"},
				"effective_date":"2026-01-05","from_details":{"position":{"id":4,"title":"Aide"}},
				"to_details":{"position":{"id":50,"title":"Archived clerk"}}}}`,
		},
		lists: map[string][]map[string]any{
			"positions": {{"id": 4, "title": "Aide"}, {"id": 5, "title": "Clerk"}},
		},
	}
	c := newClient(t, backend)
	sid := c.open("movement", `{"mode":"edit","entity_id":"3"}`)
	base := "/hrm/forms/sessions/" + sid

	rec, out := c.do(http.MethodGet, base+"/options/to_position", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := out["items"].([]any)
	require.Len(t, items, 3)
	require.Equal(t, "50", items[0].(map[string]any)["id"])

	rec, out = c.do(http.MethodGet, base+"/options/to_position?search=clerk", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out["items"], 2)

	rec, out = c.do(http.MethodGet, base+"/changes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	change := out["items"].([]any)[0].(map[string]any)
	require.Equal(t, "position", change["field"])
	require.Equal(t, "Aide", change["from"])
	require.Equal(t, "Archived clerk", change["to"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("remarks", "approved by HR"))
	part, err := mw.CreateFormFile("attachment", "memo.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 memo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, out = c.do(http.MethodPost, base+"/submit", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "edit", out["mode"])
	require.Len(t, backend.submitted, 1)
	payload := backend.submitted[0]
	require.True(t, payload.NeedsMultipart())
	require.Equal(t, "memo.pdf", payload.Files["attachment"].Name)
	require.Equal(t, "approved by HR", payload.Values["remarks"])
	require.Equal(t, "50", payload.Values["to_position_id"])
	require.Equal(t, http.MethodPatch, payload.Values[formstate.MethodOverrideKey])
}

func TestFormSessions_ViewIsReadOnly(t *testing.T) {
	backend := &fakeBackend{entities: map[string]string{"positions/5": `{"id":5,"code":"P-1","title":"Clerk"}`}}
	c := newClient(t, backend)
	sid := c.open("position", `{"mode":"view","entity_id":"5"}`)
	base := "/hrm/forms/sessions/" + sid

	rec, out := c.do(http.MethodPatch, base, "application/json", []byte(`{"code":"P-2"}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "HRM_READ_ONLY", out["code"])

	rec, out = c.do(http.MethodPost, base+"/submit", "application/json", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "HRM_READ_ONLY", out["code"])

	rec, out = c.do(http.MethodPost, base+"/refresh?reset=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, out["projected"])
}

func TestFormSessions_PatchDocumentsAndOwnership(t *testing.T) {
	c := newClient(t, &fakeBackend{})
	sid := c.open("rest_day", `{"mode":"create"}`)
	base := "/hrm/forms/sessions/" + sid

	rec, out := c.do(http.MethodPatch, base, "application/json-patch+json", []byte(`[{"op":"replace","path":"/code","value":"RD-7"}]`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "RD-7", out["fields"].(map[string]any)["code"])

	rec, out = c.do(http.MethodPatch, base, "application/merge-patch+json", []byte(`{"salary":10}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "HRM_INVALID_FIELD", out["code"])

	rec, out = c.do(http.MethodPatch, base, "application/json-patch+json", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "HRM_BAD_PATCH", out["code"])

	c.subject = "u2"
	rec, out = c.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "HRM_FORBIDDEN", out["code"])

	c.subject = "u1"
	rec, _ = c.do(http.MethodDelete, base, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = c.do(http.MethodGet, "/hrm/forms/sessions/not-a-uuid", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}
