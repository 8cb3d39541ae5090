package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/eventbus"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/kvstore"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

type submission struct {
	Resource string
	ID       string
	Mode     formstate.Mode
	Payload  formstate.WirePayload
}

type fakeBackend struct {
	mu        sync.Mutex
	entities  map[string]string
	lists     map[string][]map[string]any
	listCalls map[string]int
	submitted []submission
	submitErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		entities:  map[string]string{},
		lists:     map[string][]map[string]any{},
		listCalls: map[string]int{},
	}
}

func (b *fakeBackend) GetEntity(_ context.Context, resource, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.entities[resource+"/"+id]
	if !ok {
		return nil, &sedarapi.APIError{Status: http.StatusNotFound}
	}
	return []byte(raw), nil
}

func (b *fakeBackend) ListOptions(_ context.Context, resource string, params sedarapi.ListParams) ([]map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !params.All {
		panic("lookups must be loaded unpaginated")
	}
	b.listCalls[resource]++
	return b.lists[resource], nil
}

func (b *fakeBackend) Submit(_ context.Context, resource, id string, mode formstate.Mode, payload formstate.WirePayload) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, submission{Resource: resource, ID: id, Mode: mode, Payload: payload})
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return []byte(`{"id":77}`), nil
}

func (b *fakeBackend) calls(resource string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls[resource]
}

type fixture struct {
	svc     *FormService
	lookups *LookupService
	backend *fakeBackend
	bus     eventbus.EventBus
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := quietLogger()
	registry, err := forms.NewRegistry(log)
	require.NoError(t, err)
	backend := newFakeBackend()
	backend.lists["job-levels"] = []map[string]any{{"id": 1, "name": "Junior"}, {"id": 2, "name": "Senior"}}
	backend.lists["positions"] = []map[string]any{{"id": 5, "title": "Clerk"}}
	backend.lists["rest-days"] = []map[string]any{{"id": 6, "name": "Saturday"}, {"id": 7, "name": "Sunday"}}

	bus := eventbus.NewEventPublisher(log)
	lookups := NewLookupService(backend, bus, time.Minute)
	repo := persistence.NewFormSessionRepository(kvstore.NewMemory(), func(kind string) (*formstate.Schema, error) {
		f, err := registry.Get(forms.Kind(kind))
		if err != nil {
			return nil, err
		}
		return f.Schema, nil
	}, time.Hour)
	return &fixture{
		svc:     NewFormService(repo, registry, backend, lookups, bus),
		lookups: lookups,
		backend: backend,
		bus:     bus,
	}
}

func testCtx(subject string) context.Context {
	ctx := composables.WithLogger(context.Background(), logrus.NewEntry(quietLogger()))
	if subject == "" {
		return ctx
	}
	return composables.WithAuth(ctx, &composables.AuthContext{Subject: subject, Token: "t-" + subject})
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestOpen_CreateUsesDefaults(t *testing.T) {
	fx := newFixture(t)
	sess, err := fx.svc.Open(testCtx("u1"), "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)
	require.True(t, sess.Guard().Applied)
	require.Equal(t, formstate.FieldSet{"code": "", "name": "", "status": "active"}, sess.Fields())
	require.Equal(t, "u1", sess.Owner())
}

func TestOpen_RejectsBadTargets(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Open(testCtx(""), forms.KindPosition, "", formstate.ModeEdit)
	require.ErrorIs(t, err, formstate.ErrEntityRequired)
	_, err = fx.svc.Open(testCtx(""), forms.KindPosition, "5", formstate.ModeCreate)
	require.ErrorIs(t, err, formstate.ErrEntityNotAllowed)
	_, err = fx.svc.Open(testCtx(""), "payroll", "", formstate.ModeCreate)
	require.ErrorIs(t, err, forms.ErrUnknownKind)
	_, err = fx.svc.Open(testCtx(""), forms.KindPosition, "404", formstate.ModeEdit)
	require.ErrorIs(t, err, sedarapi.ErrNotFound)
}

func TestOpen_EditProjectsRecord(t *testing.T) {
	fx := newFixture(t)
	fx.backend.entities["positions/5"] = `{"data":{"id":5,"submittable":{"code":"P-1","title":"Clerk","job_level":"Senior","job_rate":"1200"},"status":"active"}}`

	sess, err := fx.svc.Open(testCtx(""), forms.KindPosition, "5", formstate.ModeEdit)
	require.NoError(t, err)
	fields := sess.Fields()
	require.Equal(t, "P-1", fields.String("code"))
	require.Equal(t, "P-1 - Clerk", fields.String("display_name"))
	require.Equal(t, &formstate.Option{ID: "2", Label: "Senior"}, fields.Option("job_level"))
}

func TestRefresh_KeepsEditsUntilReset(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["positions/5"] = `{"id":5,"code":"P-1","title":"Clerk"}`
	sess, err := fx.svc.Open(ctx, forms.KindPosition, "5", formstate.ModeEdit)
	require.NoError(t, err)

	_, err = fx.svc.Edit(ctx, sess.ID(), map[string]json.RawMessage{"code": raw(`"P-9"`)})
	require.NoError(t, err)

	fx.backend.entities["positions/5"] = `{"id":5,"code":"P-2","title":"Clerk"}`
	refreshed, applied, err := fx.svc.Refresh(ctx, sess.ID(), false)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, "P-9", refreshed.Fields().String("code"))
	require.Equal(t, "P-2", refreshed.Record().String("code"))

	reset, applied, err := fx.svc.Refresh(ctx, sess.ID(), true)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "P-2", reset.Fields().String("code"))
}

func TestOptions_KeepsArchivedValueSelectable(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["positions/5"] = `{"id":5,"code":"P-1","title":"Clerk","job_level":"Legacy","job_level_id":9}`

	edit, err := fx.svc.Open(ctx, forms.KindPosition, "5", formstate.ModeEdit)
	require.NoError(t, err)
	opts, err := fx.svc.Options(ctx, edit.ID(), "job_level", "")
	require.NoError(t, err)
	require.Equal(t, []string{"9", "1", "2"}, formstate.IDs(opts))

	again, err := fx.svc.Options(ctx, edit.ID(), "job_level", "")
	require.NoError(t, err)
	require.Equal(t, formstate.IDs(opts), formstate.IDs(again))

	filtered, err := fx.svc.Options(ctx, edit.ID(), "job_level", "jun")
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, formstate.IDs(filtered))

	view, err := fx.svc.Open(ctx, forms.KindPosition, "5", formstate.ModeView)
	require.NoError(t, err)
	before := fx.backend.calls("job-levels")
	opts, err = fx.svc.Options(ctx, view.ID(), "job_level", "")
	require.NoError(t, err)
	require.Equal(t, []string{"9"}, formstate.IDs(opts))
	require.Equal(t, before, fx.backend.calls("job-levels"))

	_, err = fx.svc.Options(ctx, view.ID(), "code", "")
	require.ErrorIs(t, err, ErrNoLookup)
}

func TestMergeInitial_OptionListsByIDStringListsByLabel(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.lists["equipment"] = []map[string]any{{"id": 10, "name": "Laptop"}, {"id": 11, "name": "Phone"}}
	src := forms.LookupSource{Resource: "equipment", LabelKey: "name"}

	recorded := []formstate.Option{{ID: "9", Label: "Laptop"}, {ID: "11", Label: "Phone"}}
	out := fx.svc.mergeInitial(ctx, src, formstate.ModeEdit, recorded, false)
	require.Equal(t, []string{"9", "10", "11"}, formstate.IDs(out))

	labels := labelsAsOptions([]string{"Laptop", "Tablet"})
	out = fx.svc.mergeInitial(ctx, src, formstate.ModeEdit, labels, true)
	require.Equal(t, []string{"Tablet", "10", "11"}, formstate.IDs(out))
}

func TestEdit_Rules(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["positions/5"] = `{"id":5,"code":"P-1"}`
	view, err := fx.svc.Open(ctx, forms.KindPosition, "5", formstate.ModeView)
	require.NoError(t, err)
	_, err = fx.svc.Edit(ctx, view.ID(), map[string]json.RawMessage{"code": raw(`"X"`)})
	require.ErrorIs(t, err, formsession.ErrNotEditable)

	create, err := fx.svc.Open(ctx, forms.KindPosition, "", formstate.ModeCreate)
	require.NoError(t, err)
	_, err = fx.svc.Edit(ctx, create.ID(), map[string]json.RawMessage{"salary": raw(`1`)})
	require.ErrorIs(t, err, formstate.ErrUnknownField)
	_, err = fx.svc.Edit(ctx, create.ID(), map[string]json.RawMessage{"display_name": raw(`"x"`)})
	require.ErrorIs(t, err, formstate.ErrReadOnlyField)

	edited, err := fx.svc.Edit(ctx, create.ID(), map[string]json.RawMessage{"code": raw(`"P-3"`), "title": raw(`"Driver"`)})
	require.NoError(t, err)
	require.Equal(t, "P-3 - Driver", edited.Fields().String("display_name"))
}

func TestPatch_Documents(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	sess, err := fx.svc.Open(ctx, "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)

	sess, err = fx.svc.Patch(ctx, sess.ID(), JSONPatchContentType, []byte(`[{"op":"replace","path":"/code","value":"RD-01"}]`))
	require.NoError(t, err)
	require.Equal(t, "RD-01", sess.Fields().String("code"))

	sess, err = fx.svc.Patch(ctx, sess.ID(), MergePatchContentType+"; charset=utf-8", []byte(`{"name":"Monday"}`))
	require.NoError(t, err)
	require.Equal(t, "Monday", sess.Fields().String("name"))
	require.Equal(t, "RD-01", sess.Fields().String("code"))

	sess, err = fx.svc.Patch(ctx, sess.ID(), "application/json", []byte(`{"status":"inactive"}`))
	require.NoError(t, err)
	require.Equal(t, "inactive", sess.Fields().String("status"))

	_, err = fx.svc.Patch(ctx, sess.ID(), JSONPatchContentType, []byte(`[{"op":"add","path":"/salary","value":1}]`))
	require.ErrorIs(t, err, formstate.ErrUnknownField)

	_, err = fx.svc.Patch(ctx, sess.ID(), JSONPatchContentType, []byte(`{"not":"a patch"}`))
	require.ErrorIs(t, err, ErrBadPatch)
}

func TestSubmit_ValidationBlocksBackend(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	sess, err := fx.svc.Open(ctx, "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)
	_, err = fx.svc.Edit(ctx, sess.ID(), map[string]json.RawMessage{"name": raw(`"Monday"`)})
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, sess.ID(), nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, map[string]bool{"code": true, "name": false}, verr.Result.Errors)
	require.Empty(t, fx.backend.submitted)
}

func TestSubmit_ConflictKeepsSession(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.submitErr = &sedarapi.APIError{Status: http.StatusUnprocessableEntity, Errors: map[string][]string{"code": {"taken"}}}
	sess, err := fx.svc.Open(ctx, "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)
	_, err = fx.svc.Edit(ctx, sess.ID(), map[string]json.RawMessage{"code": raw(`"RD-01"`), "name": raw(`"Monday"`)})
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, sess.ID(), nil)
	require.ErrorIs(t, err, ErrCodeConflict)
	var apiErr *sedarapi.APIError
	require.ErrorAs(t, err, &apiErr)

	kept, _, err := fx.svc.Get(ctx, sess.ID())
	require.NoError(t, err)
	require.Equal(t, "RD-01", kept.Fields().String("code"))

	fx.backend.submitErr = &sedarapi.APIError{Status: http.StatusInternalServerError}
	_, err = fx.svc.Submit(ctx, sess.ID(), nil)
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.NotErrorIs(t, err, ErrCodeConflict)
}

func TestSubmit_SuccessDiscardsAndInvalidates(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("u1")
	var events []*formsession.SubmittedEvent
	fx.bus.Subscribe(func(ev *formsession.SubmittedEvent) { events = append(events, ev) })

	rest := forms.LookupSource{Resource: "rest-days", LabelKey: "name"}
	_, err := fx.lookups.Load(ctx, rest)
	require.NoError(t, err)
	_, err = fx.lookups.Load(ctx, rest)
	require.NoError(t, err)
	require.Equal(t, 1, fx.backend.calls("rest-days"))

	sess, err := fx.svc.Open(ctx, "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)
	_, err = fx.svc.Edit(ctx, sess.ID(), map[string]json.RawMessage{"code": raw(`"RD-01"`), "name": raw(`"Monday"`)})
	require.NoError(t, err)

	res, err := fx.svc.Submit(ctx, sess.ID(), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":77}`, string(res.Response))
	require.Len(t, fx.backend.submitted, 1)
	got := fx.backend.submitted[0]
	require.Equal(t, "rest-days", got.Resource)
	require.Equal(t, map[string]any{"code": "RD-01", "name": "Monday", "status": "active"}, got.Payload.Values)

	_, _, err = fx.svc.Get(ctx, sess.ID())
	require.ErrorIs(t, err, formsession.ErrSessionNotFound)
	require.Len(t, events, 1)
	require.Equal(t, "u1", events[0].Subject)

	_, err = fx.lookups.Load(ctx, rest)
	require.NoError(t, err)
	require.Equal(t, 2, fx.backend.calls("rest-days"))
}

func TestSubmit_EditAttachesFile(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["movements/3"] = `{"id":3,"employee":{"id":9,"first_name":"Ana","last_name":"Cruz"},"movement_type":{"id":1,"name":"Promotion"},
		"effective_date":"2026-01-05","to_details":{"position":{"id":5,"title":"Clerk"}},"attachment":"files/old.pdf"}`
	sess, err := fx.svc.Open(ctx, forms.KindMovement, "3", formstate.ModeEdit)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, sess.ID(), map[string]*formstate.FileRef{"remarks": {Name: "x.txt", Data: []byte("x")}})
	require.ErrorIs(t, err, formstate.ErrUnknownField)

	_, err = fx.svc.Submit(ctx, sess.ID(), map[string]*formstate.FileRef{"attachment": {Name: "new.pdf", Data: []byte("%PDF-1.4")}})
	require.NoError(t, err)
	got := fx.backend.submitted[0]
	require.Equal(t, "3", got.ID)
	require.Equal(t, formstate.ModeEdit, got.Mode)
	require.True(t, got.Payload.NeedsMultipart())
	require.NotContains(t, got.Payload.Values, "attachment")
	require.Equal(t, "PATCH", got.Payload.Values[formstate.MethodOverrideKey])
	require.Equal(t, "9", got.Payload.Values["employee_id"])
}

func TestSubmit_ViewNotSubmittable(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["positions/5"] = `{"id":5}`
	sess, err := fx.svc.Open(ctx, forms.KindPosition, "5", formstate.ModeView)
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, sess.ID(), nil)
	require.ErrorIs(t, err, formstate.ErrNotSubmittable)
}

func TestSessions_AreOwned(t *testing.T) {
	fx := newFixture(t)
	sess, err := fx.svc.Open(testCtx("u1"), "rest_day", "", formstate.ModeCreate)
	require.NoError(t, err)
	_, _, err = fx.svc.Get(testCtx("u2"), sess.ID())
	require.ErrorIs(t, err, formsession.ErrForbidden)
	require.ErrorIs(t, fx.svc.Close(testCtx("u2"), sess.ID()), formsession.ErrForbidden)

	require.NoError(t, fx.svc.Close(testCtx("u1"), sess.ID()))
	_, _, err = fx.svc.Get(testCtx("u1"), sess.ID())
	require.ErrorIs(t, err, formsession.ErrSessionNotFound)
	_, _, err = fx.svc.Get(testCtx("u1"), uuid.New())
	require.ErrorIs(t, err, formsession.ErrSessionNotFound)
}

func TestChanges_Movement(t *testing.T) {
	fx := newFixture(t)
	ctx := testCtx("")
	fx.backend.entities["movements/3"] = `{"id":3,"from_details":{"position":{"id":4,"title":"Aide"},"job_rate":100},
		"to_details":{"position":{"id":5,"title":"Clerk"},"job_rate":120}}`
	sess, err := fx.svc.Open(ctx, forms.KindMovement, "3", formstate.ModeView)
	require.NoError(t, err)
	changes, err := fx.svc.Changes(ctx, sess.ID())
	require.NoError(t, err)
	require.Equal(t, []forms.Change{
		{Field: "position", From: "Aide", To: "Clerk"},
		{Field: "job_rate", From: "100", To: "120"},
	}, changes)
}
