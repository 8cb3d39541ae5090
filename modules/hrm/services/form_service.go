package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/eventbus"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/metrics"
	"github.com/iota-uz/sedar/pkg/sedarapi"
)

// Patch document media types accepted by Patch besides plain JSON objects.
const (
	JSONPatchContentType  = "application/json-patch+json"
	MergePatchContentType = "application/merge-patch+json"
)

// FormService runs form sessions: open, refresh, edit, look up options,
// submit and close.
type FormService struct {
	repo      formsession.Repository
	registry  *forms.Registry
	backend   Backend
	lookups   *LookupService
	publisher eventbus.EventBus
}

func NewFormService(
	repo formsession.Repository,
	registry *forms.Registry,
	backend Backend,
	lookups *LookupService,
	publisher eventbus.EventBus,
) *FormService {
	return &FormService{
		repo:      repo,
		registry:  registry,
		backend:   backend,
		lookups:   lookups,
		publisher: publisher,
	}
}

// SubmitResult is the backend's answer to an accepted submission.
type SubmitResult struct {
	Kind     forms.Kind
	Mode     formstate.Mode
	EntityID string
	Response json.RawMessage
}

func subjectOf(ctx context.Context) string {
	if auth, err := composables.UseAuth(ctx); err == nil {
		return auth.Subject
	}
	return ""
}

// Registry exposes the forms the service knows about.
func (s *FormService) Registry() *forms.Registry {
	return s.registry
}

// Open starts a session. Edit and view fetch and normalize the record, then
// project it once under a fresh guard.
func (s *FormService) Open(ctx context.Context, kind forms.Kind, entityID string, mode formstate.Mode) (formsession.Session, error) {
	form, err := s.registry.Get(kind)
	if err != nil {
		return formsession.Session{}, err
	}
	entityID = strings.TrimSpace(entityID)
	if err := formstate.ValidateTarget(mode, entityID); err != nil {
		return formsession.Session{}, err
	}
	sess := formsession.New(string(kind), mode, entityID, subjectOf(ctx))

	var record formstate.EntityRecord
	lookups := formstate.Lookups{}
	if mode.RequiresRecord() {
		record, err = s.fetch(ctx, form, entityID)
		if err != nil {
			return formsession.Session{}, err
		}
		lookups = s.lookups.LoadAll(ctx, form)
	}
	sess, _ = sess.WithRecord(record).Initialize(func() formstate.FieldSet {
		return form.Project(mode, record, lookups)
	})
	if err := s.repo.Save(ctx, sess); err != nil {
		return formsession.Session{}, err
	}
	metrics.FormSessions.WithLabelValues(string(kind), mode.String()).Inc()
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"session": sess.ID().String(),
		"kind":    kind,
		"mode":    mode,
		"entity":  entityID,
	}).Info("form session opened")
	return sess, nil
}

func (s *FormService) fetch(ctx context.Context, form *forms.Form, entityID string) (formstate.EntityRecord, error) {
	raw, err := s.backend.GetEntity(ctx, form.Resource(), entityID)
	if err != nil {
		return nil, err
	}
	return form.Normalizer.Normalize(raw)
}

// Get loads a session the caller may use, together with its form.
func (s *FormService) Get(ctx context.Context, id uuid.UUID) (formsession.Session, *forms.Form, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return formsession.Session{}, nil, err
	}
	if !sess.OwnedBy(subjectOf(ctx)) {
		return formsession.Session{}, nil, formsession.ErrForbidden
	}
	form, err := s.registry.Get(forms.Kind(sess.Kind()))
	if err != nil {
		return formsession.Session{}, nil, err
	}
	return sess, form, nil
}

// Refresh re-fetches the record. Fields are re-projected only while the guard
// is not applied, so edits in progress survive; reset forces a new projection.
// The bool result reports whether fields were re-projected.
func (s *FormService) Refresh(ctx context.Context, id uuid.UUID, reset bool) (formsession.Session, bool, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return formsession.Session{}, false, err
	}
	record := sess.Record()
	lookups := formstate.Lookups{}
	if sess.Mode().RequiresRecord() {
		record, err = s.fetch(ctx, form, sess.EntityID())
		if err != nil {
			return formsession.Session{}, false, err
		}
		sess = sess.WithRecord(record)
	}
	if reset {
		sess = sess.Reset()
		if sess.Mode().RequiresRecord() {
			lookups = s.lookups.LoadAll(ctx, form)
		}
	}
	sess, applied := sess.Initialize(func() formstate.FieldSet {
		return form.Project(sess.Mode(), record, lookups)
	})
	if err := s.repo.Save(ctx, sess); err != nil {
		return formsession.Session{}, false, err
	}
	return sess, applied, nil
}

// Options returns the choices for an option field, reconciled with the value
// already recorded so it stays selectable. search fuzzy-filters the result.
func (s *FormService) Options(ctx context.Context, id uuid.UUID, field, search string) ([]formstate.Option, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, ok := form.Schema.Field(field)
	if !ok {
		return nil, errors.Wrapf(formstate.ErrUnknownField, "%q", field)
	}
	src, ok := form.Lookup(f.Lookup)
	if f.Lookup == "" || !ok {
		return nil, errors.Wrapf(ErrNoLookup, "%q", field)
	}
	fields := sess.Fields()
	mode := sess.Mode()

	var out []formstate.Option
	switch f.Kind {
	case formstate.KindOption:
		embedded := fields.Option(field)
		if mode == formstate.ModeView && embedded != nil {
			out = formstate.Merge(formstate.Pending(), embedded, mode)
			break
		}
		out = formstate.Merge(s.lookups.Source(ctx, src), embedded, mode)
	case formstate.KindOptionList:
		out = s.mergeInitial(ctx, src, mode, fields.Options(field), false)
	case formstate.KindStringList:
		out = s.mergeInitial(ctx, src, mode, labelsAsOptions(fields.Strings(field)), true)
	default:
		return nil, errors.Wrapf(ErrNoLookup, "%q", field)
	}
	return formstate.Filter(out, search), nil
}

// mergeInitial folds the recorded options into the loaded list. Option lists
// carry real ids and merge by id; string lists hold labels and merge by label.
func (s *FormService) mergeInitial(ctx context.Context, src forms.LookupSource, mode formstate.Mode, initial []formstate.Option, byLabel bool) []formstate.Option {
	if mode == formstate.ModeView && len(initial) > 0 {
		return initial
	}
	loaded := s.lookups.Source(ctx, src)
	if !loaded.Ready() {
		if mode == formstate.ModeCreate {
			return []formstate.Option{}
		}
		return initial
	}
	if mode == formstate.ModeCreate {
		return loaded.Items
	}
	if !byLabel {
		return formstate.MergeLists(loaded.Items, initial)
	}
	missing := make([]formstate.Option, 0, len(initial))
	for _, o := range initial {
		if _, found := formstate.FindByLabel(loaded.Items, o.Label); found {
			continue
		}
		missing = append(missing, o)
	}
	return formstate.MergeLists(loaded.Items, missing)
}

func labelsAsOptions(labels []string) []formstate.Option {
	out := make([]formstate.Option, 0, len(labels))
	for _, l := range labels {
		out = append(out, formstate.Option{ID: l, Label: l})
	}
	return out
}

// Edit applies user input. Unknown or read-only keys reject the whole edit.
func (s *FormService) Edit(ctx context.Context, id uuid.UUID, edits map[string]json.RawMessage) (formsession.Session, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return formsession.Session{}, err
	}
	return s.edit(ctx, sess, form, edits)
}

func (s *FormService) edit(ctx context.Context, sess formsession.Session, form *forms.Form, edits map[string]json.RawMessage) (formsession.Session, error) {
	if !sess.Editable() {
		return formsession.Session{}, formsession.ErrNotEditable
	}
	fields, err := formstate.ApplyEdits(form.Schema, sess.Fields(), edits)
	if err != nil {
		return formsession.Session{}, err
	}
	sess, err = sess.WithFields(form.Derive(sess.Record(), fields))
	if err != nil {
		return formsession.Session{}, err
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return formsession.Session{}, err
	}
	return sess, nil
}

// Patch applies a JSON Patch or JSON Merge Patch document to the editable
// fields. Any other content type is read as a plain {field: value} object.
func (s *FormService) Patch(ctx context.Context, id uuid.UUID, contentType string, body []byte) (formsession.Session, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return formsession.Session{}, err
	}
	if !sess.Editable() {
		return formsession.Session{}, formsession.ErrNotEditable
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct != JSONPatchContentType && ct != MergePatchContentType {
		var edits map[string]json.RawMessage
		if err := json.Unmarshal(body, &edits); err != nil {
			return formsession.Session{}, errors.Wrap(ErrBadPatch, err.Error())
		}
		return s.edit(ctx, sess, form, edits)
	}

	before, err := editableDocument(form, sess.Fields())
	if err != nil {
		return formsession.Session{}, err
	}
	doc, err := json.Marshal(before)
	if err != nil {
		return formsession.Session{}, errors.Wrap(err, "encode fields")
	}
	var after []byte
	if ct == JSONPatchContentType {
		patch, err := jsonpatch.DecodePatch(body)
		if err != nil {
			return formsession.Session{}, errors.Wrap(ErrBadPatch, err.Error())
		}
		after, err = patch.Apply(doc)
		if err != nil {
			return formsession.Session{}, errors.Wrap(ErrBadPatch, err.Error())
		}
	} else {
		after, err = jsonpatch.MergePatch(doc, body)
		if err != nil {
			return formsession.Session{}, errors.Wrap(ErrBadPatch, err.Error())
		}
	}
	var patched map[string]json.RawMessage
	if err := json.Unmarshal(after, &patched); err != nil {
		return formsession.Session{}, errors.Wrap(ErrBadPatch, err.Error())
	}
	return s.edit(ctx, sess, form, changedKeys(before, patched))
}

func editableDocument(form *forms.Form, fields formstate.FieldSet) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range form.Schema.Fields {
		if !f.Editable() {
			continue
		}
		b, err := json.Marshal(fields[f.Key])
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s", f.Key)
		}
		out[f.Key] = b
	}
	return out, nil
}

// changedKeys lists keys whose value differs, removed keys become null.
func changedKeys(before, after map[string]json.RawMessage) map[string]json.RawMessage {
	edits := map[string]json.RawMessage{}
	for k, v := range after {
		old, ok := before[k]
		if ok && jsonEqual(old, v) {
			continue
		}
		edits[k] = v
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			edits[k] = json.RawMessage("null")
		}
	}
	return edits
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Validate runs the pre-submit checks without submitting.
func (s *FormService) Validate(ctx context.Context, id uuid.UUID) (formstate.Result, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return formstate.Result{}, err
	}
	return form.Validate(sess.Fields(), sess.Mode()), nil
}

// Changes summarizes a movement request for the approval dialog.
func (s *FormService) Changes(ctx context.Context, id uuid.UUID) ([]forms.Change, error) {
	sess, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if forms.Kind(sess.Kind()) != forms.KindMovement {
		return []forms.Change{}, nil
	}
	return forms.ChangeSummary(sess.Fields())
}

// Submit validates, builds and sends the payload. A failed validation makes
// no backend call; a rejected submission keeps the session for another try.
// files attaches new uploads to file fields.
func (s *FormService) Submit(ctx context.Context, id uuid.UUID, files map[string]*formstate.FileRef) (SubmitResult, error) {
	sess, form, err := s.Get(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	kind := forms.Kind(sess.Kind())
	if !sess.Editable() {
		return SubmitResult{}, formstate.ErrNotSubmittable
	}
	fields := sess.Fields()
	for key, ref := range files {
		f, ok := form.Schema.Field(key)
		if !ok || f.Kind != formstate.KindFile {
			return SubmitResult{}, errors.Wrapf(formstate.ErrUnknownField, "%q is not a file field", key)
		}
		fields[key] = ref
	}
	log := composables.UseLogger(ctx).WithField("session", sess.ID().String())

	res := form.Validate(fields, sess.Mode())
	if !res.OK {
		metrics.FormSubmits.WithLabelValues(string(kind), "invalid").Inc()
		return SubmitResult{}, &ValidationError{Result: res}
	}
	payload, err := form.Build(fields, sess.Mode(), s.auxLookups(ctx, form))
	if err != nil {
		return SubmitResult{}, err
	}
	resp, err := s.backend.Submit(ctx, form.Resource(), sess.EntityID(), sess.Mode(), payload)
	if err != nil {
		outcome, kindErr := "failed", ErrSubmitFailed
		if sedarapi.IsCodeConflict(err) {
			outcome, kindErr = "conflict", ErrCodeConflict
		}
		metrics.FormSubmits.WithLabelValues(string(kind), outcome).Inc()
		log.WithError(err).Warn("form submit rejected")
		return SubmitResult{}, &SubmitError{Kind: kindErr, Cause: err}
	}
	metrics.FormSubmits.WithLabelValues(string(kind), "ok").Inc()
	if err := s.repo.Delete(ctx, sess.ID()); err != nil {
		log.WithError(err).Warn("failed to discard submitted session")
	}
	s.publisher.Publish(formsession.NewSubmittedEvent(ctx, sess, form.Resource(), resp))
	log.Info("form submitted")
	return SubmitResult{
		Kind:     kind,
		Mode:     sess.Mode(),
		EntityID: sess.EntityID(),
		Response: json.RawMessage(resp),
	}, nil
}

// auxLookups loads only the lists needed to resolve label lists into ids.
func (s *FormService) auxLookups(ctx context.Context, form *forms.Form) formstate.Lookups {
	out := formstate.Lookups{}
	for _, f := range form.Schema.Fields {
		if f.Kind != formstate.KindStringList || f.Lookup == "" {
			continue
		}
		src, ok := form.Lookup(f.Lookup)
		if !ok {
			continue
		}
		opts, err := s.lookups.Load(ctx, src)
		if err != nil {
			composables.UseLogger(ctx).WithError(err).WithField("lookup", f.Lookup).Warn("lookup list unavailable")
			continue
		}
		out[f.Lookup] = opts
	}
	return out
}

// Close discards the session.
func (s *FormService) Close(ctx context.Context, id uuid.UUID) error {
	sess, _, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(formsession.NewClosedEvent(ctx, sess))
	return nil
}
