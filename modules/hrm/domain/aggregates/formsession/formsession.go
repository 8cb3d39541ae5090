package formsession

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/sedar/pkg/formstate"
)

var (
	ErrSessionNotFound = errors.New("form session not found")
	ErrNotEditable     = errors.New("form session is read-only")
	ErrForbidden       = errors.New("form session belongs to another user")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Session is one open entity form. It is a value: every change returns a copy.
type Session struct {
	id        uuid.UUID
	kind      string
	mode      formstate.Mode
	entityID  string
	owner     string
	guard     formstate.Guard
	record    formstate.EntityRecord
	fields    formstate.FieldSet
	createdAt time.Time
	updatedAt time.Time
}

// New starts a session with a guard for (entityID, mode) that has not been
// applied yet.
func New(kind string, mode formstate.Mode, entityID, owner string) Session {
	now := time.Now()
	return Session{
		id:        uuid.New(),
		kind:      kind,
		mode:      mode,
		entityID:  entityID,
		owner:     owner,
		guard:     formstate.ResolveGuard(entityID, mode, formstate.Guard{}),
		fields:    formstate.FieldSet{},
		createdAt: now,
		updatedAt: now,
	}
}

func Hydrate(
	id uuid.UUID,
	kind string,
	mode formstate.Mode,
	entityID string,
	owner string,
	guard formstate.Guard,
	record formstate.EntityRecord,
	fields formstate.FieldSet,
	createdAt time.Time,
	updatedAt time.Time,
) Session {
	if fields == nil {
		fields = formstate.FieldSet{}
	}
	return Session{
		id:        id,
		kind:      kind,
		mode:      mode,
		entityID:  entityID,
		owner:     owner,
		guard:     guard,
		record:    record,
		fields:    fields,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (s Session) ID() uuid.UUID                  { return s.id }
func (s Session) Kind() string                   { return s.kind }
func (s Session) Mode() formstate.Mode           { return s.mode }
func (s Session) EntityID() string               { return s.entityID }
func (s Session) Owner() string                  { return s.owner }
func (s Session) Guard() formstate.Guard         { return s.guard }
func (s Session) Record() formstate.EntityRecord { return s.record }
func (s Session) Fields() formstate.FieldSet     { return s.fields.Clone() }
func (s Session) CreatedAt() time.Time           { return s.createdAt }
func (s Session) UpdatedAt() time.Time           { return s.updatedAt }
func (s Session) IsZero() bool                   { return s.id == uuid.Nil }

// Editable reports whether user edits and submit are allowed.
func (s Session) Editable() bool {
	return s.mode.Editable()
}

// OwnedBy reports whether subject may use the session. Sessions opened
// without an authenticated subject are open to anyone holding the id.
func (s Session) OwnedBy(subject string) bool {
	return s.owner == "" || s.owner == subject
}

// WithRecord stores a freshly fetched record. The guard is kept: the record
// may change without the projection being re-applied.
func (s Session) WithRecord(record formstate.EntityRecord) Session {
	s.record = record
	s.updatedAt = time.Now()
	return s
}

// Initialize writes projected values when the guard for the session's
// (entity, mode) pair has not been applied, then marks it applied. The
// second return value reports whether fields were written.
func (s Session) Initialize(project func() formstate.FieldSet) (Session, bool) {
	s.guard = formstate.ResolveGuard(s.entityID, s.mode, s.guard)
	if !s.guard.NeedsProjection() {
		return s, false
	}
	s.fields = project()
	s.guard = formstate.MarkApplied(s.guard)
	s.updatedAt = time.Now()
	return s, true
}

// Reset drops the applied guard so the next Initialize projects again,
// discarding unsaved edits.
func (s Session) Reset() Session {
	s.guard = formstate.Guard{}
	s.updatedAt = time.Now()
	return s
}

// WithFields replaces the field set after user edits.
func (s Session) WithFields(fields formstate.FieldSet) (Session, error) {
	if !s.Editable() {
		return s, ErrNotEditable
	}
	s.fields = fields.Clone()
	s.updatedAt = time.Now()
	return s, nil
}
