package formsession

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/sedar/pkg/composables"
	"github.com/iota-uz/sedar/pkg/formstate"
)

// SubmittedEvent is published after the backend accepted a create or update.
type SubmittedEvent struct {
	SessionID uuid.UUID
	Kind      string
	Resource  string
	Mode      formstate.Mode
	EntityID  string
	Subject   string
	Response  []byte
	At        time.Time
}

// ClosedEvent is published when a session is discarded without submitting.
type ClosedEvent struct {
	SessionID uuid.UUID
	Kind      string
	Subject   string
	At        time.Time
}

func subject(ctx context.Context) string {
	if auth, err := composables.UseAuth(ctx); err == nil {
		return auth.Subject
	}
	return ""
}

func NewSubmittedEvent(ctx context.Context, s Session, resource string, response []byte) *SubmittedEvent {
	return &SubmittedEvent{
		SessionID: s.ID(),
		Kind:      s.Kind(),
		Resource:  resource,
		Mode:      s.Mode(),
		EntityID:  s.EntityID(),
		Subject:   subject(ctx),
		Response:  response,
		At:        time.Now(),
	}
}

func NewClosedEvent(ctx context.Context, s Session) *ClosedEvent {
	return &ClosedEvent{
		SessionID: s.ID(),
		Kind:      s.Kind(),
		Subject:   subject(ctx),
		At:        time.Now(),
	}
}
