package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/infrastructure/persistence/models"
	"github.com/iota-uz/sedar/pkg/kvstore"
)

// FormSessionRepository keeps sessions in a TTL store. Every save extends
// the session's lifetime by ttl.
type FormSessionRepository struct {
	store   kvstore.Store
	schemas SchemaResolver
	ttl     time.Duration
	prefix  string
}

func NewFormSessionRepository(store kvstore.Store, schemas SchemaResolver, ttl time.Duration) *FormSessionRepository {
	return &FormSessionRepository{
		store:   store,
		schemas: schemas,
		ttl:     ttl,
		prefix:  "hrm:form_sessions:v1:",
	}
}

func (r *FormSessionRepository) key(id uuid.UUID) string {
	return r.prefix + id.String()
}

func (r *FormSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (formsession.Session, error) {
	b, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return formsession.Session{}, formsession.ErrSessionNotFound
		}
		return formsession.Session{}, err
	}
	var model models.FormSession
	if err := json.Unmarshal(b, &model); err != nil {
		return formsession.Session{}, errors.Wrap(err, "decode form session")
	}
	return ToDomainFormSession(model, r.schemas)
}

func (r *FormSessionRepository) Save(ctx context.Context, s formsession.Session) error {
	model, err := ToDBFormSession(s)
	if err != nil {
		return err
	}
	b, err := json.Marshal(model)
	if err != nil {
		return errors.Wrap(err, "encode form session")
	}
	return r.store.Set(ctx, r.key(s.ID()), b, r.ttl)
}

func (r *FormSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, r.key(id))
}
