package persistence

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/sedar/modules/hrm/domain/aggregates/formsession"
	"github.com/iota-uz/sedar/modules/hrm/infrastructure/persistence/models"
	"github.com/iota-uz/sedar/pkg/formstate"
)

// SchemaResolver returns the field schema of a form kind; stored field sets
// are decoded against it.
type SchemaResolver func(kind string) (*formstate.Schema, error)

func ToDBFormSession(s formsession.Session) (models.FormSession, error) {
	m := models.FormSession{
		ID:       s.ID().String(),
		Kind:     s.Kind(),
		Mode:     s.Mode().String(),
		EntityID: s.EntityID(),
		Owner:    s.Owner(),
		Guard: models.Guard{
			EntityID: s.Guard().Key.EntityID,
			Mode:     s.Guard().Key.Mode.String(),
			Applied:  s.Guard().Applied,
		},
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
	if rec := s.Record(); rec != nil {
		b, err := json.Marshal(rec)
		if err != nil {
			return models.FormSession{}, errors.Wrap(err, "marshal record")
		}
		m.Record = b
	}
	fields := s.Fields()
	m.Fields = make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return models.FormSession{}, errors.Wrapf(err, "marshal field %s", k)
		}
		m.Fields[k] = b
	}
	return m, nil
}

func ToDomainFormSession(m models.FormSession, schemas SchemaResolver) (formsession.Session, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return formsession.Session{}, errors.Wrap(err, "session id")
	}
	mode, err := formstate.ParseMode(m.Mode)
	if err != nil {
		return formsession.Session{}, err
	}
	schema, err := schemas(m.Kind)
	if err != nil {
		return formsession.Session{}, err
	}
	var record formstate.EntityRecord
	if len(m.Record) > 0 {
		dec := json.NewDecoder(bytes.NewReader(m.Record))
		dec.UseNumber()
		if err := dec.Decode(&record); err != nil {
			return formsession.Session{}, errors.Wrap(err, "decode record")
		}
	}
	fields, err := formstate.DecodeFieldSet(schema, m.Fields)
	if err != nil {
		return formsession.Session{}, err
	}
	guard := formstate.Guard{
		Key:     formstate.GuardKey{EntityID: m.Guard.EntityID, Mode: formstate.Mode(m.Guard.Mode)},
		Applied: m.Guard.Applied,
	}
	return formsession.Hydrate(
		id,
		m.Kind,
		mode,
		m.EntityID,
		m.Owner,
		guard,
		record,
		fields,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
