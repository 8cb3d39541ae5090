package formstate

import (
	"strings"

	"github.com/go-faster/errors"
)

// Mode is the operating state of a form session.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

var (
	ErrInvalidMode      = errors.New("invalid form mode")
	ErrEntityRequired   = errors.New("entity id is required in edit and view modes")
	ErrEntityNotAllowed = errors.New("entity id is not allowed in create mode")
)

// ParseMode accepts only create, edit and view (case-insensitive, trimmed).
func ParseMode(v string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(v)))
	if !m.Valid() {
		return "", errors.Wrapf(ErrInvalidMode, "%q", v)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeCreate, ModeEdit, ModeView:
		return true
	default:
		return false
	}
}

// RequiresRecord reports whether the mode operates on an existing entity.
func (m Mode) RequiresRecord() bool {
	return m == ModeEdit || m == ModeView
}

// Editable reports whether user input may change field values.
func (m Mode) Editable() bool {
	return m == ModeCreate || m == ModeEdit
}

func (m Mode) String() string {
	return string(m)
}

// ValidateTarget checks the mode/entity pairing: edit and view need an entity,
// create forbids one.
func ValidateTarget(mode Mode, entityID string) error {
	if !mode.Valid() {
		return errors.Wrapf(ErrInvalidMode, "%q", string(mode))
	}
	entityID = strings.TrimSpace(entityID)
	if mode.RequiresRecord() && entityID == "" {
		return ErrEntityRequired
	}
	if mode == ModeCreate && entityID != "" {
		return ErrEntityNotAllowed
	}
	return nil
}
