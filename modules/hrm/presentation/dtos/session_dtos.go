package dtos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/sedar/pkg/constants"
	"github.com/iota-uz/sedar/pkg/formstate"
	"github.com/iota-uz/sedar/pkg/intl"
	"github.com/iota-uz/sedar/pkg/serrors"
)

// OpenSessionDTO starts a form session. EntityID is required in edit and
// view mode and forbidden in create mode.
type OpenSessionDTO struct {
	Mode     string `json:"mode" form:"mode" validate:"required,oneof=create edit view"`
	EntityID string `json:"entity_id" form:"entity_id" validate:"required_unless=Mode create,excluded_if=Mode create"`
}

func (d *OpenSessionDTO) Normalize() {
	d.Mode = strings.ToLower(strings.TrimSpace(d.Mode))
	d.EntityID = strings.TrimSpace(d.EntityID)
}

func (d *OpenSessionDTO) Ok(ctx context.Context) (map[string]string, bool) {
	l, ok := intl.UseLocalizer(ctx)
	if !ok {
		panic(intl.ErrNoLocalizer)
	}
	d.Normalize()

	errs := constants.Validate.Struct(d)
	if errs == nil {
		return map[string]string{}, true
	}
	fieldLocaleKey := func(field string) string {
		return fmt.Sprintf("HRM.Session.Fields.%s", field)
	}
	return serrors.LocalizeValidationErrors(
		serrors.ProcessValidatorErrors(errs.(validator.ValidationErrors), fieldLocaleKey),
		l,
	), false
}

// ModeValue is the parsed mode; call after Ok.
func (d *OpenSessionDTO) ModeValue() formstate.Mode {
	return formstate.Mode(d.Mode)
}

// SubmitDTO optionally carries last-moment field edits applied before submit.
type SubmitDTO struct {
	Values map[string]json.RawMessage `json:"values"`
}
