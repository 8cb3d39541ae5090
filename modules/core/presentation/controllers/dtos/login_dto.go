package dtos

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/sedar/pkg/constants"
	"github.com/iota-uz/sedar/pkg/intl"
	"github.com/iota-uz/sedar/pkg/serrors"
)

// LoginDTO carries the backend bearer token a client wants to act under.
type LoginDTO struct {
	Token string `json:"token" form:"token" validate:"required"`
}

func (d *LoginDTO) Normalize() {
	d.Token = strings.TrimSpace(d.Token)
	if len(d.Token) > 7 && strings.EqualFold(d.Token[:7], "bearer ") {
		d.Token = strings.TrimSpace(d.Token[7:])
	}
}

func (d *LoginDTO) Ok(ctx context.Context) (map[string]string, bool) {
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
		return fmt.Sprintf("Auth.Fields.%s", field)
	}
	return serrors.LocalizeValidationErrors(
		serrors.ProcessValidatorErrors(errs.(validator.ValidationErrors), fieldLocaleKey),
		l,
	), false
}

// SessionResponse describes the auth context created on login.
type SessionResponse struct {
	SessionID   string   `json:"session_id"`
	Subject     string   `json:"subject"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Locale      string   `json:"locale,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}
