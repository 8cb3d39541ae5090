package serrors

import (
	"fmt"

	"github.com/iota-uz/go-i18n/v2/i18n"
)

// BaseError carries a stable machine code, a fallback message and an optional
// locale key used to render the message for the user.
type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// Is matches errors by code so wrapped copies compare equal to the sentinel.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	cp := *e
	cp.TemplateData = data
	return &cp
}

// Localize renders the error through l, falling back to Message when the key is
// missing from the bundle.
func (e *BaseError) Localize(l *i18n.Localizer) string {
	if e.LocaleKey == "" || l == nil {
		return e.Message
	}
	data := make(map[string]string, len(e.TemplateData))
	for k, v := range e.TemplateData {
		data[k] = v
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    e.LocaleKey,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return e.Message
	}
	return msg
}

func NewFieldRequiredError(field, fieldLocaleKey string) *BaseError {
	return NewError(
		"FIELD_REQUIRED",
		fmt.Sprintf("%s is required", field),
		"ValidationErrors.required",
	).WithTemplateData(map[string]string{
		"Field":          field,
		"FieldLocaleKey": fieldLocaleKey,
	})
}
