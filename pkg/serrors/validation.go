package serrors

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	zhtranslations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/iota-uz/go-i18n/v2/i18n"

	"github.com/iota-uz/sedar/pkg/constants"
)

// ValidationErrors maps a field key to its validation failure.
type ValidationErrors map[string]*BaseError

var universal = sync.OnceValue(func() *ut.UniversalTranslator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())
	if trans, ok := uni.GetTranslator("en"); ok {
		_ = entranslations.RegisterDefaultTranslations(constants.Validate, trans)
	}
	if trans, ok := uni.GetTranslator("zh"); ok {
		_ = zhtranslations.RegisterDefaultTranslations(constants.Validate, trans)
	}
	return uni
})

// Translator returns the validator translator for lang, English when unknown.
func Translator(lang string) ut.Translator {
	uni := universal()
	if trans, ok := uni.GetTranslator(strings.ToLower(lang)); ok {
		return trans
	}
	trans, _ := uni.GetTranslator("en")
	return trans
}

// TranslateTag renders a validation tag for a field that did not come from
// a validator.FieldError. Tags without a plain translation get a generic message.
func TranslateTag(lang, tag, field, param string) string {
	msg, err := Translator(lang).T(tag, field, param)
	if err != nil || msg == "" {
		return field + " is invalid"
	}
	return msg
}

// ProcessValidatorErrors converts validator failures into BaseErrors keyed by struct
// field name. fieldLocaleKey maps a struct field to its translated label key.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldLocaleKey func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	trans := Translator("en")
	for _, fe := range errs {
		field := fe.Field()
		out[field] = NewError(
			"VALIDATION_"+strings.ToUpper(fe.Tag()),
			fe.Translate(trans),
			"ValidationErrors."+fe.Tag(),
		).WithTemplateData(map[string]string{
			"Field":          field,
			"FieldLocaleKey": fieldLocaleKey(field),
			"Param":          fe.Param(),
		})
	}
	return out
}

// LocalizeValidationErrors renders every error, replacing the field name with
// its localized label when one is known.
func LocalizeValidationErrors(errs ValidationErrors, l *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(errs))
	for field, e := range errs {
		data := make(map[string]string, len(e.TemplateData))
		for k, v := range e.TemplateData {
			data[k] = v
		}
		if key := data["FieldLocaleKey"]; key != "" && l != nil {
			if label, err := l.Localize(&i18n.LocalizeConfig{MessageID: key}); err == nil && label != "" {
				data["Field"] = label
			}
		}
		out[field] = e.WithTemplateData(data).Localize(l)
	}
	return out
}
