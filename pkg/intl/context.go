package intl

import (
	"context"
	"errors"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/iota-uz/sedar/pkg/constants"
)

var (
	ErrNoLocalizer = errors.New("localizer not found")
)

func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, constants.LocalizerKey, l)
}

// UseLocalizer returns the localizer from the context.
// If the localizer is not found, the second return value will be false.
func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	l, ok := ctx.Value(constants.LocalizerKey).(*i18n.Localizer)
	if !ok || l == nil {
		return nil, false
	}
	return l, true
}

func WithLocale(ctx context.Context, locale language.Tag) context.Context {
	return context.WithValue(ctx, constants.LocaleKey, locale)
}

// UseLocale returns the request locale, English when none was set.
func UseLocale(ctx context.Context) language.Tag {
	tag, ok := ctx.Value(constants.LocaleKey).(language.Tag)
	if !ok {
		return language.English
	}
	return tag
}

// MustT localizes msgID with the context localizer and panics without one.
func MustT(ctx context.Context, msgID string) string {
	l, ok := UseLocalizer(ctx)
	if !ok {
		panic(ErrNoLocalizer)
	}
	return l.MustLocalize(&i18n.LocalizeConfig{MessageID: msgID})
}

// T localizes msgID with template data, returning fallback when the key or
// the localizer is missing.
func T(ctx context.Context, msgID, fallback string, data map[string]string) string {
	l, ok := UseLocalizer(ctx)
	if !ok {
		return fallback
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}
