package intl

import (
	"golang.org/x/text/language"
)

type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

var allSupportedLanguages = []SupportedLanguage{
	{Code: "en", VerboseName: "English", Tag: language.English},
	{Code: "zh", VerboseName: "中文", Tag: language.Chinese},
}

// GetSupportedLanguages filters the built-in languages by code.
// An empty whitelist returns all of them.
func GetSupportedLanguages(whitelist []string) []SupportedLanguage {
	if len(whitelist) == 0 {
		return allSupportedLanguages
	}
	allowed := make(map[string]bool, len(whitelist))
	for _, code := range whitelist {
		allowed[code] = true
	}
	filtered := make([]SupportedLanguage, 0, len(whitelist))
	for _, lang := range allSupportedLanguages {
		if allowed[lang.Code] {
			filtered = append(filtered, lang)
		}
	}
	return filtered
}

// Match picks the best supported tag for the candidates (typically parsed
// from Accept-Language), falling back to def.
func Match(def language.Tag, supported []SupportedLanguage, candidates ...language.Tag) language.Tag {
	if len(supported) == 0 {
		return def
	}
	if len(candidates) == 0 {
		candidates = []language.Tag{def}
	}
	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = s.Tag
	}
	_, idx, _ := language.NewMatcher(tags).Match(candidates...)
	return tags[idx]
}
