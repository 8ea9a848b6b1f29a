package chat

import (
	"strings"
)

// Language is an ISO 639-1 code from the supported set. The zero value means
// the user has not picked a language yet.
type Language string

const (
	LanguageUnset    Language = ""
	LanguageHindi    Language = "hi"
	LanguageMarathi  Language = "mr"
	LanguageTamil    Language = "ta"
	LanguageBengali  Language = "bn"
	LanguageGujarati Language = "gu"
	LanguageEnglish  Language = "en"

	// DefaultLanguage is the neutral language messages are assumed to be written in
	// and the fallback target when a counterpart never picked one.
	DefaultLanguage = LanguageEnglish
)

// LanguageOption is one entry of the selection prompt.
type LanguageOption struct {
	Code       Language `json:"code"`
	Name       string   `json:"name"`
	NativeName string   `json:"native_name"`
}

var supportedLanguages = []LanguageOption{
	{Code: LanguageHindi, Name: "Hindi", NativeName: "हिंदी"},
	{Code: LanguageMarathi, Name: "Marathi", NativeName: "मराठी"},
	{Code: LanguageTamil, Name: "Tamil", NativeName: "தமிழ்"},
	{Code: LanguageBengali, Name: "Bengali", NativeName: "বাংলা"},
	{Code: LanguageGujarati, Name: "Gujarati", NativeName: "ગુજરાતી"},
	{Code: LanguageEnglish, Name: "English", NativeName: "English"},
}

// SupportedLanguages returns the fixed selection set in display order.
func SupportedLanguages() []LanguageOption {
	out := make([]LanguageOption, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage normalizes s and checks it against the supported set.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Supported() {
		return LanguageUnset, ErrUnsupportedLanguage
	}
	return l, nil
}

// Supported reports whether l is one of the selectable languages.
func (l Language) Supported() bool {
	for _, opt := range supportedLanguages {
		if opt.Code == l {
			return true
		}
	}
	return false
}

// IsSet reports whether a language was picked.
func (l Language) IsSet() bool { return l != LanguageUnset }

// Or returns l, or fallback when l is unset.
func (l Language) Or(fallback Language) Language {
	if l.IsSet() {
		return l
	}
	return fallback
}

func (l Language) String() string { return string(l) }
