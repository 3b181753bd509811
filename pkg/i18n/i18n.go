package i18n

// Language is a single-letter bank language code as used by the question data.
type Language string

const (
	English Language = "E"
	Spanish Language = "S"
	Russian Language = "R"
)

// Default is the designated fallback language for missing translations.
const Default = English

var names = map[Language]string{
	English: "English",
	Spanish: "Español",
	Russian: "Русский",
}

// Valid reports whether l is one of the supported bank languages.
func (l Language) Valid() bool {
	_, ok := names[l]
	return ok
}

// Name returns the human-readable name of the language, or the raw code when
// the language is unknown.
func (l Language) Name() string {
	if name, ok := names[l]; ok {
		return name
	}
	return string(l)
}

// Text maps a language code to a pre-translated string.
type Text map[Language]string

// Resolve returns the translation for lang. A missing or empty translation
// falls back to the default language, then to the empty string.
func (t Text) Resolve(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	if s, ok := t[Default]; ok {
		return s
	}
	return ""
}
