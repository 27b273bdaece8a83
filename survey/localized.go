package survey

// DefaultLanguage is used as the first fallback when a translation is missing.
const DefaultLanguage = "fi"

// Languages is the fixed set of supported language codes.
var Languages = []string{"fi", "en", "se"}

// LocalizedText maps a language code to a string.
type LocalizedText map[string]string

// Get returns the text for lang, falling back to the default language and then
// to any non-empty translation. A nil map yields "".
func (t LocalizedText) Get(lang string) string {
	if v := t[lang]; v != "" {
		return v
	}
	if v := t[DefaultLanguage]; v != "" {
		return v
	}
	for _, l := range Languages {
		if v := t[l]; v != "" {
			return v
		}
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsEmpty reports whether no translation has content.
func (t LocalizedText) IsEmpty() bool {
	for _, v := range t {
		if v != "" {
			return false
		}
	}
	return true
}

// Text builds a LocalizedText with a single default-language entry.
func Text(s string) LocalizedText {
	return LocalizedText{DefaultLanguage: s}
}
