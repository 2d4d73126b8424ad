package extraction

import (
	"strings"

	"wasterescue/internal/domain"
)

// DetectLanguage guesses a document's language from its file name. Swedish is
// the default.
func DetectLanguage(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "fin") || strings.Contains(name, "suomi"):
		return domain.LanguageFinnish
	case strings.Contains(name, "nor") || strings.Contains(name, "norge"):
		return domain.LanguageNorwegian
	case strings.Contains(name, "eng") || strings.Contains(name, "english"):
		return domain.LanguageEnglish
	default:
		return domain.LanguageSwedish
	}
}
