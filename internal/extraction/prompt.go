package extraction

import (
	"strings"

	"wasterescue/internal/domain"
	"wasterescue/internal/port"
)

// BuildExtractionPrompt returns the row extraction prompt for a document language.
func BuildExtractionPrompt(language string) string {
	return `Extract waste management data from this document.

CRITICAL REQUIREMENTS:
1. Weight MUST be in kilograms (kg) ONLY
2. Every row MUST have an address
3. Extract these fields: weight, address, waste_type, date, hazardous (optional)

LANGUAGE: ` + language + `

OUTPUT FORMAT (JSON array):
[
  {
    "weight": "<value with unit, exactly as written>",
    "address": "<full address>",
    "waste_type": "<type in ` + language + `>",
    "date": "YYYY-MM-DD",
    "hazardous": true/false,
    "confidence": 0.0-1.0
  }
]

RULES:
- Keep the original unit in "weight" (kg, ton, g, lbs); conversion happens downstream
- If the address is missing, return an empty string for it
- If the date format is unclear, use your best guess and set confidence below 0.9
- The hazardous field is low priority, null is acceptable

Extract all rows. Return ONLY the JSON array with no explanation.`
}

// BuildMessage joins the prompt and the decoded document preview into one user message.
func BuildMessage(input port.ExtractInput) string {
	var b strings.Builder
	b.WriteString(BuildExtractionPrompt(languageOrDefault(input.Language)))
	b.WriteString("\n\n")
	switch input.ContentType {
	case domain.ContentTypes["xlsx"], domain.ContentTypes["xls"]:
		b.WriteString("Excel preview (first 50 rows):\n")
	default:
		b.WriteString("Document text:\n")
	}
	b.WriteString(input.Text)
	return b.String()
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return domain.LanguageSwedish
	}
	return lang
}
