package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"wasterescue/internal/domain"
)

const minAddressLength = 5

func validateAddress(address string, idx int) (*string, []domain.ValidationIssue) {
	trimmed := strings.TrimSpace(address)
	if utf8.RuneCountInString(trimmed) < minAddressLength {
		return nil, []domain.ValidationIssue{
			issue(idx, FieldAddress, domain.SeverityError, "Missing or incomplete address"),
		}
	}

	var issues []domain.ValidationIssue
	if strings.IndexFunc(trimmed, unicode.IsDigit) < 0 {
		issues = append(issues, issue(idx, FieldAddress, domain.SeverityWarning,
			"Address may be incomplete (no street number)"))
	}
	return &trimmed, issues
}
