package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"wasterescue/internal/domain"
)

const (
	kgPerTon   = 1000.0
	gramsPerKg = 1000.0
	kgPerPound = 0.453592
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	bareTon       = regexp.MustCompile(`(?:^|[\d\s])t$`)
	bareGram      = regexp.MustCompile(`(?:^|[\d\s])g$`)
)

type weightUnit int

const (
	unitKilogram weightUnit = iota
	unitTon
	unitGram
	unitPound
)

// detectUnit classifies a weight string. Any "kg" wins over ton and gram
// markers, so "1000 kg (1 ton)" is already kilograms.
func detectUnit(weight string) weightUnit {
	lower := strings.ToLower(weight)
	trimmed := strings.TrimSpace(lower)
	hasKG := strings.Contains(lower, "kg")

	switch {
	case (strings.Contains(lower, "ton") || bareTon.MatchString(trimmed)) && !hasKG:
		return unitTon
	case (strings.Contains(lower, "gram") && !strings.Contains(lower, "kilogram") || bareGram.MatchString(trimmed)) && !hasKG:
		return unitGram
	case strings.Contains(lower, "lb") || strings.Contains(lower, "pound"):
		return unitPound
	default:
		return unitKilogram
	}
}

// parseNumber returns the first numeric token, reading ',' as a decimal separator.
func parseNumber(weight string) (float64, bool) {
	token := numberPattern.FindString(weight)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func validateWeight(weight string, idx int) (*float64, []domain.ValidationIssue) {
	if strings.TrimSpace(weight) == "" {
		return nil, []domain.ValidationIssue{
			issue(idx, FieldWeight, domain.SeverityError, "Missing weight value"),
		}
	}

	value, ok := parseNumber(weight)
	if !ok {
		return nil, []domain.ValidationIssue{
			issue(idx, FieldWeight, domain.SeverityError, fmt.Sprintf("Could not parse weight: %s", weight)),
		}
	}

	original := value
	var issues []domain.ValidationIssue

	switch detectUnit(weight) {
	case unitTon:
		value = original * kgPerTon
		issues = append(issues, issue(idx, FieldWeight, domain.SeverityWarning,
			fmt.Sprintf("Converted %s (%s ton) to %s kg", weight, formatNumber(original), formatNumber(value))))
	case unitGram:
		value = original / gramsPerKg
		issues = append(issues, issue(idx, FieldWeight, domain.SeverityWarning,
			fmt.Sprintf("Converted %s (%s g) to %s kg", weight, formatNumber(original), formatNumber(value))))
	case unitPound:
		value = original * kgPerPound
		issues = append(issues, issue(idx, FieldWeight, domain.SeverityWarning,
			fmt.Sprintf("Converted %s (%s lbs) to %.2f kg", weight, formatNumber(original), value)))
	case unitKilogram:
	}

	return &value, issues
}

// weightText returns the free-text weight. Rows carrying only weight_kg (edited
// or previously cleaned data) are read as kilograms.
func weightText(row domain.RawRow) string {
	if v, ok := row["weight"]; ok && v != nil {
		return stringField(row, "weight")
	}
	if v, ok := row["weight_kg"]; ok && v != nil {
		return stringField(row, "weight_kg") + " kg"
	}
	return ""
}

// formatNumber renders a value for messages, rounded to six decimals.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
