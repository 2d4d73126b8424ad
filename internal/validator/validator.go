// Package validator normalizes raw extracted waste rows and enforces the
// domain rules: weights in kilograms and a usable address on every row.
package validator

import (
	"wasterescue/internal/domain"
)

// Field names used in issues.
const (
	FieldWeight  = "weight"
	FieldAddress = "address"
)

// Validate cleans every raw row independently. A row is admitted to the
// returned rows iff it has no ERROR issue. Issues of all rows are returned in
// row order, weight before address, tagged with the row's input index.
func Validate(rows []domain.RawRow) ([]domain.CleanedRow, []domain.ValidationIssue) {
	cleaned := make([]domain.CleanedRow, 0, len(rows))
	issues := make([]domain.ValidationIssue, 0)

	for idx, row := range rows {
		var rowIssues []domain.ValidationIssue

		weight, weightIssues := validateWeight(weightText(row), idx)
		rowIssues = append(rowIssues, weightIssues...)

		address, addressIssues := validateAddress(stringField(row, "address"), idx)
		rowIssues = append(rowIssues, addressIssues...)

		out := domain.CleanedRow{
			WeightKg:   weight,
			Address:    address,
			WasteType:  stringField(row, "waste_type"),
			Date:       stringField(row, "date"),
			Hazardous:  boolField(row, "hazardous"),
			Confidence: floatField(row, "confidence", 0.5),
		}

		if domain.CountSeverity(rowIssues, domain.SeverityError) == 0 {
			cleaned = append(cleaned, out)
		}
		issues = append(issues, rowIssues...)
	}

	return cleaned, issues
}

// RawFromCleaned turns a cleaned row back into extraction form so edited or
// already-clean data can be run through Validate again.
func RawFromCleaned(row domain.CleanedRow) domain.RawRow {
	raw := domain.RawRow{
		"waste_type": row.WasteType,
		"date":       row.Date,
		"hazardous":  row.Hazardous,
		"confidence": row.Confidence,
	}
	if row.WeightKg != nil {
		raw["weight_kg"] = *row.WeightKg
	}
	if row.Address != nil {
		raw["address"] = *row.Address
	}
	return raw
}

// RawFromCleanedRows applies RawFromCleaned to every row.
func RawFromCleanedRows(rows []domain.CleanedRow) []domain.RawRow {
	out := make([]domain.RawRow, len(rows))
	for i := range rows {
		out[i] = RawFromCleaned(rows[i])
	}
	return out
}

func issue(idx int, field string, sev domain.Severity, msg string) domain.ValidationIssue {
	return domain.ValidationIssue{RowIndex: idx, Field: field, Severity: sev, Message: msg}
}
