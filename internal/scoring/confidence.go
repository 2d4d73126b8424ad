// Package scoring computes the document-level extraction confidence.
package scoring

import (
	"math"

	"wasterescue/internal/domain"
)

const (
	errorPenalty   = 0.10
	warningPenalty = 0.05
)

// Score returns the mean confidence of the valid rows, lowered by a fixed
// penalty for every issue, floored at 0 and rounded to two decimals. Issues on
// excluded rows count too. No valid rows means 0.
func Score(rows []domain.CleanedRow, issues []domain.ValidationIssue) float64 {
	if len(rows) == 0 {
		return 0
	}

	var sum float64
	for i := range rows {
		sum += rows[i].Confidence
	}
	score := sum / float64(len(rows))
	score -= errorPenalty * float64(domain.CountSeverity(issues, domain.SeverityError))
	score -= warningPenalty * float64(domain.CountSeverity(issues, domain.SeverityWarning))

	return Round2(math.Max(0, score))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
