// Package result assembles per-document extraction results and owns their
// persisted JSON form.
package result

import (
	"fmt"
	"math"
	"time"

	"wasterescue/internal/domain"
	"wasterescue/internal/scoring"
	"wasterescue/internal/validator"
)

const defaultNoRowsReason = "No rows could be extracted from the document"

// BuildInput carries everything Build needs for one document.
type BuildInput struct {
	DocumentID  string
	Filename    string
	Language    string
	RawRowCount int
	Rows        []domain.CleanedRow
	Issues      []domain.ValidationIssue
	Elapsed     time.Duration
	ProcessedAt time.Time
	// NoRowsReason explains an empty extraction to the reviewer in the
	// summary. Used only when RawRowCount is zero.
	NoRowsReason string
}

// Build assembles an ExtractionResult. The returned value owns copies of the
// input slices. A document without raw rows gets a note in its summary
// explaining why; it adds no issue, so error counts stay row-based.
func Build(in BuildInput) *domain.ExtractionResult {
	rows := make([]domain.CleanedRow, len(in.Rows))
	copy(rows, in.Rows)
	issues := make([]domain.ValidationIssue, len(in.Issues))
	copy(issues, in.Issues)

	summary := Summarize(in.RawRowCount, len(rows), issues)
	if in.RawRowCount == 0 {
		reason := in.NoRowsReason
		if reason == "" {
			reason = defaultNoRowsReason
		}
		summary += NoRowsNote(reason)
	}

	id := in.DocumentID
	if id == "" {
		id = domain.DocumentID(in.Filename)
	}
	processedAt := in.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	return &domain.ExtractionResult{
		DocumentID:      id,
		Filename:        in.Filename,
		ProcessedAt:     processedAt,
		Summary:         summary,
		ConfidenceScore: scoring.Score(rows, issues),
		TotalRows:       in.RawRowCount,
		ValidRows:       len(rows),
		ProcessingTime:  math.Round(in.Elapsed.Seconds()*1000) / 1000,
		Language:        in.Language,
		Rows:            rows,
		Issues:          issues,
	}
}

// NoRowsNote is the summary line appended for empty extractions.
func NoRowsNote(reason string) string {
	return "- Note: " + reason + "\n"
}

// Summarize renders the human-readable summary shown to reviewers.
func Summarize(totalRows, validRows int, issues []domain.ValidationIssue) string {
	return fmt.Sprintf("Extraction Complete:\n- Total entries: %d\n- Valid entries: %d\n- Errors: %d\n- Warnings: %d\n- Missing addresses: %d\n",
		totalRows,
		validRows,
		domain.CountSeverity(issues, domain.SeverityError),
		domain.CountSeverity(issues, domain.SeverityWarning),
		MissingAddresses(issues),
	)
}

// MissingAddresses counts ERROR issues on the address field.
func MissingAddresses(issues []domain.ValidationIssue) int {
	n := 0
	for i := range issues {
		if issues[i].Severity == domain.SeverityError && issues[i].Field == validator.FieldAddress {
			n++
		}
	}
	return n
}

// ApproxTotalRows reconstructs a row count from valid rows plus address
// errors. Rows rejected only for their weight are not counted. Used for
// persisted results written without total_rows.
func ApproxTotalRows(validRows int, issues []domain.ValidationIssue) int {
	return validRows + MissingAddresses(issues)
}
