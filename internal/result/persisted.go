package result

import (
	"encoding/json"
	"fmt"
	"time"

	"wasterescue/internal/domain"
)

// Layouts accepted for processed_at/reviewed_at. Older writers emitted local
// ISO timestamps without a zone; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Marshal renders a result in its persisted JSON form.
func Marshal(r *domain.ExtractionResult) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("result.Marshal: %w", err)
	}
	return data, nil
}

// MarshalEntry renders a review entry; it is a persisted result plus review state.
func MarshalEntry(e *domain.ReviewEntry) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("result.MarshalEntry: %w", err)
	}
	return data, nil
}

// Unmarshal parses and schema-checks a persisted result. Schema violations
// wrap domain.ErrInvalidResult.
func Unmarshal(data []byte) (*domain.ExtractionResult, error) {
	entry, err := UnmarshalEntry(data)
	if err != nil {
		return nil, err
	}
	return &entry.ExtractionResult, nil
}

// UnmarshalEntry parses a review entry. A missing status means pending_review.
func UnmarshalEntry(data []byte) (*domain.ReviewEntry, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResult, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResult, err)
	}
	for _, key := range []string{"processed_at", "reviewed_at"} {
		if err := normalizeTimestamp(fields, key); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidResult, key, err)
		}
	}
	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("result.UnmarshalEntry: %w", err)
	}

	var entry domain.ReviewEntry
	if err := json.Unmarshal(normalized, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResult, err)
	}

	res := &entry.ExtractionResult
	if res.Rows == nil {
		res.Rows = []domain.CleanedRow{}
	}
	if res.Issues == nil {
		res.Issues = []domain.ValidationIssue{}
	}
	if _, ok := fields["valid_rows"]; !ok {
		res.ValidRows = len(res.Rows)
	}
	if _, ok := fields["total_rows"]; !ok {
		res.TotalRows = ApproxTotalRows(res.ValidRows, res.Issues)
	}
	if res.DocumentID == "" {
		res.DocumentID = domain.DocumentID(res.Filename)
	}
	if entry.Status == "" {
		entry.Status = domain.DocumentStatusPendingReview
	}
	return &entry, nil
}

func normalizeTimestamp(fields map[string]json.RawMessage, key string) error {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			out, err := json.Marshal(ts.UTC())
			if err != nil {
				return err
			}
			fields[key] = out
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
