package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"
)

// RawRow is one untyped record returned by the extraction collaborator.
// Keys of interest: weight, address, waste_type, date, hazardous, confidence.
type RawRow map[string]any

// CleanedRow is a normalized waste record. WeightKg and Address are nil only
// while the row carries an ERROR issue; admitted rows always have both.
type CleanedRow struct {
	WeightKg   *float64 `json:"weight_kg"`
	Address    *string  `json:"address"`
	WasteType  string   `json:"waste_type"`
	Date       string   `json:"date"`
	Hazardous  bool     `json:"hazardous"`
	Confidence float64  `json:"confidence"`
}

// ValidationIssue is a row-level finding. ERROR removes the row from the
// valid set, WARNING does not.
type ValidationIssue struct {
	RowIndex int      `json:"row"`
	Field    string   `json:"field"`
	Severity Severity `json:"type"`
	Message  string   `json:"message"`
}

// ExtractionResult is the per-document record handed to human review. Its JSON
// form is the wire contract shared with the review UI and the approval flow.
type ExtractionResult struct {
	DocumentID      string            `json:"document_id"`
	Filename        string            `json:"filename"`
	ProcessedAt     time.Time         `json:"processed_at"`
	Summary         string            `json:"summary"`
	ConfidenceScore float64           `json:"confidence"`
	TotalRows       int               `json:"total_rows"`
	ValidRows       int               `json:"valid_rows"`
	ProcessingTime  float64           `json:"processing_time"`
	Language        string            `json:"language,omitempty"`
	Rows            []CleanedRow      `json:"data"`
	Issues          []ValidationIssue `json:"issues"`
}

// CountSeverity returns the number of issues with the given severity.
func (r *ExtractionResult) CountSeverity(sev Severity) int {
	return CountSeverity(r.Issues, sev)
}

// CountSeverity returns the number of issues with the given severity.
func CountSeverity(issues []ValidationIssue, sev Severity) int {
	n := 0
	for i := range issues {
		if issues[i].Severity == sev {
			n++
		}
	}
	return n
}

// ReviewEntry is an ExtractionResult held in the review queue together with
// its review state.
type ReviewEntry struct {
	ExtractionResult
	Status          DocumentStatus `json:"status"`
	ReviewedBy      string         `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

// DocumentRecord describes a document in the source store.
type DocumentRecord struct {
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	ModifiedAt  time.Time         `json:"modified_at"`
	ContentType string            `json:"content_type"`
	Status      DocumentStatus    `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Metadata keys written to source documents.
const (
	MetaStatus      = "status"
	MetaProcessor   = "processor"
	MetaTimestamp   = "timestamp"
	MetaBatchID     = "batch_id"
	MetaDocumentID  = "document_id"
	MetaReason      = "reason"
	MetaRejectedAt  = "rejected_at"
	MetaReviewedBy  = "reviewed_by"
	MetaConfidence  = "confidence"
	MetaContentType = "content_type"
)

// BatchSummary aggregates the results of one cycle. Documents that failed are
// not part of it.
type BatchSummary struct {
	DocumentsProcessed  int     `json:"documents_processed"`
	TotalRows           int     `json:"total_rows"`
	TotalValidRows      int     `json:"total_valid_rows"`
	TotalErrors         int     `json:"total_errors"`
	TotalWarnings       int     `json:"total_warnings"`
	AvgConfidence       float64 `json:"avg_confidence"`
	TotalProcessingTime float64 `json:"total_processing_time"`
}

// BatchReport is what one orchestrator cycle returns.
type BatchReport struct {
	BatchID  string             `json:"batch_id"`
	Status   BatchStatus        `json:"status"`
	Summary  BatchSummary       `json:"summary"`
	Results  []ExtractionResult `json:"results"`
	Failed   []string           `json:"failed,omitempty"`
	Duration float64            `json:"processing_time"`
}

// DocumentID derives the review-queue key for a source document name. Names
// made only of [A-Za-z0-9._-] (and not starting or ending in '.') are their own
// key. Any other name is sanitized and gets a short hash of the raw name
// before its extension, so "a b.txt" and "a_b.txt" never share a key.
func DocumentID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := strings.Trim(b.String(), ".")
	if id != "" && id == name {
		return id
	}
	if id == "" {
		id = "document"
	}
	sum := sha256.Sum256([]byte(name))
	ext := path.Ext(id)
	return strings.TrimSuffix(id, ext) + "-" + hex.EncodeToString(sum[:6]) + ext
}

// ProcessedKey is the object name an approved result is uploaded under.
func ProcessedKey(filename string) string {
	return "processed/" + filename + ".json"
}
