package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects severities other than "warning" and "error".
func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v := Severity(strings.ToLower(raw))
	if !v.Valid() {
		return fmt.Errorf("unknown severity %q", raw)
	}
	*s = v
	return nil
}

// DocumentStatus is the lifecycle stage of a source document.
type DocumentStatus string

const (
	DocumentStatusFailed        DocumentStatus = "failed"
	DocumentStatusProcessing    DocumentStatus = "processing"
	DocumentStatusPendingReview DocumentStatus = "pending_review"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusRejected      DocumentStatus = "rejected"
)

// ParseDocumentStatus converts a stored metadata value into a DocumentStatus.
// An empty value means the document has never been touched and is "failed".
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch DocumentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", DocumentStatusFailed:
		return DocumentStatusFailed, nil
	case DocumentStatusProcessing:
		return DocumentStatusProcessing, nil
	case DocumentStatusPendingReview:
		return DocumentStatusPendingReview, nil
	case DocumentStatusApproved:
		return DocumentStatusApproved, nil
	case DocumentStatusRejected:
		return DocumentStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown document status %q", s)
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case DocumentStatusApproved, DocumentStatusRejected:
		return true
	case DocumentStatusFailed, DocumentStatusProcessing, DocumentStatusPendingReview:
		return false
	default:
		return false
	}
}

// Fetchable reports whether a batch may pick the document up. Processing is
// included so a document abandoned by a crashed cycle is retried.
func (s DocumentStatus) Fetchable() bool {
	switch s {
	case DocumentStatusFailed, DocumentStatusProcessing:
		return true
	case DocumentStatusPendingReview, DocumentStatusApproved, DocumentStatusRejected:
		return false
	default:
		return false
	}
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
//
//	failed -> processing -> pending_review -> approved | rejected
//
// processing -> processing is allowed: a re-fetch after a crash writes a fresh marker.
func CanTransition(from, to DocumentStatus) bool {
	switch from {
	case DocumentStatusFailed:
		return to == DocumentStatusProcessing
	case DocumentStatusProcessing:
		return to == DocumentStatusProcessing || to == DocumentStatusPendingReview
	case DocumentStatusPendingReview:
		return to == DocumentStatusApproved || to == DocumentStatusRejected
	case DocumentStatusApproved, DocumentStatusRejected:
		return false
	default:
		return false
	}
}

// BatchStatus is the outcome class of one orchestrator cycle.
type BatchStatus string

const (
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusNoFiles BatchStatus = "no_files"
	BatchStatusError   BatchStatus = "error"
)

// Language codes accepted as extraction hints.
const (
	LanguageSwedish   = "sv"
	LanguageFinnish   = "fi"
	LanguageNorwegian = "no"
	LanguageEnglish   = "en"
	LanguageDanish    = "dk"
)

// ContentTypes maps file extensions (without dot) to MIME content types.
var ContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"csv":  "text/csv",
	"txt":  "text/plain",
}

// ContentTypeFor guesses a content type from a file name.
func ContentTypeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ct, ok := ContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
