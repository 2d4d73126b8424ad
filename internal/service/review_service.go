package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
	"wasterescue/internal/result"
	"wasterescue/internal/scoring"
	"wasterescue/internal/validator"
)

const defaultRejectionReason = "No reason given"

// ApproveInput is the DTO for approving a review entry.
type ApproveInput struct {
	DocumentID string
	ReviewedBy string
	// Rows replaces the extracted rows when non-nil. Edited rows are
	// re-validated and must not produce errors.
	Rows []domain.CleanedRow
}

// RejectInput is the DTO for rejecting a review entry.
type RejectInput struct {
	DocumentID string
	ReviewedBy string
	Reason     string
}

// ReviewService defines the human review contract.
type ReviewService interface {
	List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error)
	Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error)
	Approve(ctx context.Context, input *ApproveInput) (*domain.ReviewEntry, error)
	Reject(ctx context.Context, input *RejectInput) (*domain.ReviewEntry, error)
}

type reviewService struct {
	queue  port.ReviewQueue
	store  port.DocumentStore
	locks  *KeyLock
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewService creates a new ReviewService implementation.
func NewReviewService(queue port.ReviewQueue, store port.DocumentStore, locks *KeyLock, logger *slog.Logger) ReviewService {
	if locks == nil {
		locks = NewKeyLock()
	}
	return &reviewService{
		queue:  queue,
		store:  store,
		locks:  locks,
		logger: logging.OrDefault(logger).With("component", "review"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error) {
	if status != "" {
		parsed, err := domain.ParseDocumentStatus(string(status))
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	return s.queue.List(ctx, status)
}

func (s *reviewService) Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error) {
	return s.queue.Get(ctx, documentID)
}

// Approve uploads the result to the processed collection and then deletes the
// source document. Nothing is deleted unless the upload succeeded, and the
// entry only becomes approved once both steps are done.
func (s *reviewService) Approve(ctx context.Context, input *ApproveInput) (*domain.ReviewEntry, error) {
	entry, unlock, err := s.lockEntry(ctx, input.DocumentID, domain.DocumentStatusApproved)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if input.Rows != nil {
		rows, issues := validator.Validate(validator.RawFromCleanedRows(input.Rows))
		if n := domain.CountSeverity(issues, domain.SeverityError); n > 0 {
			first := firstError(issues)
			return nil, fmt.Errorf("%w: edited rows have %d error(s), first: row %d %s: %s",
				domain.ErrInvalidResult, n, first.RowIndex, first.Field, first.Message)
		}
		// The edited rows replace the extraction, so issue indices and counts
		// describe them rather than the original rows.
		entry.Rows = rows
		entry.Issues = issues
		entry.TotalRows = len(input.Rows)
		entry.ValidRows = len(rows)
		entry.ConfidenceScore = scoring.Score(rows, issues)
		entry.Summary = result.Summarize(entry.TotalRows, len(rows), issues)
	}

	reviewedAt := s.now()
	entry.Status = domain.DocumentStatusApproved
	entry.ReviewedBy = input.ReviewedBy
	entry.ReviewedAt = &reviewedAt

	data, err := result.MarshalEntry(entry)
	if err != nil {
		return nil, err
	}
	key := domain.ProcessedKey(entry.Filename)
	if err := s.store.Upload(ctx, bytes.NewReader(data), key, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	if err := s.store.Delete(ctx, entry.Filename); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDeleteFailed, err)
		}
		s.logger.Warn("source document already gone", "name", entry.Filename)
	}

	if err := s.queue.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("reviewService.Approve: %w", err)
	}
	s.logger.Info("document approved", "document_id", entry.DocumentID, "key", key, "reviewed_by", entry.ReviewedBy)
	return entry, nil
}

// Reject writes rejection metadata onto the source document and leaves it in
// place for manual handling.
func (s *reviewService) Reject(ctx context.Context, input *RejectInput) (*domain.ReviewEntry, error) {
	entry, unlock, err := s.lockEntry(ctx, input.DocumentID, domain.DocumentStatusRejected)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultRejectionReason
	}
	reviewedAt := s.now()
	entry.Status = domain.DocumentStatusRejected
	entry.RejectionReason = reason
	entry.ReviewedBy = input.ReviewedBy
	entry.ReviewedAt = &reviewedAt

	if err := s.store.SetMetadata(ctx, entry.Filename, rejectionMeta(entry)); err != nil {
		return nil, fmt.Errorf("reviewService.Reject: %w", err)
	}
	if err := s.queue.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("reviewService.Reject: %w", err)
	}
	s.logger.Info("document rejected", "document_id", entry.DocumentID, "reason", reason, "reviewed_by", entry.ReviewedBy)
	return entry, nil
}

// lockEntry loads the entry, takes the document lock and checks the transition.
// The entry is re-read under the lock so concurrent reviews see each other.
func (s *reviewService) lockEntry(ctx context.Context, documentID string, to domain.DocumentStatus) (*domain.ReviewEntry, func(), error) {
	entry, err := s.queue.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.Lock(entry.Filename)

	entry, err = s.queue.Get(ctx, documentID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if !domain.CanTransition(entry.Status, to) {
		unlock()
		return nil, nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, entry.Status, to)
	}
	return entry, unlock, nil
}

func rejectionMeta(entry *domain.ReviewEntry) map[string]string {
	meta := map[string]string{
		domain.MetaStatus:     string(domain.DocumentStatusRejected),
		domain.MetaDocumentID: entry.DocumentID,
		domain.MetaReason:     entry.RejectionReason,
	}
	if entry.ReviewedAt != nil {
		meta[domain.MetaRejectedAt] = entry.ReviewedAt.Format(time.RFC3339Nano)
	}
	if entry.ReviewedBy != "" {
		meta[domain.MetaReviewedBy] = entry.ReviewedBy
	}
	return meta
}

func firstError(issues []domain.ValidationIssue) domain.ValidationIssue {
	for i := range issues {
		if issues[i].Severity == domain.SeverityError {
			return issues[i]
		}
	}
	return domain.ValidationIssue{}
}
