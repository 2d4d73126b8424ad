package port

import (
	"context"

	"wasterescue/internal/domain"
)

// ReviewQueue is the durable holding area for results awaiting review.
type ReviewQueue interface {
	// Put inserts or replaces the entry keyed by its document id.
	Put(ctx context.Context, entry *domain.ReviewEntry) error
	// Get returns domain.ErrReviewNotFound if no entry exists.
	Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error)
	// List returns entries with the given status, or all entries when status is empty.
	List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error)
}
