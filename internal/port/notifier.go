package port

import (
	"context"

	"wasterescue/internal/domain"
)

// ReviewNotifier tells reviewers that new results are waiting.
type ReviewNotifier interface {
	NotifyReviewReady(ctx context.Context, report *domain.BatchReport) error
}
