package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
)

// MockReviewNotifier is a mock implementation of port.ReviewNotifier.
type MockReviewNotifier struct {
	mock.Mock
}

func (m *MockReviewNotifier) NotifyReviewReady(ctx context.Context, report *domain.BatchReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
