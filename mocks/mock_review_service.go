package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
	"wasterescue/internal/service"
)

// MockReviewService is a mock implementation of service.ReviewService.
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewEntry), args.Error(1)
}

func (m *MockReviewService) Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewEntry), args.Error(1)
}

func (m *MockReviewService) Approve(ctx context.Context, input *service.ApproveInput) (*domain.ReviewEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewEntry), args.Error(1)
}

func (m *MockReviewService) Reject(ctx context.Context, input *service.RejectInput) (*domain.ReviewEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewEntry), args.Error(1)
}
