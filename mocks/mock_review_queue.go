package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
)

// MockReviewQueue is a mock implementation of port.ReviewQueue.
type MockReviewQueue struct {
	mock.Mock
}

func (m *MockReviewQueue) Put(ctx context.Context, entry *domain.ReviewEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReviewQueue) Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewEntry), args.Error(1)
}

func (m *MockReviewQueue) List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewEntry), args.Error(1)
}
