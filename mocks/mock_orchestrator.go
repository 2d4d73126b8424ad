package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
)

// MockOrchestrator is a mock implementation of service.Orchestrator.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) RunBatch(ctx context.Context, batchSize int) (*domain.BatchReport, error) {
	args := m.Called(ctx, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchReport), args.Error(1)
}
