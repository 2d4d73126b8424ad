package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
	"wasterescue/internal/port"
)

// MockRowExtractor stands in for an extraction provider.
type MockRowExtractor struct {
	mock.Mock
}

func (m *MockRowExtractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	args := m.Called(ctx, input)
	rows, _ := args.Get(0).([]domain.RawRow)
	return rows, args.Error(1)
}
