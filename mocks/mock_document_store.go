package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"wasterescue/internal/domain"
)

// MockDocumentStore is a mock implementation of port.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) ListPending(ctx context.Context) ([]domain.DocumentRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentRecord), args.Error(1)
}

func (m *MockDocumentStore) MarkProcessing(ctx context.Context, name, batchID string) error {
	args := m.Called(ctx, name, batchID)
	return args.Error(0)
}

// Download writes the string given as the second return value (if any) to dst.
func (m *MockDocumentStore) Download(ctx context.Context, name string, dst io.Writer) error {
	args := m.Called(ctx, name, dst)
	if len(args) > 1 {
		if body, ok := args.Get(1).(string); ok {
			if _, err := io.WriteString(dst, body); err != nil {
				return err
			}
		}
	}
	return args.Error(0)
}

func (m *MockDocumentStore) Upload(ctx context.Context, body io.Reader, target, collection string) error {
	args := m.Called(ctx, body, target, collection)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockDocumentStore) SetMetadata(ctx context.Context, name string, metadata map[string]string) error {
	args := m.Called(ctx, name, metadata)
	return args.Error(0)
}
