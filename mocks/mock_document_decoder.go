package mocks

import "github.com/stretchr/testify/mock"

// MockDocumentDecoder is a mock implementation of port.DocumentDecoder.
type MockDocumentDecoder struct {
	mock.Mock
}

func (m *MockDocumentDecoder) Text(name string, data []byte) (string, error) {
	args := m.Called(name, data)
	return args.String(0), args.Error(1)
}
