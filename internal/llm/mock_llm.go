package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Stream(ctx context.Context, req Request) <-chan Chunk {
	args := m.Called(ctx, req)
	return args.Get(0).(<-chan Chunk)
}

func (m *MockClient) CallTools(ctx context.Context, req ToolRequest) (ToolResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ToolResponse), args.Error(1)
}
