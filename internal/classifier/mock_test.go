package classifier

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/journey-mapper/pkg/anthropic"
	"github.com/sells-group/journey-mapper/pkg/openai"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- OpenAI Mock ---

type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) Complete(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatResponse), args.Error(1)
}
