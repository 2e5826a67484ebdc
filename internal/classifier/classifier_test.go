package classifier

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/resilience"
	"github.com/sells-group/journey-mapper/pkg/anthropic"
	"github.com/sells-group/journey-mapper/pkg/openai"
)

func testRequest() mapping.Request {
	return mapping.NewRequest("portal-1", []model.SourceStage{
		{Value: "subscriber", Label: "Subscriber", Description: "Opted in to email"},
		{Value: "lead", Label: "Lead"},
	})
}

func TestRenderPrompt(t *testing.T) {
	p := RenderPrompt(testRequest())

	assert.Contains(t, p, `"Subscriber" (HubSpot value: "subscriber"): Opted in to email`)
	assert.Contains(t, p, `"Lead" (HubSpot value: "lead"): No description provided`)
	assert.Contains(t, p, `"Attract" (ID: trap1): `)
	assert.Contains(t, p, `"Expand" (ID: trap6): `)
	assert.True(t, strings.HasSuffix(p, mapping.Instructions))
	assert.Less(t, strings.Index(p, "HubSpot Lifecycle Stages"), strings.Index(p, "Bowtie Model Stages"))
}

func TestAnthropic_Classify(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.System == SystemPrompt &&
			req.Temperature != nil && *req.Temperature == 0.3 &&
			len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "HubSpot value")
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: ` {"lead":"trap2"} `}},
	}, nil)

	got, err := NewAnthropic(client, "claude-haiku-4-5-20251001", 0, 0.3).Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"lead":"trap2"}`, got)
	client.AssertExpectations(t)
}

func TestAnthropic_EmptyText(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&anthropic.MessageResponse{StopReason: "max_tokens"}, nil)

	_, err := NewAnthropic(client, "m", 16, 0.3).Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestOpenAI_Classify(t *testing.T) {
	client := &mockOpenAIClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req openai.ChatRequest) bool {
		return req.Model == "gpt-4o" && req.JSONObject && req.System == SystemPrompt
	})).Return(&openai.ChatResponse{Content: `{"subscriber":"trap1"}`}, nil)

	got, err := NewOpenAI(client, "gpt-4o", 0.3).Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"subscriber":"trap1"}`, got)
}

func TestOpenAI_TransientStatusMarked(t *testing.T) {
	client := &mockOpenAIClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &openai.APIError{StatusCode: 429, Message: "slow down"})

	_, err := NewOpenAI(client, "gpt-4o", 0.3).Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestOpenAI_PermanentStatusNotMarked(t *testing.T) {
	client := &mockOpenAIClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &openai.APIError{StatusCode: 401, Message: "bad key"})

	_, err := NewOpenAI(client, "gpt-4o", 0.3).Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestResilient_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	next := mapping.ClassifierFunc(func(context.Context, mapping.Request) (string, error) {
		if calls.Add(1) == 1 {
			return "", resilience.NewTransientError(errors.New("overloaded"), 529)
		}
		return `{"lead":"trap2"}`, nil
	})
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "classifier", FailureThreshold: 5})

	got, err := NewResilient(next, fastRetry(3), breaker, 0).Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"lead":"trap2"}`, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResilient_OpenCircuitFailsFast(t *testing.T) {
	var calls atomic.Int32
	next := mapping.ClassifierFunc(func(context.Context, mapping.Request) (string, error) {
		calls.Add(1)
		return "", errors.New("invalid api key")
	})
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	r := NewResilient(next, fastRetry(1), breaker, 0)

	for range 2 {
		_, err := r.Classify(context.Background(), testRequest())
		require.Error(t, err)
	}
	_, err := r.Classify(context.Background(), testRequest())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResilient_AttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	next := mapping.ClassifierFunc(func(ctx context.Context, _ mapping.Request) (string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return `{"lead":"trap2"}`, nil
	})
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 5})

	got, err := NewResilient(next, fastRetry(2), breaker, 10*time.Millisecond).Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"lead":"trap2"}`, got)
}
