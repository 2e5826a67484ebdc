package classifier

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/resilience"
	"github.com/sells-group/journey-mapper/pkg/openai"
)

// OpenAI classifies with chat completions in JSON mode.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates an OpenAI-backed classifier.
func NewOpenAI(client openai.Client, model string, temperature float64) *OpenAI {
	return &OpenAI{client: client, model: model, temperature: float32(temperature)}
}

func (o *OpenAI) Classify(ctx context.Context, req mapping.Request) (string, error) {
	resp, err := o.client.Complete(ctx, openai.ChatRequest{
		Model:       o.model,
		System:      SystemPrompt,
		User:        RenderPrompt(req),
		Temperature: o.temperature,
		JSONObject:  true,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "", resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return "", err
	}
	zap.L().Debug("openai usage",
		zap.String("model", o.model),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
	)

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", eris.Errorf("classifier: openai returned no content (finish reason %s)", resp.FinishReason)
	}
	return text, nil
}
