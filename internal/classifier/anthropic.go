package classifier

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/resilience"
	"github.com/sells-group/journey-mapper/pkg/anthropic"
)

// Anthropic classifies with the Messages API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic creates an Anthropic-backed classifier.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64, temperature float64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens, temperature: temperature}
}

func (a *Anthropic) Classify(ctx context.Context, req mapping.Request) (string, error) {
	temp := a.temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      SystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: RenderPrompt(req)}},
		Temperature: &temp,
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "", resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return "", err
	}
	resp.Usage.Log(a.model, "classify")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Errorf("classifier: anthropic returned no text (stop reason %s)", resp.StopReason)
	}
	return text, nil
}
