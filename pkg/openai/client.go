// Package openai wraps the OpenAI chat completions API for stage classification.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"
)

// Client defines the OpenAI operations used by the classifier.
type Client interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single-turn chat completion.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float32
	// JSONObject asks the API to constrain output to a JSON object.
	JSONObject bool
}

// ChatResponse carries the first choice of a completion.
type ChatResponse struct {
	ID               string
	Model            string
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Option configures the client.
type Option func(*goopenai.ClientConfig)

// WithBaseURL overrides the API endpoint (including the /v1 suffix).
func WithBaseURL(u string) Option {
	return func(c *goopenai.ClientConfig) { c.BaseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *goopenai.ClientConfig) { c.HTTPClient = hc }
}

type client struct {
	api *goopenai.Client
}

// NewClient creates an OpenAI client.
func NewClient(apiKey string, opts ...Option) Client {
	cfg := goopenai.DefaultConfig(apiKey)
	for _, o := range opts {
		o(&cfg)
	}
	return &client{api: goopenai.NewClientWithConfig(cfg)}
}

func (c *client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.User})

	params := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
	if req.JSONObject {
		params.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, params)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return nil, eris.Wrap(&APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}, "openai: chat completion")
		}
		return nil, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: chat completion returned no choices")
	}

	return &ChatResponse{
		ID:               resp.ID,
		Model:            resp.Model,
		Content:          resp.Choices[0].Message.Content,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
