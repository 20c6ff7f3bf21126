package llm

import (
	"context"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flyersgrade/flyersgrade/internal/llm/prompts"
)

const (
	defaultMaxTokens = 500
	// Low temperature: grading should be repeatable, not creative.
	gradingTemperature = 0.2
)

// ChatCompletion grades through an OpenAI-compatible chat-completions API.
type ChatCompletion struct {
	api       *openai.Client
	model     string
	maxTokens int
}

var _ Provider = (*ChatCompletion)(nil)

func newChatCompletion(cfg Config) *ChatCompletion {
	apiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ChatCompletion{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *ChatCompletion) Name() string { return NameOpenAI }

// Complete sends the fixed system directive plus the rendered user message
// and returns the first choice's text.
func (c *ChatCompletion) Complete(ctx context.Context, payload prompts.Payload) (string, error) {
	userMsg, err := payload.UserMessage()
	if err != nil {
		return "", &ProviderError{Provider: NameOpenAI, Reason: "build user message", Wrapped: err}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: payload.System},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		MaxTokens:   c.maxTokens,
		Temperature: gradingTemperature,
	})
	if err != nil {
		return "", &ProviderError{Provider: NameOpenAI, Reason: "chat completion call", Wrapped: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: NameOpenAI, Reason: "no choices in response"}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("chat completion response", "model", c.model, "raw", raw)
	return raw, nil
}
