// Package llm talks to the AI grading providers and parses what they say.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/flyersgrade/flyersgrade/internal/llm/prompts"
)

// Provider names reported by Name.
const (
	NameOpenAI = "openai"
	NameHF     = "huggingface"
	NameNone   = "none"
)

// Provider sends a built grading prompt to an AI backend and returns the
// raw response text. Implementations do not retry; a transient failure
// surfaces as *ProviderError and the caller decides what to do.
type Provider interface {
	Name() string
	Complete(ctx context.Context, payload prompts.Payload) (string, error)
}

// Config selects and parameterizes the provider. Checked once at startup:
// OpenAI credentials win over a Hugging Face token; with neither set the
// unconfigured variant is returned.
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	MaxTokens     int

	HFToken    string
	HFModelURL string

	// Timeout bounds each inference-endpoint request. Zero means the
	// 60-second default.
	Timeout time.Duration
}

// FromConfig picks the provider variant for the given configuration.
func FromConfig(cfg Config) Provider {
	switch {
	case cfg.OpenAIAPIKey != "":
		return newChatCompletion(cfg)
	case cfg.HFToken != "":
		return newInferenceEndpoint(cfg)
	default:
		return Unconfigured{}
	}
}

// Configured reports whether p can actually be called.
func Configured(p Provider) bool {
	return p != nil && p.Name() != NameNone
}

// ProviderError is a transport or API failure from a provider, kept
// distinct from malformed-but-received output (which the parser absorbs).
type ProviderError struct {
	Provider string
	Reason   string
	Wrapped  error
}

func (e *ProviderError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("%s provider: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Wrapped
}

// Unconfigured is the no-op variant selected when no credentials exist.
// The engine short-circuits before reaching it; Complete erroring anyway
// keeps a misrouted call from looking like a provider response.
type Unconfigured struct{}

func (Unconfigured) Name() string { return NameNone }

func (Unconfigured) Complete(context.Context, prompts.Payload) (string, error) {
	return "", &ProviderError{Provider: NameNone, Reason: "no provider configured"}
}
