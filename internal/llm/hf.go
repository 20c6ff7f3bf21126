package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/flyersgrade/flyersgrade/internal/i18n"
	"github.com/flyersgrade/flyersgrade/internal/llm/prompts"
)

const (
	defaultHFTimeout  = 60 * time.Second
	hfMaxNewTokens    = 250
	defaultHFModelURL = "https://api-inference.huggingface.co/models/HuggingFaceH4/zephyr-7b-beta"
)

// InferenceEndpoint grades through a hosted text-generation endpoint
// (Hugging Face Inference API shape).
type InferenceEndpoint struct {
	url    string
	token  string
	client *http.Client // reused across calls
}

var _ Provider = (*InferenceEndpoint)(nil)

func newInferenceEndpoint(cfg Config) *InferenceEndpoint {
	url := cfg.HFModelURL
	if url == "" {
		url = defaultHFModelURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHFTimeout
	}
	return &InferenceEndpoint{
		url:    url,
		token:  cfg.HFToken,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *InferenceEndpoint) Name() string { return NameHF }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Complete sends the full single-string prompt and returns the generated
// continuation. A non-success status or timeout is a *ProviderError; a
// response in an unexpected shape degrades to a synthesized zero-score JSON
// so the shared parser produces a valid diagnostic result instead of a crash.
func (e *InferenceEndpoint) Complete(ctx context.Context, payload prompts.Payload) (string, error) {
	prompt, err := payload.FullPrompt()
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "build prompt", Wrapped: err}
	}

	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:   hfMaxNewTokens,
			Temperature:    gradingTemperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "marshal request", Wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "create request", Wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{Provider: NameHF, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "read response", Wrapped: err}
	}

	var generations []hfGeneration
	if err := json.Unmarshal(raw, &generations); err == nil && len(generations) > 0 && generations[0].GeneratedText != "" {
		return generations[0].GeneratedText, nil
	}

	// Unexpected shape: degrade, don't crash. Synthesize a raw text that
	// parses to score 0 with a diagnostic so it flows through the one
	// parse path like any other provider output.
	slog.Warn("inference endpoint response not understood", "url", e.url, "body_len", len(raw))
	degraded, err := json.Marshal(map[string]any{
		"score":    0,
		"feedback": i18n.T("feedback.endpoint_not_understood"),
	})
	if err != nil {
		return "", &ProviderError{Provider: NameHF, Reason: "marshal degraded result", Wrapped: err}
	}
	return string(degraded), nil
}
