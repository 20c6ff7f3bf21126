package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type chatCompletionStub struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func newChatServer(t *testing.T, handler http.HandlerFunc) *ChatCompletion {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newChatCompletion(Config{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: srv.URL + "/v1",
		Model:         "gpt-4o-mini",
	})
}

func TestChatCompletionComplete(t *testing.T) {
	var gotReq chatCompletionStub
	c := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"score": 80, "feedback": "ok"}`}},
			},
		})
	})

	raw, err := c.Complete(context.Background(), buildPayload(t))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if raw != `{"score": 80, "feedback": "ok"}` {
		t.Errorf("unexpected raw text: %q", raw)
	}

	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", gotReq.MaxTokens, defaultMaxTokens)
	}
	if gotReq.Temperature != gradingTemperature {
		t.Errorf("temperature = %v, want %v", gotReq.Temperature, gradingTemperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "I eat rice.") {
		t.Errorf("user message should carry the student answer, got %q", gotReq.Messages[1].Content)
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	c := newChatServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), buildPayload(t))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Provider != NameOpenAI {
		t.Errorf("provider = %s, want %s", pe.Provider, NameOpenAI)
	}
}

func TestChatCompletionNoChoices(t *testing.T) {
	c := newChatServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := c.Complete(context.Background(), buildPayload(t))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != "no choices in response" {
		t.Errorf("reason = %q", pe.Reason)
	}
}

func TestChatCompletionMaxTokensOverride(t *testing.T) {
	c := newChatCompletion(Config{OpenAIAPIKey: "sk-test", MaxTokens: 120})
	if c.maxTokens != 120 {
		t.Errorf("maxTokens = %d, want 120", c.maxTokens)
	}
}
