package llm

import (
	"context"
	"errors"
	"testing"
)

func TestFromConfigPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"openai only", Config{OpenAIAPIKey: "sk-test"}, NameOpenAI},
		{"hf only", Config{HFToken: "hf_test"}, NameHF},
		{"openai wins over hf", Config{OpenAIAPIKey: "sk-test", HFToken: "hf_test"}, NameOpenAI},
		{"neither", Config{}, NameNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := FromConfig(tc.cfg)
			if p.Name() != tc.want {
				t.Errorf("provider = %s, want %s", p.Name(), tc.want)
			}
		})
	}
}

func TestConfigured(t *testing.T) {
	if Configured(nil) {
		t.Error("nil provider must not count as configured")
	}
	if Configured(Unconfigured{}) {
		t.Error("Unconfigured must not count as configured")
	}
	if !Configured(FromConfig(Config{OpenAIAPIKey: "sk-test"})) {
		t.Error("openai provider should count as configured")
	}
}

func TestUnconfiguredCompleteErrors(t *testing.T) {
	_, err := Unconfigured{}.Complete(context.Background(), buildPayload(t))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Provider != NameNone {
		t.Errorf("provider = %s, want %s", pe.Provider, NameNone)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	var err error = &ProviderError{Provider: NameHF, Reason: "request failed", Wrapped: inner}
	if !errors.Is(err, inner) {
		t.Error("ProviderError should unwrap to its cause")
	}
}
