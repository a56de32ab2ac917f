package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubProvider is a test implementation of the Provider interface
type stubProvider struct {
	name   string
	models map[string]ModelKind
}

func newStubProvider(name string, models map[string]ModelKind) *stubProvider {
	return &stubProvider{name: name, models: models}
}

func (s *stubProvider) Name() string {
	return s.name
}

func (s *stubProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ChatResponse{
		ID:       "stub-response",
		Model:    req.Model,
		Provider: s.name,
		Choices: []Choice{{
			Message:      Message{Role: RoleAssistant, Content: "stub answer"},
			FinishReason: "stop",
		}},
	}, nil
}

func (s *stubProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i := range req.Input {
		out[i] = []float32{float32(i)}
	}
	return &EmbeddingResponse{Model: req.Model, Embeddings: out, Provider: s.name}, nil
}

func (s *stubProvider) IsAvailable(ctx context.Context) bool {
	return true
}

func (s *stubProvider) GetModelInfo(model string) (*ModelInfo, error) {
	kind, ok := s.models[model]
	if !ok {
		return nil, fmt.Errorf("model %s not found", model)
	}
	return &ModelInfo{ID: model, Provider: s.name, Kind: kind}, nil
}

func (s *stubProvider) ListModels() []string {
	out := make([]string, 0, len(s.models))
	for m := range s.models {
		out = append(out, m)
	}
	return out
}

func TestChatResponse_Text(t *testing.T) {
	tests := []struct {
		name string
		resp *ChatResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no choices", &ChatResponse{}, ""},
		{"first choice", &ChatResponse{Choices: []Choice{
			{Message: Message{Content: "first"}},
			{Message: Message{Content: "second"}},
		}}, "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	config := DefaultProviderConfig()

	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}

	if config.Headers == nil {
		t.Error("Headers should be initialized")
	}
}

func TestProviderError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewProviderError("openai", "HTTP_ERROR", "HTTP request failed", 0, true, cause)

		if err.Error() != "openai: HTTP request failed: connection reset" {
			t.Errorf("Error() = %s", err.Error())
		}

		if !errors.Is(err, cause) {
			t.Error("Expected error to unwrap to cause")
		}
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewProviderError("openai", "MALFORMED_RESPONSE", "expected 2 embeddings, got 1", 200, false, nil)

		if err.Error() != "openai: expected 2 embeddings, got 1" {
			t.Errorf("Error() = %s", err.Error())
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable", NewProviderError("openai", "X", "x", 503, true, nil), true},
		{"not retryable", NewProviderError("openai", "X", "x", 400, false, nil), false},
		{"wrapped retryable", fmt.Errorf("embed: %w", NewProviderError("openai", "X", "x", 429, true, nil)), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_RegisterProvider(t *testing.T) {
	registry := NewRegistry()

	provider := newStubProvider("stub", map[string]ModelKind{"stub-chat": ModelKindChat})

	if err := registry.RegisterProvider(provider); err != nil {
		t.Fatalf("RegisterProvider() error = %v", err)
	}

	if err := registry.RegisterProvider(provider); !errors.Is(err, ErrProviderAlreadyRegistered) {
		t.Errorf("Expected ErrProviderAlreadyRegistered, got %v", err)
	}

	if err := registry.RegisterProvider(nil); err == nil {
		t.Error("Expected error for nil provider")
	}

	if err := registry.RegisterProvider(newStubProvider("", nil)); err == nil {
		t.Error("Expected error for empty provider name")
	}

	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestRegistry_GetProvider(t *testing.T) {
	registry := NewRegistry()
	_ = registry.RegisterProvider(newStubProvider("stub", nil))

	if _, err := registry.GetProvider("stub"); err != nil {
		t.Errorf("GetProvider() error = %v", err)
	}

	if _, err := registry.GetProvider("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_ProviderForModel(t *testing.T) {
	registry := NewRegistry()
	_ = registry.RegisterProvider(newStubProvider("stub", map[string]ModelKind{
		"stub-chat":      ModelKindChat,
		"stub-embedding": ModelKindEmbedding,
	}))

	chat, err := registry.ChatProviderFor("stub-chat")
	if err != nil {
		t.Fatalf("ChatProviderFor() error = %v", err)
	}
	if chat.Name() != "stub" {
		t.Errorf("Name() = %s, want stub", chat.Name())
	}

	if _, err := registry.EmbeddingProviderFor("stub-embedding"); err != nil {
		t.Errorf("EmbeddingProviderFor() error = %v", err)
	}

	if _, err := registry.ChatProviderFor("stub-embedding"); !errors.Is(err, ErrWrongModelKind) {
		t.Errorf("Expected ErrWrongModelKind, got %v", err)
	}

	if _, err := registry.EmbeddingProviderFor("unknown"); !errors.Is(err, ErrModelNotSupported) {
		t.Errorf("Expected ErrModelNotSupported, got %v", err)
	}
}

func TestRegistry_ListProviders(t *testing.T) {
	registry := NewRegistry()
	_ = registry.RegisterProvider(newStubProvider("zeta", nil))
	_ = registry.RegisterProvider(newStubProvider("alpha", nil))

	names := registry.ListProviders()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("ListProviders() = %v, want [alpha zeta]", names)
	}
}
