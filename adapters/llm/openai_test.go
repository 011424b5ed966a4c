package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/personavoice/server/domain/repositories"
)

func TestValidateOpenAIConfig(t *testing.T) {
	if err := ValidateOpenAIConfig(OpenAIConfig{}); err == nil {
		t.Error("expected error when API key is not set")
	}
	if err := ValidateOpenAIConfig(OpenAIConfig{APIKey: "k", TimeoutSeconds: -1}); err == nil {
		t.Error("expected error for negative timeout")
	}
	if err := ValidateOpenAIConfig(OpenAIConfig{APIKey: "k"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewOpenAIChatDefaults(t *testing.T) {
	logger := zaptest.NewLogger(t)

	chat, err := NewOpenAIChat(OpenAIConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("NewOpenAIChat() error = %v", err)
	}
	if chat.apiBaseURL != defaultOpenAIBaseURL {
		t.Errorf("apiBaseURL = %q, want %q", chat.apiBaseURL, defaultOpenAIBaseURL)
	}
	if chat.model != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", chat.model, defaultOpenAIModel)
	}
}

func TestOpenAIChatComplete(t *testing.T) {
	logger := zaptest.NewLogger(t)

	var captured openAIChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  你好，我是苏格拉底。  "}},
			},
		})
	}))
	defer server.Close()

	chat, err := NewOpenAIChat(OpenAIConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
		Model:      "test-model",
	}, logger)
	if err != nil {
		t.Fatalf("NewOpenAIChat() error = %v", err)
	}

	got, err := chat.Complete(context.Background(), repositories.ChatRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: "扮演苏格拉底"},
			{Role: repositories.UserRole, Content: "你好"},
		},
		MaxTokens:   500,
		Temperature: 0.8,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "你好，我是苏格拉底。" {
		t.Errorf("Complete() = %q, want trimmed reply", got)
	}

	if captured.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", captured.Model)
	}
	if captured.MaxTokens != 500 {
		t.Errorf("request max_tokens = %d, want 500", captured.MaxTokens)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("unexpected messages %+v", captured.Messages)
	}
}

func TestOpenAIChatCompleteUpstreamError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer server.Close()

	chat, err := NewOpenAIChat(OpenAIConfig{APIKey: "k", APIBaseURL: server.URL}, logger)
	if err != nil {
		t.Fatalf("NewOpenAIChat() error = %v", err)
	}

	_, err = chat.Complete(context.Background(), repositories.ChatRequest{
		Messages: []repositories.ChatMessage{{Role: repositories.UserRole, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestOpenAIChatCompleteEmptyRequest(t *testing.T) {
	logger := zaptest.NewLogger(t)

	chat, err := NewOpenAIChat(OpenAIConfig{APIKey: "k"}, logger)
	if err != nil {
		t.Fatalf("NewOpenAIChat() error = %v", err)
	}
	if _, err := chat.Complete(context.Background(), repositories.ChatRequest{}); err == nil {
		t.Error("expected error for empty request")
	}
}
