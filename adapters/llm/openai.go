package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/personavoice/server/domain/repositories"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4"
	defaultOpenAITimeout = 30 // seconds

	defaultPresencePenalty  = 0.1
	defaultFrequencyPenalty = 0.1
)

// OpenAIConfig holds configuration for the OpenAIChat adapter
// Required fields:
// - APIKey: Your OpenAI (or compatible gateway) API key
// Optional fields with defaults:
// - APIBaseURL: The base URL of the chat completions API (default: "https://api.openai.com/v1")
// - Model: The model name to request (default: "gpt-4")
// - TimeoutSeconds: Per-request timeout (default: 30)
type OpenAIConfig struct {
	APIKey         string // Required: API key
	APIBaseURL     string // Optional: base URL, any OpenAI-compatible endpoint works
	Model          string // Optional: model name
	TimeoutSeconds int    // Optional: per-request timeout in seconds
}

// OpenAIChat implements the ChatCompletion interface against the OpenAI
// chat completions API. Because only the wire format matters, any
// OpenAI-compatible gateway can be targeted through APIBaseURL.
type OpenAIChat struct {
	apiKey     string
	apiBaseURL string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure OpenAIChat implements the ChatCompletion interface
var _ repositories.ChatCompletion = (*OpenAIChat)(nil)

type openAIChatRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      float64         `json:"temperature,omitempty"`
	PresencePenalty  float64         `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64         `json:"frequency_penalty,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewOpenAIChat creates a new OpenAI chat completion instance
func NewOpenAIChat(config OpenAIConfig, logger *zap.Logger) (*OpenAIChat, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultOpenAIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultOpenAIModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultOpenAITimeout
		logger.Info("Using default timeout", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	return &OpenAIChat{
		apiKey:     config.APIKey,
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Complete sends the messages to the chat completions endpoint and returns
// the assistant text of the first choice.
func (o *OpenAIChat) Complete(ctx context.Context, req repositories.ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("chat request has no messages")
	}

	payload := openAIChatRequest{
		Model:            o.model,
		Messages:         make([]openAIMessage, 0, len(req.Messages)),
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		PresencePenalty:  defaultPresencePenalty,
		FrequencyPenalty: defaultFrequencyPenalty,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, openAIMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	url := o.apiBaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat completion response: %w", err)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat completion response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		o.logger.Error("Chat completion API error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return "", fmt.Errorf("chat completion API returned status %d: %s", resp.StatusCode, msg)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion response contains no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion response is empty")
	}

	o.logger.Debug("Chat completion succeeded",
		zap.String("model", o.model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("response_length", len(text)))

	return text, nil
}
