package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/personavoice/server/domain/repositories"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiTimeout = 30 // seconds
)

// GeminiConfig holds configuration for the GeminiChat adapter
// Required fields:
// - APIKey: Your Google AI API key
// Optional fields with defaults:
// - Model: The model name to request (default: "gemini-2.0-flash")
// - TimeoutSeconds: Per-request timeout (default: 30)
type GeminiConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// GeminiChat implements the ChatCompletion interface using Google's Gemini API
type GeminiChat struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// Ensure GeminiChat implements the ChatCompletion interface
var _ repositories.ChatCompletion = (*GeminiChat)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiChat creates a new Gemini chat completion instance
func NewGeminiChat(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiChat, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultGeminiTimeout
		logger.Info("Using default timeout", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &GeminiChat{
		client:  client,
		model:   model,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		logger:  logger,
	}, nil
}

// Complete sends the messages to Gemini and returns the generated text.
// System messages become a system instruction; the rest map onto the
// user/model turn structure Gemini expects.
func (g *GeminiChat) Complete(ctx context.Context, req repositories.ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("chat request has no messages")
	}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case repositories.SystemRole:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case repositories.AssistantRole:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("chat request has no user messages")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("generated content is empty")
	}

	g.logger.Debug("Gemini completion succeeded",
		zap.String("model", g.model),
		zap.Int("response_length", len(text)))

	return text, nil
}
