package repositories

import "context"

// Role defines the type of message sender
type Role string

const (
	SystemRole    Role = "system"
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

// ChatMessage represents a single message in a completion request
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries one chat-completion round trip
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// ChatCompletion abstracts any chat/LLM provider. Implementations are
// synchronous request/response with a finite timeout.
type ChatCompletion interface {
	// Complete sends the request and returns the assistant's reply text
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
