package llm

import (
	"context"
	"sync"

	"github.com/personavoice/server/domain/repositories"
)

// MockChat is a ChatCompletion test double. It records every request and
// answers with either CompleteFunc, or the fixed Response/Err pair.
type MockChat struct {
	Response     string
	Err          error
	CompleteFunc func(ctx context.Context, req repositories.ChatRequest) (string, error)

	mu       sync.Mutex
	requests []repositories.ChatRequest
}

var _ repositories.ChatCompletion = (*MockChat)(nil)

func (m *MockChat) Complete(ctx context.Context, req repositories.ChatRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Requests returns a snapshot of the recorded requests
func (m *MockChat) Requests() []repositories.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repositories.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
