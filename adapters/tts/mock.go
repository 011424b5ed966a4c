package tts

import (
	"context"
	"sync"
	"time"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
)

// MockTTS is a TextToSpeech test double returning a fixed result and
// recording the synthesized texts.
type MockTTS struct {
	Result repositories.SynthesisResult

	mu    sync.Mutex
	texts []string
}

var _ repositories.TextToSpeech = (*MockTTS)(nil)

func (m *MockTTS) Synthesize(_ context.Context, text string, _ *entities.CharacterProfile) repositories.SynthesisResult {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	return m.Result
}

func (m *MockTTS) SupportedVoices() []repositories.Voice {
	return []repositories.Voice{{ID: 0, Name: "mock", Gender: "female", Description: "test voice"}}
}

func (m *MockTTS) CleanupOldFiles(time.Duration) (int, error) {
	return 0, nil
}

// Texts returns a snapshot of the recorded synthesis inputs
func (m *MockTTS) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}
