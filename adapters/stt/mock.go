package stt

import (
	"context"
	"sync"

	"github.com/personavoice/server/domain/repositories"
)

// MockSTT is a SpeechToText test double. Each call returns Results in
// order, repeating the last entry once exhausted.
type MockSTT struct {
	Results []repositories.TranscriptResult

	mu    sync.Mutex
	calls int
	audio [][]byte
}

var _ repositories.SpeechToText = (*MockSTT)(nil)

func (m *MockSTT) Transcribe(_ context.Context, audio []byte, _ repositories.AudioConfig) repositories.TranscriptResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audio = append(m.audio, audio)
	i := m.calls
	m.calls++

	if len(m.Results) == 0 {
		return repositories.TranscriptResult{Code: repositories.TranscriptNoSpeech}
	}
	if i >= len(m.Results) {
		i = len(m.Results) - 1
	}
	return m.Results[i]
}

// Calls returns how many times Transcribe was invoked
func (m *MockSTT) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
