package repositories

import (
	"context"
	"time"

	"github.com/personavoice/server/domain/entities"
)

// SynthesisResult is the uniform discriminated result of a synthesis call.
// All call sites treat this record, not errors, as the contract.
type SynthesisResult struct {
	Success   bool   `json:"success"`
	Path      string `json:"audio_path,omitempty"`
	URL       string `json:"audio_url,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Synthesis error classifications
const (
	SynthesisErrEmptyText             = "empty_text"
	SynthesisErrCredentialUnavailable = "credential_unavailable"
	SynthesisErrUpstream              = "upstream_error"
	SynthesisErrNetwork               = "network_error"
	SynthesisErrStorage               = "storage_error"
)

// Voice describes one entry of a provider's static voice catalog
type Voice struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// TextToSpeech abstracts text-to-speech services
type TextToSpeech interface {
	// Synthesize converts text into an audio artifact persisted under the
	// content directory. A nil character selects default voice parameters.
	Synthesize(ctx context.Context, text string, character *entities.CharacterProfile) SynthesisResult
	// SupportedVoices returns the provider's static voice catalog
	SupportedVoices() []Voice
	// CleanupOldFiles deletes generated artifacts older than maxAge and
	// returns the number removed
	CleanupOldFiles(maxAge time.Duration) (int, error)
}
