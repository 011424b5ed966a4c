package repositories

import "context"

// TranscriptCode classifies the outcome of a transcription attempt so the
// transport layer can give actionable guidance per failure class.
type TranscriptCode string

const (
	TranscriptOK                    TranscriptCode = "ok"
	TranscriptNoSpeech              TranscriptCode = "no_speech"
	TranscriptCredentialUnavailable TranscriptCode = "credential_unavailable"
	TranscriptPayloadTooLarge       TranscriptCode = "payload_too_large"
	TranscriptUnsupportedRate       TranscriptCode = "unsupported_sample_rate"
	TranscriptUnsupportedFormat     TranscriptCode = "unsupported_format"
	TranscriptCorruptAudio          TranscriptCode = "empty_or_corrupt_audio"
	TranscriptDurationExceeded      TranscriptCode = "duration_exceeded"
	TranscriptUpstreamError         TranscriptCode = "upstream_error"
	TranscriptNetworkError          TranscriptCode = "network_error"
)

// TranscriptResult is the uniform discriminated result of a transcription
// call. Callers branch on Code, never on error values crossing the
// pipeline-stage boundary.
type TranscriptResult struct {
	Code         TranscriptCode `json:"code"`
	Text         string         `json:"text,omitempty"`
	UpstreamCode int            `json:"upstream_code,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// OK reports whether the attempt produced a usable transcript
func (r TranscriptResult) OK() bool {
	return r.Code == TranscriptOK
}

// Retryable reports whether a later retry with the same audio could succeed
func (r TranscriptResult) Retryable() bool {
	return r.Code == TranscriptNetworkError || r.Code == TranscriptUpstreamError
}

// AudioConfig describes audio handed to a recognizer
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Format     string `json:"format"`
}

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts audio data to text. The audio is expected to be
	// normalized to the canonical format before the call.
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) TranscriptResult
}
