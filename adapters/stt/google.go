package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/personavoice/server/domain/repositories"
)

const defaultLanguageCode = "cmn-Hans-CN"

// GoogleSTTConfig holds configuration for the GoogleSTT adapter
// Optional fields with defaults:
// - LanguageCode: BCP-47 recognition language (default: "cmn-Hans-CN")
// Credentials come from the ambient GOOGLE_APPLICATION_CREDENTIALS setup.
type GoogleSTTConfig struct {
	LanguageCode string
}

// GoogleSTT implements the SpeechToText interface using Google Cloud
// Speech-to-Text synchronous recognition.
type GoogleSTT struct {
	client       *speech.Client
	languageCode string
	logger       *zap.Logger
}

// Ensure GoogleSTT implements the SpeechToText interface
var _ repositories.SpeechToText = (*GoogleSTT)(nil)

// NewGoogleSTT creates a new Google Cloud speech recognition instance
func NewGoogleSTT(ctx context.Context, config GoogleSTTConfig, logger *zap.Logger) (*GoogleSTT, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	languageCode := config.LanguageCode
	if languageCode == "" {
		languageCode = defaultLanguageCode
		logger.Info("Using default language code", zap.String("languageCode", languageCode))
	}

	return &GoogleSTT{
		client:       client,
		languageCode: languageCode,
		logger:       logger,
	}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSTT) Close() error {
	return g.client.Close()
}

// Transcribe runs synchronous recognition over the whole utterance. The
// payloads handled here are short (60s ceiling) so streaming recognition
// buys nothing.
func (g *GoogleSTT) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) repositories.TranscriptResult {
	if len(audio) == 0 {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptCorruptAudio,
			Message: "audio payload is empty",
		}
	}
	if len(audio) > maxPayloadBytes {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptPayloadTooLarge,
			Message: fmt.Sprintf("payload is %d bytes, limit is %d", len(audio), maxPayloadBytes),
		}
	}
	if config.SampleRate > 0 {
		if seconds := float64(len(audio)) / float64(config.SampleRate*config.Channels*2); seconds > maxDurationSeconds {
			return repositories.TranscriptResult{
				Code:    repositories.TranscriptDurationExceeded,
				Message: fmt.Sprintf("audio is %.1fs, limit is %ds", seconds, maxDurationSeconds),
			}
		}
	}

	encoding, err := audioEncoding(config.Format)
	if err != nil {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptUnsupportedFormat,
			Message: err.Error(),
		}
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    g.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		g.logger.Error("Recognition request failed", zap.Error(err))
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptUpstreamError,
			Message: err.Error(),
		}
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}

	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return repositories.TranscriptResult{Code: repositories.TranscriptNoSpeech}
	}

	g.logger.Info("Speech recognized", zap.Int("text_length", len(text)))
	return repositories.TranscriptResult{
		Code: repositories.TranscriptOK,
		Text: text,
	}
}

func audioEncoding(format string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(format) {
	case "WAV", "LINEAR16", "PCM":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", format)
	}
}
