package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personavoice/server/domain/repositories"
)

const (
	defaultTokenURL  = "https://aip.baidubce.com/oauth/2.0/token"
	defaultSpeechURL = "https://vop.baidu.com/server_api"

	// dev_pid 1537 selects Mandarin with basic English support.
	defaultDevPID = 1537

	defaultBaiduTimeout = 30 // seconds

	// The recognition API rejects payloads above 4MB and audio longer
	// than 60 seconds.
	maxPayloadBytes    = 4 * 1024 * 1024
	maxDurationSeconds = 60

	// Tokens are valid for 30 days; refresh one day early.
	tokenLifetime = 29 * 24 * time.Hour
)

// Upstream err_no values with a dedicated classification
const (
	baiduErrUnsupportedFormat = 3300
	baiduErrCorruptAudio      = 3301
	baiduErrDurationExceeded  = 3302
	baiduErrUnsupportedRate   = 3311
)

// BaiduSTTConfig holds configuration for the BaiduSTT adapter
// Required fields:
// - APIKey: Baidu application API key
// - SecretKey: Baidu application secret key
// Optional fields with defaults:
// - DevPID: Recognition model id (default: 1537, Mandarin)
// - TimeoutSeconds: Per-request timeout (default: 30)
// - TokenURL, SpeechURL: Endpoint overrides, used in tests
type BaiduSTTConfig struct {
	APIKey         string
	SecretKey      string
	DevPID         int
	TimeoutSeconds int
	TokenURL       string
	SpeechURL      string
}

// BaiduSTT implements the SpeechToText interface against the Baidu short
// speech recognition API. Access tokens are cached for their full lifetime
// and refreshed lazily.
type BaiduSTT struct {
	apiKey    string
	secretKey string
	devPID    int
	tokenURL  string
	speechURL string
	cuid      string

	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

// Ensure BaiduSTT implements the SpeechToText interface
var _ repositories.SpeechToText = (*BaiduSTT)(nil)

type baiduTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

type baiduRecognizeRequest struct {
	Format  string `json:"format"`
	Rate    int    `json:"rate"`
	Channel int    `json:"channel"`
	Cuid    string `json:"cuid"`
	Token   string `json:"token"`
	DevPID  int    `json:"dev_pid"`
	Speech  string `json:"speech"`
	Len     int    `json:"len"`
}

type baiduRecognizeResponse struct {
	ErrNo  int      `json:"err_no"`
	ErrMsg string   `json:"err_msg"`
	Result []string `json:"result"`
}

// ValidateBaiduSTTConfig validates the BaiduSTTConfig
func ValidateBaiduSTTConfig(config BaiduSTTConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Baidu API key is required")
	}
	if config.SecretKey == "" {
		return fmt.Errorf("Baidu secret key is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewBaiduSTT creates a new Baidu speech recognition instance
func NewBaiduSTT(config BaiduSTTConfig, logger *zap.Logger) (*BaiduSTT, error) {
	if err := ValidateBaiduSTTConfig(config); err != nil {
		return nil, err
	}

	devPID := config.DevPID
	if devPID == 0 {
		devPID = defaultDevPID
		logger.Info("Using default recognition model", zap.Int("devPID", devPID))
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	speechURL := config.SpeechURL
	if speechURL == "" {
		speechURL = defaultSpeechURL
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultBaiduTimeout
	}

	return &BaiduSTT{
		apiKey:     config.APIKey,
		secretKey:  config.SecretKey,
		devPID:     devPID,
		tokenURL:   tokenURL,
		speechURL:  speechURL,
		cuid:       uuid.NewString(),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:     logger,
	}, nil
}

// Transcribe sends canonical-format audio to the recognition API and maps
// the outcome onto a TranscriptResult. All failures are expressed through
// the result code, never as a Go error, so call sites handle one shape.
func (b *BaiduSTT) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) repositories.TranscriptResult {
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

	token, err := b.accessTokenFor(ctx)
	if err != nil {
		b.logger.Error("Failed to obtain Baidu access token", zap.Error(err))
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptCredentialUnavailable,
			Message: err.Error(),
		}
	}

	payload := baiduRecognizeRequest{
		Format:  "wav",
		Rate:    config.SampleRate,
		Channel: config.Channels,
		Cuid:    b.cuid,
		Token:   token,
		DevPID:  b.devPID,
		Speech:  base64.StdEncoding.EncodeToString(audio),
		Len:     len(audio),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptUpstreamError,
			Message: fmt.Sprintf("failed to marshal request: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.speechURL, bytes.NewBuffer(body))
	if err != nil {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptUpstreamError,
			Message: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("Recognition request failed", zap.Error(err))
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptNetworkError,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptNetworkError,
			Message: err.Error(),
		}
	}

	var parsed baiduRecognizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return repositories.TranscriptResult{
			Code:    repositories.TranscriptUpstreamError,
			Message: fmt.Sprintf("unparseable response (status %d): %v", resp.StatusCode, err),
		}
	}

	if parsed.ErrNo != 0 {
		b.logger.Warn("Recognition API error",
			zap.Int("err_no", parsed.ErrNo),
			zap.String("err_msg", parsed.ErrMsg))
		return repositories.TranscriptResult{
			Code:         classifyBaiduError(parsed.ErrNo),
			UpstreamCode: parsed.ErrNo,
			Message:      parsed.ErrMsg,
		}
	}

	text := strings.TrimSpace(strings.Join(parsed.Result, ""))
	if text == "" {
		return repositories.TranscriptResult{Code: repositories.TranscriptNoSpeech}
	}

	b.logger.Info("Speech recognized", zap.Int("text_length", len(text)))
	return repositories.TranscriptResult{
		Code: repositories.TranscriptOK,
		Text: text,
	}
}

func classifyBaiduError(errNo int) repositories.TranscriptCode {
	switch errNo {
	case baiduErrUnsupportedRate:
		return repositories.TranscriptUnsupportedRate
	case baiduErrUnsupportedFormat:
		return repositories.TranscriptUnsupportedFormat
	case baiduErrCorruptAudio:
		return repositories.TranscriptCorruptAudio
	case baiduErrDurationExceeded:
		return repositories.TranscriptDurationExceeded
	default:
		return repositories.TranscriptUpstreamError
	}
}

// accessTokenFor returns the cached token, fetching a fresh one when the
// cache is empty or expired.
func (b *BaiduSTT) accessTokenFor(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" && time.Now().Before(b.tokenExpiresAt) {
		return b.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {b.apiKey},
		"client_secret": {b.secretKey},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", b.tokenURL+"?"+form.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed baiduTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response rejected: %s %s", parsed.Error, parsed.ErrorDesc)
	}

	b.accessToken = parsed.AccessToken
	b.tokenExpiresAt = time.Now().Add(tokenLifetime)
	b.logger.Info("Baidu access token refreshed")

	return b.accessToken, nil
}
