package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
)

const (
	defaultTokenURL     = "https://aip.baidubce.com/oauth/2.0/token"
	defaultSynthesisURL = "https://tsn.baidu.com/text2audio"
	defaultAudioDir     = "static/audio"
	defaultAudioURLBase = "/static/audio"

	defaultBaiduTimeout = 30 // seconds

	// The synthesis API truncates input at 1024 characters.
	maxSynthesisRunes = 1024

	// Tokens are valid for 30 days; refresh one day early.
	tokenLifetime = 29 * 24 * time.Hour
)

// Baidu voice ids
const (
	voiceDuXiaomei = 0 // standard female
	voiceDuXiaoyu  = 1 // standard male
	voiceDuXiaoyao = 3 // emotional male
	voiceDuYaya    = 4 // emotional female
)

// VoiceParams are the tunable synthesis knobs, each in the 0-15 range.
type VoiceParams struct {
	Speaker int // per
	Speed   int // spd
	Pitch   int // pit
	Volume  int // vol
}

var defaultVoiceParams = VoiceParams{Speaker: voiceDuXiaomei, Speed: 5, Pitch: 5, Volume: 5}

// BaiduTTSConfig holds configuration for the BaiduTTS adapter
// Required fields:
// - APIKey: Baidu application API key
// - SecretKey: Baidu application secret key
// Optional fields with defaults:
// - AudioDir: Directory generated artifacts are written to (default: "static/audio")
// - AudioURLBase: Public URL prefix of AudioDir (default: "/static/audio")
// - TimeoutSeconds: Per-request timeout (default: 30)
// - TokenURL, SynthesisURL: Endpoint overrides, used in tests
type BaiduTTSConfig struct {
	APIKey         string
	SecretKey      string
	AudioDir       string
	AudioURLBase   string
	TimeoutSeconds int
	TokenURL       string
	SynthesisURL   string
}

// BaiduTTS implements the TextToSpeech interface against the Baidu speech
// synthesis API. Generated mp3 artifacts are persisted under AudioDir and
// addressed by URL for clients to fetch.
type BaiduTTS struct {
	apiKey       string
	secretKey    string
	audioDir     string
	audioURLBase string
	tokenURL     string
	synthesisURL string

	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

// Ensure BaiduTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*BaiduTTS)(nil)

// ValidateBaiduTTSConfig validates the BaiduTTSConfig
func ValidateBaiduTTSConfig(config BaiduTTSConfig) error {
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

// NewBaiduTTS creates a new Baidu speech synthesis instance. The audio
// directory is created eagerly so synthesis never races directory setup.
func NewBaiduTTS(config BaiduTTSConfig, logger *zap.Logger) (*BaiduTTS, error) {
	if err := ValidateBaiduTTSConfig(config); err != nil {
		return nil, err
	}

	audioDir := config.AudioDir
	if audioDir == "" {
		audioDir = defaultAudioDir
		logger.Info("Using default audio directory", zap.String("audioDir", audioDir))
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	audioURLBase := config.AudioURLBase
	if audioURLBase == "" {
		audioURLBase = defaultAudioURLBase
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	synthesisURL := config.SynthesisURL
	if synthesisURL == "" {
		synthesisURL = defaultSynthesisURL
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultBaiduTimeout
	}

	return &BaiduTTS{
		apiKey:       config.APIKey,
		secretKey:    config.SecretKey,
		audioDir:     audioDir,
		audioURLBase: strings.TrimRight(audioURLBase, "/"),
		tokenURL:     tokenURL,
		synthesisURL: synthesisURL,
		httpClient:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:       logger,
	}, nil
}

// Synthesize converts text to speech with voice parameters derived from the
// character profile. Text beyond the API ceiling is truncated rather than
// rejected, with the Truncated flag set on the result.
func (b *BaiduTTS) Synthesize(ctx context.Context, text string, character *entities.CharacterProfile) repositories.SynthesisResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrEmptyText,
			Message:   "text is empty",
		}
	}

	truncated := false
	if runes := []rune(text); len(runes) > maxSynthesisRunes {
		text = string(runes[:maxSynthesisRunes])
		truncated = true
	}

	token, err := b.accessTokenFor(ctx)
	if err != nil {
		b.logger.Error("Failed to obtain Baidu access token", zap.Error(err))
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrCredentialUnavailable,
			Message:   err.Error(),
		}
	}

	params := VoiceParamsFor(character)
	form := url.Values{
		"tex":  {text},
		"tok":  {token},
		"cuid": {uuid.NewString()},
		"ctp":  {"1"},
		"lan":  {"zh"},
		"per":  {strconv.Itoa(params.Speaker)},
		"spd":  {strconv.Itoa(params.Speed)},
		"pit":  {strconv.Itoa(params.Pitch)},
		"vol":  {strconv.Itoa(params.Volume)},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.synthesisURL, strings.NewReader(form.Encode()))
	if err != nil {
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrUpstream,
			Message:   err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("Synthesis request failed", zap.Error(err))
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrNetwork,
			Message:   err.Error(),
		}
	}
	defer resp.Body.Close()

	// A Content-Type of audio/* signals success; anything else carries a
	// JSON error document.
	if !strings.Contains(resp.Header.Get("Content-Type"), "audio") {
		var upstream struct {
			ErrNo  int    `json:"err_no"`
			ErrMsg string `json:"err_msg"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&upstream); err != nil {
			return repositories.SynthesisResult{
				ErrorCode: repositories.SynthesisErrUpstream,
				Message:   fmt.Sprintf("unexpected response (status %d)", resp.StatusCode),
			}
		}
		b.logger.Warn("Synthesis API error",
			zap.Int("err_no", upstream.ErrNo),
			zap.String("err_msg", upstream.ErrMsg))
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrUpstream,
			Message:   fmt.Sprintf("err_no %d: %s", upstream.ErrNo, upstream.ErrMsg),
		}
	}

	audioData, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrNetwork,
			Message:   err.Error(),
		}
	}
	if len(audioData) == 0 {
		b.logger.Warn("Synthesis returned an audio content type with no body")
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrUpstream,
			Message:   "empty audio response",
		}
	}

	filename := fmt.Sprintf("tts_%s.mp3", uuid.NewString()[:8])
	path := filepath.Join(b.audioDir, filename)
	if err := os.WriteFile(path, audioData, 0o644); err != nil {
		b.logger.Error("Failed to persist synthesized audio", zap.Error(err))
		return repositories.SynthesisResult{
			ErrorCode: repositories.SynthesisErrStorage,
			Message:   err.Error(),
		}
	}

	audioURL := b.audioURLBase + "/" + filename
	b.logger.Info("Speech synthesized",
		zap.String("url", audioURL),
		zap.Int("bytes", len(audioData)),
		zap.Bool("truncated", truncated))

	return repositories.SynthesisResult{
		Success:   true,
		Path:      path,
		URL:       audioURL,
		Truncated: truncated,
	}
}

// VoiceParamsFor derives synthesis parameters from a character profile.
// Male characters get the standard male voice; female voices vary with the
// personality description.
func VoiceParamsFor(character *entities.CharacterProfile) VoiceParams {
	params := defaultVoiceParams
	if character == nil {
		return params
	}

	switch {
	case character.Gender == "male":
		params.Speaker = voiceDuXiaoyu
	case strings.Contains(character.Personality, "活泼"),
		strings.Contains(character.Personality, "开朗"):
		params.Speaker = voiceDuYaya
		params.Speed = 6
	case strings.Contains(character.Personality, "优雅"),
		strings.Contains(character.Personality, "温柔"):
		params.Speaker = voiceDuXiaomei
		params.Speed = 4
		params.Pitch = 6
	}
	return params
}

// SupportedVoices returns the provider's static voice catalog
func (b *BaiduTTS) SupportedVoices() []repositories.Voice {
	return []repositories.Voice{
		{ID: voiceDuXiaomei, Name: "度小美", Gender: "female", Description: "标准女声"},
		{ID: voiceDuXiaoyu, Name: "度小宇", Gender: "male", Description: "标准男声"},
		{ID: voiceDuXiaoyao, Name: "度逍遥", Gender: "male", Description: "情感合成男声"},
		{ID: voiceDuYaya, Name: "度丫丫", Gender: "female", Description: "情感合成女声"},
	}
}

// CleanupOldFiles removes generated artifacts older than maxAge. Only files
// matching the tts_*.mp3 naming produced by Synthesize are touched.
func (b *BaiduTTS) CleanupOldFiles(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(b.audioDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list audio directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "tts_") || !strings.HasSuffix(name, ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(b.audioDir, name)); err != nil {
				b.logger.Warn("Failed to remove old audio file",
					zap.String("file", name), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		b.logger.Info("Old audio files removed", zap.Int("count", removed))
	}
	return removed, nil
}

// accessTokenFor returns the cached token, fetching a fresh one when the
// cache is empty or expired.
func (b *BaiduTTS) accessTokenFor(ctx context.Context) (string, error) {
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

	var parsed struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
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
