package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider selector values
const (
	STTProviderBaidu  = "baidu"
	STTProviderGoogle = "google"

	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// Config holds all configuration for the voice chat server
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Provider selection
	STTProvider string `envconfig:"STT_PROVIDER" default:"baidu"`  // baidu, google
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"openai"` // openai, gemini

	// Baidu speech APIs (recognition and synthesis share one application)
	BaiduAPIKey    string `envconfig:"BAIDU_API_KEY"`
	BaiduSecretKey string `envconfig:"BAIDU_SECRET_KEY"`
	BaiduDevPID    int    `envconfig:"BAIDU_DEV_PID" default:"1537"` // recognition model

	// Google Cloud Speech-to-Text (credentials via GOOGLE_APPLICATION_CREDENTIALS)
	GoogleSTTLanguage string `envconfig:"GOOGLE_STT_LANGUAGE" default:"cmn-Hans-CN"`

	// OpenAI-compatible chat completions
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIAPIBase string `envconfig:"OPENAI_API_BASE" default:"https://api.openai.com/v1"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4"`

	// Google Gemini
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Content storage
	CharactersFile string `envconfig:"CHARACTERS_FILE" default:"data/characters.json"`
	AudioDir       string `envconfig:"AUDIO_DIR" default:"static/audio"`
	AudioURLBase   string `envconfig:"AUDIO_URL_BASE" default:"/static/audio"`
	AudioMaxAge    int    `envconfig:"AUDIO_MAX_AGE_HOURS" default:"24"` // artifact retention

	// Session management
	SessionMaxIdle     int `envconfig:"SESSION_MAX_IDLE_MINUTES" default:"30"` // idle reap threshold
	PipelineQueueSize  int `envconfig:"PIPELINE_QUEUE_SIZE" default:"64"`      // audio task backlog
	UpstreamTimeout    int `envconfig:"UPSTREAM_TIMEOUT" default:"30"`         // seconds, per provider call
	CleanupIntervalMin int `envconfig:"CLEANUP_INTERVAL_MINUTES" default:"5"`  // janitor period

	// Observability
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug, info, warn, error
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`  // human readable console logs
}

// Load reads configuration from environment variables. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without consulting a .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks provider selections against the credentials they need.
// Failing here keeps a misconfigured server from starting and then erroring
// on the first request.
func (c *Config) Validate() error {
	switch c.STTProvider {
	case STTProviderBaidu:
		if c.BaiduAPIKey == "" || c.BaiduSecretKey == "" {
			return fmt.Errorf("STT_PROVIDER=baidu requires BAIDU_API_KEY and BAIDU_SECRET_KEY")
		}
	case STTProviderGoogle:
		// Credentials are resolved by the Google SDK at client creation.
	default:
		return fmt.Errorf("unsupported STT_PROVIDER %q", c.STTProvider)
	}

	switch c.LLMProvider {
	case LLMProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case LLMProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("LLM_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	// Synthesis always runs on Baidu, both STT providers still need the
	// Baidu application for the voice track.
	if c.BaiduAPIKey == "" || c.BaiduSecretKey == "" {
		return fmt.Errorf("BAIDU_API_KEY and BAIDU_SECRET_KEY are required for speech synthesis")
	}

	return nil
}
