package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BAIDU_API_KEY", "test-baidu-key")
	t.Setenv("BAIDU_SECRET_KEY", "test-baidu-secret")
	t.Setenv("OPENAI_API_KEY", "test-openai-key")
}

func TestLoadFromEnv(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.BaiduAPIKey != "test-baidu-key" {
		t.Errorf("BaiduAPIKey = %q", cfg.BaiduAPIKey)
	}
	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.STTProvider != STTProviderBaidu {
		t.Errorf("STTProvider = %q, want baidu", cfg.STTProvider)
	}
	if cfg.LLMProvider != LLMProviderOpenAI {
		t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
	if cfg.OpenAIModel != "gpt-4" {
		t.Errorf("OpenAIModel = %q, want gpt-4", cfg.OpenAIModel)
	}
	if cfg.BaiduDevPID != 1537 {
		t.Errorf("BaiduDevPID = %d, want 1537", cfg.BaiduDevPID)
	}
	if cfg.SessionMaxIdle != 30 {
		t.Errorf("SessionMaxIdle = %d, want 30", cfg.SessionMaxIdle)
	}
	if cfg.AudioDir != "static/audio" {
		t.Errorf("AudioDir = %q", cfg.AudioDir)
	}
}

func TestLoadMissingBaiduKeys(t *testing.T) {
	t.Setenv("BAIDU_API_KEY", "")
	t.Setenv("BAIDU_SECRET_KEY", "")
	t.Setenv("OPENAI_API_KEY", "test-openai-key")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("expected error when Baidu keys are missing")
	}
}

func TestLoadMissingLLMKey(t *testing.T) {
	t.Setenv("BAIDU_API_KEY", "k")
	t.Setenv("BAIDU_SECRET_KEY", "s")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is missing")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error = %v, want mention of OPENAI_API_KEY", err)
	}
}

func TestLoadGeminiProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.LLMProvider != LLMProviderGemini {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STT_PROVIDER", "whisper")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("expected error for unsupported STT provider")
	}
}

func TestGoogleSTTNeedsNoBaiduSTTKeys(t *testing.T) {
	// Baidu keys are still required for synthesis, but google STT itself
	// must be accepted as a provider choice.
	setBaseEnv(t)
	t.Setenv("STT_PROVIDER", "google")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.STTProvider != STTProviderGoogle {
		t.Errorf("STTProvider = %q", cfg.STTProvider)
	}
}
