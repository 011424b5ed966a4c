package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/personavoice/server/adapters/catalog"
	"github.com/personavoice/server/adapters/llm"
	"github.com/personavoice/server/adapters/stt"
	"github.com/personavoice/server/adapters/tts"
	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/api"
	"github.com/personavoice/server/internal/config"
	"github.com/personavoice/server/internal/generator"
	"github.com/personavoice/server/internal/registry"
	"github.com/personavoice/server/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet, config failures go straight to stderr.
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	ctx := context.Background()

	characters, err := catalog.NewFileCatalog(catalog.FileCatalogConfig{
		Path: cfg.CharactersFile,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to load character catalog", zap.Error(err))
	}

	speechToText, err := buildSpeechToText(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech recognition", zap.Error(err))
	}

	textToSpeech, err := tts.NewBaiduTTS(tts.BaiduTTSConfig{
		APIKey:         cfg.BaiduAPIKey,
		SecretKey:      cfg.BaiduSecretKey,
		AudioDir:       cfg.AudioDir,
		AudioURLBase:   cfg.AudioURLBase,
		TimeoutSeconds: cfg.UpstreamTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech synthesis", zap.Error(err))
	}

	chat, err := buildChatCompletion(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat completion", zap.Error(err))
	}

	responses := generator.NewResponseGenerator(chat, logger)

	sessions := registry.NewRegistry(speechToText, textToSpeech, responses, logger,
		registry.WithQueueSize(cfg.PipelineQueueSize))
	defer sessions.Close()

	sessions.StartJanitor(
		time.Duration(cfg.CleanupIntervalMin)*time.Minute,
		time.Duration(cfg.SessionMaxIdle)*time.Minute,
	)
	startArtifactJanitor(textToSpeech, cfg, logger)

	hub := websocket.NewHub(sessions, characters, logger)
	go hub.Run()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, &api.Handlers{
		Catalog:   characters,
		Generator: responses,
		STT:       speechToText,
		TTS:       textToSpeech,
		Registry:  sessions,
		Hub:       hub,
		AudioDir:  cfg.AudioDir,
		Logger:    logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice chat server started",
		zap.String("port", cfg.Port),
		zap.String("stt_provider", cfg.STTProvider),
		zap.String("llm_provider", cfg.LLMProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.LogDev {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func buildSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.STTProvider {
	case config.STTProviderGoogle:
		return stt.NewGoogleSTT(ctx, stt.GoogleSTTConfig{
			LanguageCode: cfg.GoogleSTTLanguage,
		}, logger)
	default:
		return stt.NewBaiduSTT(stt.BaiduSTTConfig{
			APIKey:         cfg.BaiduAPIKey,
			SecretKey:      cfg.BaiduSecretKey,
			DevPID:         cfg.BaiduDevPID,
			TimeoutSeconds: cfg.UpstreamTimeout,
		}, logger)
	}
}

func buildChatCompletion(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ChatCompletion, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		return llm.NewGeminiChat(ctx, llm.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			TimeoutSeconds: cfg.UpstreamTimeout,
		}, logger)
	default:
		return llm.NewOpenAIChat(llm.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			APIBaseURL:     cfg.OpenAIAPIBase,
			Model:          cfg.OpenAIModel,
			TimeoutSeconds: cfg.UpstreamTimeout,
		}, logger)
	}
}

// startArtifactJanitor periodically removes generated speech files past
// their retention window.
func startArtifactJanitor(textToSpeech repositories.TextToSpeech, cfg *config.Config, logger *zap.Logger) {
	maxAge := time.Duration(cfg.AudioMaxAge) * time.Hour
	interval := time.Duration(cfg.CleanupIntervalMin) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := textToSpeech.CleanupOldFiles(maxAge)
			if err != nil {
				logger.Warn("Audio artifact cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("Removed stale audio artifacts", zap.Int("count", removed))
			}
		}
	}()
}
