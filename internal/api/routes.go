package api

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/audio"
	"github.com/personavoice/server/internal/generator"
	"github.com/personavoice/server/internal/registry"
	"github.com/personavoice/server/internal/websocket"
)

// Uploads past this point could never transcribe anyway, the recognizer
// caps payloads at 4 MB.
const maxUploadBytes = 8 << 20

// Handlers groups the collaborators behind the REST surface
type Handlers struct {
	Catalog   repositories.CharacterCatalog
	Generator *generator.ResponseGenerator
	STT       repositories.SpeechToText
	TTS       repositories.TextToSpeech
	Registry  *registry.Registry
	Hub       *websocket.Hub
	AudioDir  string
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "personavoice-server",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	// Character catalog APIs
	api.GET("/characters", h.listCharacters)
	api.GET("/characters/search", h.searchCharacters)
	api.GET("/characters/categories", h.listCategories)
	api.GET("/characters/:id", h.getCharacter)
	api.GET("/characters/:id/welcome", h.welcome)

	// Conversation APIs
	api.POST("/chat/message", h.chatMessage)
	api.POST("/skills/:skill", h.executeSkill)

	// Voice APIs
	api.POST("/voice/recognize", h.recognize)
	api.POST("/voice/synthesize", h.synthesize)
	api.GET("/voice/voices", h.voices)

	// Realtime session APIs
	api.GET("/realtime/status", h.realtimeStatus)

	// Generated speech artifacts
	e.Static("/static/audio", h.AudioDir)

	// WebSocket endpoint
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(h.Hub, c, h.Logger)
	})
}

func (h *Handlers) listCharacters(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"characters": h.Catalog.All(),
	})
}

func (h *Handlers) searchCharacters(c echo.Context) error {
	query := c.QueryParam("q")
	category := c.QueryParam("category")
	matches := h.Catalog.Search(query, category)
	return c.JSON(http.StatusOK, map[string]any{
		"characters": matches,
		"count":      len(matches),
	})
}

func (h *Handlers) listCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"categories": h.Catalog.Categories(),
	})
}

func (h *Handlers) getCharacter(c echo.Context) error {
	character, ok := h.Catalog.GetByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "character_not_found",
			Message: "Unknown character: " + c.Param("id"),
		})
	}
	return c.JSON(http.StatusOK, character)
}

func (h *Handlers) welcome(c echo.Context) error {
	character, ok := h.Catalog.GetByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "character_not_found",
			Message: "Unknown character: " + c.Param("id"),
		})
	}

	text := h.Generator.Welcome(c.Request().Context(), character)
	return c.JSON(http.StatusOK, WelcomeResponse{
		CharacterID: character.ID,
		Welcome:     text,
	})
}

func (h *Handlers) chatMessage(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		h.Logger.Error("Failed to bind chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.CharacterID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "character_id and message are required",
		})
	}

	character, ok := h.Catalog.GetByID(req.CharacterID)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "character_not_found",
			Message: "Unknown character: " + req.CharacterID,
		})
	}

	// The registry is the only owner of conversation history. First call
	// opens a session, later calls carry the returned session id.
	sessionID := req.SessionID
	if sessionID == "" {
		session := h.Registry.CreateSession(character, nil)
		sessionID = session.ID
	}

	result, err := h.Registry.SubmitText(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Unknown or ended session: " + sessionID,
		})
	}

	resp := ChatResponse{
		CharacterID: character.ID,
		SessionID:   sessionID,
		Response:    result.Reply.Text,
	}
	if result.Reply.AudioURL != "" {
		resp.AudioURL = result.Reply.AudioURL
		resp.Truncated = result.Reply.Truncated
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) executeSkill(c echo.Context) error {
	skill := c.Param("skill")

	var req SkillRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.CharacterID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "character_id is required",
		})
	}

	character, ok := h.Catalog.GetByID(req.CharacterID)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "character_not_found",
			Message: "Unknown character: " + req.CharacterID,
		})
	}
	if !character.HasSkill(skill) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "skill_not_supported",
			Message: character.Name + " does not support skill " + skill,
		})
	}

	result, err := h.Generator.ExecuteSkill(c.Request().Context(), character, skill, req.Params)
	if err != nil {
		if errors.Is(err, generator.ErrUnknownSkill) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "unknown_skill",
				Message: "Unknown skill: " + skill,
			})
		}
		h.Logger.Error("Skill execution failed",
			zap.String("skill", skill),
			zap.String("character", character.ID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "skill_execution_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) recognize(c echo.Context) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "multipart field 'audio' is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "could not read uploaded audio",
		})
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "could not read uploaded audio",
		})
	}
	if len(raw) > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: "uploaded audio exceeds the size limit",
		})
	}

	normalized, err := audio.Normalize(raw, c.FormValue("format"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unsupported_audio",
			Message: err.Error(),
		})
	}

	transcript := h.STT.Transcribe(c.Request().Context(), normalized.WAV, repositories.AudioConfig{
		SampleRate: audio.CanonicalSampleRate,
		Channels:   audio.CanonicalChannels,
		Format:     "wav",
	})
	if !transcript.OK() {
		return c.JSON(statusForTranscript(transcript.Code), ErrorResponse{
			Error:   string(transcript.Code),
			Message: transcript.Message,
		})
	}

	return c.JSON(http.StatusOK, RecognizeResponse{
		Text:      transcript.Text,
		Resampled: normalized.Resampled,
	})
}

func (h *Handlers) synthesize(c echo.Context) error {
	var req SynthesizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.CharacterID == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "character_id and text are required",
		})
	}

	character, ok := h.Catalog.GetByID(req.CharacterID)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "character_not_found",
			Message: "Unknown character: " + req.CharacterID,
		})
	}

	result := h.TTS.Synthesize(c.Request().Context(), req.Text, character)
	if !result.Success {
		h.Logger.Error("Synthesis failed",
			zap.String("character", character.ID),
			zap.String("error_code", result.ErrorCode),
			zap.String("message", result.Message))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   result.ErrorCode,
			Message: result.Message,
		})
	}

	return c.JSON(http.StatusOK, SynthesizeResponse{
		AudioURL:  result.URL,
		Truncated: result.Truncated,
	})
}

func (h *Handlers) voices(c echo.Context) error {
	voices := h.TTS.SupportedVoices()
	sort.SliceStable(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return c.JSON(http.StatusOK, map[string]any{
		"voices": voices,
	})
}

func (h *Handlers) realtimeStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Registry.Stats())
}

func statusForTranscript(code repositories.TranscriptCode) int {
	switch code {
	case repositories.TranscriptNoSpeech,
		repositories.TranscriptCorruptAudio,
		repositories.TranscriptUnsupportedRate,
		repositories.TranscriptUnsupportedFormat,
		repositories.TranscriptDurationExceeded:
		return http.StatusBadRequest
	case repositories.TranscriptPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case repositories.TranscriptCredentialUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
