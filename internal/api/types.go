package api

// ChatRequest is the payload for POST /api/chat/message
type ChatRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message" validate:"required"`
}

// ChatResponse carries the character's reply
type ChatResponse struct {
	CharacterID string `json:"character_id"`
	SessionID   string `json:"session_id"`
	Response    string `json:"response"`
	AudioURL    string `json:"audio_url,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// WelcomeResponse carries a character's opening line
type WelcomeResponse struct {
	CharacterID string `json:"character_id"`
	Welcome     string `json:"welcome"`
}

// SkillRequest is the payload for POST /api/skills/:skill
type SkillRequest struct {
	CharacterID string            `json:"character_id" validate:"required"`
	Params      map[string]string `json:"params,omitempty"`
}

// RecognizeResponse carries the transcript of an uploaded recording
type RecognizeResponse struct {
	Text      string `json:"text"`
	Resampled bool   `json:"resampled,omitempty"`
}

// SynthesizeRequest is the payload for POST /api/voice/synthesize
type SynthesizeRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
	Text        string `json:"text" validate:"required"`
}

// SynthesizeResponse points at the generated audio artifact
type SynthesizeResponse struct {
	AudioURL  string `json:"audio_url"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
