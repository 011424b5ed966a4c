package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a voice session
type SessionStatus string

const (
	SessionStatusCreated SessionStatus = "created"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusStopped SessionStatus = "stopped"
)

// Turn is one completed exchange in a session's conversation history
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionConfig holds per-session feature flags. ContinuousMode and
// SilenceDetection are client-advisory: the server stores and echoes them
// so clients can drive their capture loop, only AutoRespond changes server
// behavior.
type SessionConfig struct {
	ContinuousMode   bool `json:"continuous_mode"`
	SilenceDetection bool `json:"silence_detection"`
	AutoRespond      bool `json:"auto_respond"`
}

// SessionConfigPatch carries partial updates for a session's config.
// Nil fields are left unchanged.
type SessionConfigPatch struct {
	ContinuousMode   *bool `json:"continuous_mode,omitempty"`
	SilenceDetection *bool `json:"silence_detection,omitempty"`
	AutoRespond      *bool `json:"auto_respond,omitempty"`
}

// VoiceSession is the central mutable entity of the realtime pipeline.
// It is reachable only through the session registry; the registry's worker
// is the sole mutator of History once the session is active.
type VoiceSession struct {
	ID           string           `json:"session_id"`
	Character    CharacterProfile `json:"character"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
	Status       SessionStatus    `json:"status"`
	History      []Turn           `json:"history"`
	Config       SessionConfig    `json:"config"`
}

// NewVoiceSession creates an active session for the given character
func NewVoiceSession(character CharacterProfile) *VoiceSession {
	now := time.Now()
	return &VoiceSession{
		ID:           uuid.NewString(),
		Character:    character,
		CreatedAt:    now,
		LastActivity: now,
		Status:       SessionStatusActive,
		History:      make([]Turn, 0),
		Config: SessionConfig{
			ContinuousMode:   false,
			SilenceDetection: true,
			AutoRespond:      true,
		},
	}
}

// AppendTurn records a completed exchange and bumps last activity
func (s *VoiceSession) AppendTurn(user, assistant string) {
	s.History = append(s.History, Turn{
		User:      user,
		Assistant: assistant,
		Timestamp: time.Now(),
	})
	s.Touch()
}

// RecentTurns returns the most recent n turns of history
func (s *VoiceSession) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Touch updates the last activity timestamp
func (s *VoiceSession) Touch() {
	s.LastActivity = time.Now()
}

// IdleFor reports how long the session has been without activity
func (s *VoiceSession) IdleFor() time.Duration {
	return time.Since(s.LastActivity)
}

// Stop transitions the session to its terminal state. Stopping an already
// stopped session is a no-op.
func (s *VoiceSession) Stop() {
	if s.Status == SessionStatusStopped {
		return
	}
	s.Status = SessionStatusStopped
}

// IsActive reports whether the session accepts new work
func (s *VoiceSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// ApplyPatch merges non-nil fields of the patch into the session config
func (s *VoiceSession) ApplyPatch(patch SessionConfigPatch) {
	if patch.ContinuousMode != nil {
		s.Config.ContinuousMode = *patch.ContinuousMode
	}
	if patch.SilenceDetection != nil {
		s.Config.SilenceDetection = *patch.SilenceDetection
	}
	if patch.AutoRespond != nil {
		s.Config.AutoRespond = *patch.AutoRespond
	}
	s.Touch()
}

// Validate validates the session data
func (s *VoiceSession) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.Character.ID == "" {
		return errors.New("character is required")
	}

	switch s.Status {
	case SessionStatusCreated, SessionStatusActive, SessionStatusStopped:
		return nil
	default:
		return errors.New("invalid session status")
	}
}
