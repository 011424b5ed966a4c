package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound message types
const (
	MessageTypeStartSession MessageType = "start_voice_session"
	MessageTypeAudioData    MessageType = "audio_data"
	MessageTypeTextMessage  MessageType = "text_message"
	MessageTypeUpdateConfig MessageType = "update_session_config"
	MessageTypeStopSession  MessageType = "stop_voice_session"
	MessageTypePing         MessageType = "ping"
)

// Outbound event types
const (
	EventConnectionEstablished MessageType = "connection_established"
	EventSessionStarted        MessageType = "voice_session_started"
	EventSessionStopped        MessageType = "voice_session_stopped"
	EventConfigUpdated         MessageType = "session_config_updated"
	EventSpeechRecognized      MessageType = "speech_recognized"
	EventRecognitionFailed     MessageType = "recognition_failed"
	EventTextResponse          MessageType = "ai_text_response"
	EventVoiceResponse         MessageType = "ai_voice_response"
	EventError                 MessageType = "error"
	EventPong                  MessageType = "pong"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// StartSessionMessage opens a voice session with a character
type StartSessionMessage struct {
	BaseMessage
	CharacterID string `json:"character_id"`
}

// AudioDataMessage carries one base64-encoded audio chunk
type AudioDataMessage struct {
	BaseMessage
	AudioData string `json:"audio_data"`
	Format    string `json:"format,omitempty"`
}

// TextMessage carries a typed chat message within a voice session
type TextMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// UpdateConfigMessage patches session feature flags. Absent fields are
// left unchanged.
type UpdateConfigMessage struct {
	BaseMessage
	ContinuousMode   *bool `json:"continuous_mode,omitempty"`
	SilenceDetection *bool `json:"silence_detection,omitempty"`
	AutoRespond      *bool `json:"auto_respond,omitempty"`
}

// Event is an outbound payload pushed to the client
type Event struct {
	Type      MessageType    `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent builds an outbound event with the current timestamp
func NewEvent(eventType MessageType, data map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      data,
	}
}

// DecodeMessage parses an inbound frame into its typed message
func DecodeMessage(raw []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeStartSession:
		var msg StartSessionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid start message: %w", err)
		}
		if msg.CharacterID == "" {
			return nil, fmt.Errorf("character_id is required")
		}
		return &msg, nil

	case MessageTypeAudioData:
		var msg AudioDataMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio message: %w", err)
		}
		if msg.AudioData == "" {
			return nil, fmt.Errorf("audio_data is required")
		}
		return &msg, nil

	case MessageTypeTextMessage:
		var msg TextMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid text message: %w", err)
		}
		if msg.Text == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeUpdateConfig:
		var msg UpdateConfigMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid config message: %w", err)
		}
		return &msg, nil

	case MessageTypeStopSession:
		var msg BaseMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid stop message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		return &BaseMessage{Type: MessageTypePing}, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}
