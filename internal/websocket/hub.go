package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	textTurnTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	registry *registry.Registry
	catalog  repositories.CharacterCatalog

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(reg *registry.Registry, catalog repositories.CharacterCatalog, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   reg,
		catalog:    catalog,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("client_id", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("client_id", client.id))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Connection id, assigned at upgrade.
	id string

	logger *zap.Logger

	// The voice session bound to this connection, if any.
	mutex     sync.Mutex
	sessionID string
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		id:     uuid.NewString(),
		logger: logger,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	client.sendEvent(NewEvent(EventConnectionEstablished, map[string]any{
		"client_id": client.id,
	}))

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.endSessionIfAny()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one inbound frame
func (c *Client) processMessage(raw []byte) {
	decoded, err := DecodeMessage(raw)
	if err != nil {
		c.logger.Warn("Rejected inbound message", zap.Error(err))
		c.sendError("invalid_message", err.Error())
		return
	}

	switch msg := decoded.(type) {
	case *StartSessionMessage:
		c.handleStartSession(msg)
	case *AudioDataMessage:
		c.handleAudioData(msg)
	case *TextMessage:
		c.handleTextMessage(msg)
	case *UpdateConfigMessage:
		c.handleUpdateConfig(msg)
	case *BaseMessage:
		switch msg.Type {
		case MessageTypeStopSession:
			c.handleStopSession()
		case MessageTypePing:
			c.sendEvent(NewEvent(EventPong, nil))
		}
	}
}

func (c *Client) handleStartSession(msg *StartSessionMessage) {
	character, ok := c.hub.catalog.GetByID(msg.CharacterID)
	if !ok {
		c.sendError("character_not_found", "unknown character: "+msg.CharacterID)
		return
	}

	// One session per connection. Starting again replaces the old one.
	c.endSessionIfAny()

	session := c.hub.registry.CreateSession(character, c.deliverResult)

	c.mutex.Lock()
	c.sessionID = session.ID
	c.mutex.Unlock()

	c.logger.Info("Voice session bound to client",
		zap.String("client_id", c.id),
		zap.String("session_id", session.ID),
		zap.String("character", character.ID))

	c.sendEvent(NewEvent(EventSessionStarted, map[string]any{
		"session_id":     session.ID,
		"character_id":   character.ID,
		"character_name": character.Name,
		"config": map[string]any{
			"continuous_mode":   session.Config.ContinuousMode,
			"silence_detection": session.Config.SilenceDetection,
			"auto_respond":      session.Config.AutoRespond,
		},
	}))
}

func (c *Client) handleAudioData(msg *AudioDataMessage) {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		c.sendError("no_active_session", "start a voice session before sending audio")
		return
	}

	audioData, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		c.sendError("invalid_audio_data", "audio_data is not valid base64")
		return
	}

	if err := c.hub.registry.EnqueueAudio(sessionID, audioData, msg.Format); err != nil {
		c.sendError("session_not_found", "voice session no longer exists")
	}
}

func (c *Client) handleTextMessage(msg *TextMessage) {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		c.sendError("no_active_session", "start a voice session before sending text")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), textTurnTimeout)
	defer cancel()

	result, err := c.hub.registry.SubmitText(ctx, sessionID, msg.Text)
	if err != nil {
		c.sendError("session_not_found", "voice session no longer exists")
		return
	}
	c.deliverResult(result)
}

func (c *Client) handleUpdateConfig(msg *UpdateConfigMessage) {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		c.sendError("no_active_session", "start a voice session before updating config")
		return
	}

	patch := entities.SessionConfigPatch{
		ContinuousMode:   msg.ContinuousMode,
		SilenceDetection: msg.SilenceDetection,
		AutoRespond:      msg.AutoRespond,
	}
	if err := c.hub.registry.UpdateConfig(sessionID, patch); err != nil {
		c.sendError("session_not_found", "voice session no longer exists")
		return
	}

	c.sendEvent(NewEvent(EventConfigUpdated, map[string]any{
		"session_id": sessionID,
	}))
}

func (c *Client) handleStopSession() {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		c.sendError("no_active_session", "no voice session to stop")
		return
	}
	c.endSessionIfAny()
	c.sendEvent(NewEvent(EventSessionStopped, map[string]any{
		"session_id": sessionID,
	}))
}

// deliverResult translates one pipeline result into outbound events
func (c *Client) deliverResult(result registry.PipelineResult) {
	switch result.Type {
	case registry.ResultRecognitionFailed:
		c.sendEvent(NewEvent(EventRecognitionFailed, map[string]any{
			"session_id": result.SessionID,
			"error_code": string(result.ErrorCode),
			"message":    result.Message,
		}))
		return

	case registry.ResultSpeechRecognized:
		c.sendEvent(NewEvent(EventSpeechRecognized, map[string]any{
			"session_id": result.SessionID,
			"text":       result.Text,
		}))
	}

	if result.Reply == nil {
		return
	}

	c.sendEvent(NewEvent(EventTextResponse, map[string]any{
		"session_id": result.SessionID,
		"text":       result.Reply.Text,
	}))

	if result.Reply.AudioURL != "" {
		c.sendEvent(NewEvent(EventVoiceResponse, map[string]any{
			"session_id": result.SessionID,
			"audio_url":  result.Reply.AudioURL,
			"truncated":  result.Reply.Truncated,
		}))
	}
}

func (c *Client) currentSessionID() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.sessionID
}

func (c *Client) endSessionIfAny() {
	c.mutex.Lock()
	sessionID := c.sessionID
	c.sessionID = ""
	c.mutex.Unlock()

	if sessionID == "" {
		return
	}
	if err := c.hub.registry.EndSession(sessionID); err != nil {
		c.logger.Debug("Session already gone", zap.String("session_id", sessionID))
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(NewEvent(EventError, map[string]any{
		"error_code": code,
		"message":    message,
	}))
}

// sendEvent pushes an event without blocking. A client that cannot keep
// up loses events rather than stalling the pipeline worker.
func (c *Client) sendEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	defer func() {
		// Send on a closed channel after unregister.
		if recover() != nil {
			c.logger.Debug("Dropped event for closed client", zap.String("client_id", c.id))
		}
	}()

	select {
	case c.send <- payload:
	default:
		c.logger.Warn("Client send buffer full, dropping event",
			zap.String("client_id", c.id),
			zap.String("event", string(event.Type)))
	}
}
