package websocket

import (
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/personavoice/server/adapters/catalog"
	"github.com/personavoice/server/adapters/llm"
	"github.com/personavoice/server/adapters/stt"
	"github.com/personavoice/server/adapters/tts"
	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/audio"
	"github.com/personavoice/server/internal/generator"
	"github.com/personavoice/server/internal/registry"
)

type wsFixture struct {
	conn *gorilla.Conn
	reg  *registry.Registry
	stt  *stt.MockSTT
	tts  *tts.MockTTS
}

func newWSFixture(t *testing.T, transcripts ...repositories.TranscriptResult) *wsFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cat, err := catalog.NewFileCatalog(catalog.FileCatalogConfig{
		Path: filepath.Join(t.TempDir(), "characters.json"),
	}, logger)
	if err != nil {
		t.Fatalf("catalog setup failed: %v", err)
	}

	f := &wsFixture{
		stt: &stt.MockSTT{Results: transcripts},
		tts: &tts.MockTTS{Result: repositories.SynthesisResult{
			Success: true,
			URL:     "/static/audio/tts_abc12345.mp3",
		}},
	}
	gen := generator.NewResponseGenerator(&llm.MockChat{Response: "认识你自己。"}, logger)
	f.reg = registry.NewRegistry(f.stt, f.tts, gen, logger)
	t.Cleanup(f.reg.Close)

	hub := NewHub(f.reg, cat, logger)
	go hub.Run()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	f.conn = conn

	// Every connection greets first.
	if ev := f.readEvent(t); ev.Type != EventConnectionEstablished {
		t.Fatalf("first event = %q, want connection_established", ev.Type)
	}
	return f
}

func (f *wsFixture) readEvent(t *testing.T) Event {
	t.Helper()
	f.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := f.conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("bad event payload %q: %v", raw, err)
	}
	return ev
}

func (f *wsFixture) send(t *testing.T, payload string) {
	t.Helper()
	if err := f.conn.WriteMessage(gorilla.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func (f *wsFixture) startSession(t *testing.T) string {
	t.Helper()
	f.send(t, `{"type":"start_voice_session","character_id":"socrates"}`)
	ev := f.readEvent(t)
	if ev.Type != EventSessionStarted {
		t.Fatalf("event = %+v, want voice_session_started", ev)
	}
	sessionID, _ := ev.Data["session_id"].(string)
	if sessionID == "" {
		t.Fatal("missing session_id in start event")
	}
	return sessionID
}

func TestPingPong(t *testing.T) {
	f := newWSFixture(t)
	f.send(t, `{"type":"ping"}`)
	if ev := f.readEvent(t); ev.Type != EventPong {
		t.Errorf("event = %q, want pong", ev.Type)
	}
}

func TestStartSessionUnknownCharacter(t *testing.T) {
	f := newWSFixture(t)
	f.send(t, `{"type":"start_voice_session","character_id":"nobody"}`)
	ev := f.readEvent(t)
	if ev.Type != EventError {
		t.Fatalf("event = %+v, want error", ev)
	}
	if code := ev.Data["error_code"]; code != "character_not_found" {
		t.Errorf("error_code = %v", code)
	}
}

func TestStartSession(t *testing.T) {
	f := newWSFixture(t)
	f.send(t, `{"type":"start_voice_session","character_id":"socrates"}`)

	ev := f.readEvent(t)
	if ev.Type != EventSessionStarted {
		t.Fatalf("event = %+v", ev)
	}
	if name := ev.Data["character_name"]; name != "苏格拉底" {
		t.Errorf("character_name = %v", name)
	}
	config, ok := ev.Data["config"].(map[string]any)
	if !ok || config["auto_respond"] != true {
		t.Errorf("config = %v", ev.Data["config"])
	}
}

func TestAudioRoundTrip(t *testing.T) {
	f := newWSFixture(t, repositories.TranscriptResult{
		Code: repositories.TranscriptOK,
		Text: "什么是美德？",
	})
	sessionID := f.startSession(t)

	chunk := audio.GenerateSilence(1)
	payload, _ := json.Marshal(map[string]any{
		"type":       "audio_data",
		"audio_data": base64.StdEncoding.EncodeToString(chunk),
		"format":     "wav",
	})
	f.send(t, string(payload))

	ev := f.readEvent(t)
	if ev.Type != EventSpeechRecognized {
		t.Fatalf("event = %+v, want speech_recognized", ev)
	}
	if ev.Data["text"] != "什么是美德？" || ev.Data["session_id"] != sessionID {
		t.Errorf("data = %v", ev.Data)
	}

	ev = f.readEvent(t)
	if ev.Type != EventTextResponse {
		t.Fatalf("event = %+v, want ai_text_response", ev)
	}
	if ev.Data["text"] != "认识你自己。" {
		t.Errorf("reply text = %v", ev.Data["text"])
	}

	ev = f.readEvent(t)
	if ev.Type != EventVoiceResponse {
		t.Fatalf("event = %+v, want ai_voice_response", ev)
	}
	if ev.Data["audio_url"] != "/static/audio/tts_abc12345.mp3" {
		t.Errorf("audio_url = %v", ev.Data["audio_url"])
	}
}

func TestAudioWithoutSession(t *testing.T) {
	f := newWSFixture(t)
	f.send(t, `{"type":"audio_data","audio_data":"UklGRg=="}`)
	ev := f.readEvent(t)
	if ev.Type != EventError || ev.Data["error_code"] != "no_active_session" {
		t.Errorf("event = %+v", ev)
	}
}

func TestRecognitionFailureEvent(t *testing.T) {
	f := newWSFixture(t, repositories.TranscriptResult{
		Code:    repositories.TranscriptNoSpeech,
		Message: "no speech detected",
	})
	f.startSession(t)

	chunk := audio.GenerateSilence(1)
	payload, _ := json.Marshal(map[string]any{
		"type":       "audio_data",
		"audio_data": base64.StdEncoding.EncodeToString(chunk),
	})
	f.send(t, string(payload))

	ev := f.readEvent(t)
	if ev.Type != EventRecognitionFailed {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Data["error_code"] != "no_speech" {
		t.Errorf("error_code = %v", ev.Data["error_code"])
	}
}

func TestTextMessageTurn(t *testing.T) {
	f := newWSFixture(t)
	f.startSession(t)

	f.send(t, `{"type":"text_message","text":"你好，苏格拉底"}`)

	ev := f.readEvent(t)
	if ev.Type != EventTextResponse {
		t.Fatalf("event = %+v, want ai_text_response", ev)
	}
	ev = f.readEvent(t)
	if ev.Type != EventVoiceResponse {
		t.Fatalf("event = %+v, want ai_voice_response", ev)
	}
	if f.stt.Calls() != 0 {
		t.Error("text turn should not touch the recognizer")
	}
}

func TestUpdateConfigAndStop(t *testing.T) {
	f := newWSFixture(t)
	sessionID := f.startSession(t)

	f.send(t, `{"type":"update_session_config","auto_respond":false}`)
	if ev := f.readEvent(t); ev.Type != EventConfigUpdated {
		t.Fatalf("event = %+v", ev)
	}

	session, err := f.reg.GetSession(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Config.AutoRespond {
		t.Error("auto_respond still enabled after patch")
	}

	f.send(t, `{"type":"stop_voice_session"}`)
	ev := f.readEvent(t)
	if ev.Type != EventSessionStopped || ev.Data["session_id"] != sessionID {
		t.Fatalf("event = %+v", ev)
	}
	if _, err := f.reg.GetSession(sessionID); err != registry.ErrSessionNotFound {
		t.Error("session survived stop_voice_session")
	}
}

func TestDisconnectEndsSession(t *testing.T) {
	f := newWSFixture(t)
	sessionID := f.startSession(t)

	f.conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := f.reg.GetSession(sessionID); err == registry.ErrSessionNotFound {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("session survived client disconnect")
}
