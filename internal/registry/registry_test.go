package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/personavoice/server/adapters/llm"
	"github.com/personavoice/server/adapters/stt"
	"github.com/personavoice/server/adapters/tts"
	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/audio"
	"github.com/personavoice/server/internal/generator"
)

func testCharacter() *entities.CharacterProfile {
	return &entities.CharacterProfile{
		ID:          "socrates",
		Name:        "苏格拉底",
		Gender:      "male",
		Background:  "古希腊哲学家",
		Personality: "睿智、谦逊",
		Expertise:   "哲学",
		Skills:      []string{"knowledge_qa"},
	}
}

type fixture struct {
	registry *Registry
	stt      *stt.MockSTT
	tts      *tts.MockTTS
	results  chan PipelineResult
}

func newFixture(t *testing.T, transcripts ...repositories.TranscriptResult) *fixture {
	t.Helper()
	f := &fixture{
		stt: &stt.MockSTT{Results: transcripts},
		tts: &tts.MockTTS{Result: repositories.SynthesisResult{
			Success: true,
			URL:     "/static/audio/tts_abc12345.mp3",
		}},
		results: make(chan PipelineResult, 16),
	}
	gen := generator.NewResponseGenerator(&llm.MockChat{Response: "认识你自己。"}, zaptest.NewLogger(t))
	f.registry = NewRegistry(f.stt, f.tts, gen, zaptest.NewLogger(t))
	t.Cleanup(f.registry.Close)
	return f
}

func (f *fixture) callback(result PipelineResult) {
	f.results <- result
}

func waitResult(t *testing.T, f *fixture) PipelineResult {
	t.Helper()
	select {
	case r := <-f.results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pipeline result")
		return PipelineResult{}
	}
}

func ok(text string) repositories.TranscriptResult {
	return repositories.TranscriptResult{Code: repositories.TranscriptOK, Text: text}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	session := f.registry.CreateSession(testCharacter(), f.callback)
	if session.ID == "" || !session.IsActive() {
		t.Fatalf("unexpected session %+v", session)
	}

	got, err := f.registry.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Character.ID != "socrates" {
		t.Errorf("Character.ID = %q", got.Character.ID)
	}

	if err := f.registry.EndSession(session.ID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := f.registry.GetSession(session.ID); err != ErrSessionNotFound {
		t.Errorf("GetSession after end = %v, want ErrSessionNotFound", err)
	}
	if err := f.registry.EndSession(session.ID); err != ErrSessionNotFound {
		t.Errorf("double EndSession = %v, want ErrSessionNotFound", err)
	}
}

func TestEnqueueAudioUnknownSession(t *testing.T) {
	f := newFixture(t)

	err := f.registry.EnqueueAudio("no-such-session", audio.GenerateSilence(0.5), "recording.wav")
	if err != ErrSessionNotFound {
		t.Errorf("EnqueueAudio = %v, want ErrSessionNotFound", err)
	}
}

func TestPipelineHappyPath(t *testing.T) {
	f := newFixture(t, ok("什么是智慧？"))
	session := f.registry.CreateSession(testCharacter(), f.callback)

	if err := f.registry.EnqueueAudio(session.ID, audio.GenerateSilence(0.5), "recording.wav"); err != nil {
		t.Fatalf("EnqueueAudio() error = %v", err)
	}

	result := waitResult(t, f)
	if result.Type != ResultSpeechRecognized {
		t.Fatalf("result type = %q, want speech_recognized", result.Type)
	}
	if result.Text != "什么是智慧？" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Reply == nil || result.Reply.Text != "认识你自己。" {
		t.Fatalf("Reply = %+v", result.Reply)
	}
	if result.Reply.AudioURL != "/static/audio/tts_abc12345.mp3" {
		t.Errorf("AudioURL = %q", result.Reply.AudioURL)
	}

	// The turn is recorded on the session.
	got, err := f.registry.GetSession(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 1 || got.History[0].User != "什么是智慧？" {
		t.Errorf("History = %+v", got.History)
	}
}

func TestPipelinePreservesOrder(t *testing.T) {
	const n = 5
	transcripts := make([]repositories.TranscriptResult, n)
	for i := range transcripts {
		transcripts[i] = ok(fmt.Sprintf("第%d句", i))
	}
	f := newFixture(t, transcripts...)
	session := f.registry.CreateSession(testCharacter(), f.callback)

	wav := audio.GenerateSilence(0.2)
	for i := 0; i < n; i++ {
		if err := f.registry.EnqueueAudio(session.ID, wav, "recording.wav"); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < n; i++ {
		result := waitResult(t, f)
		if want := fmt.Sprintf("第%d句", i); result.Text != want {
			t.Errorf("result %d Text = %q, want %q", i, result.Text, want)
		}
	}
}

func TestPipelineEmptyChunkFails(t *testing.T) {
	f := newFixture(t)
	session := f.registry.CreateSession(testCharacter(), f.callback)

	if err := f.registry.EnqueueAudio(session.ID, nil, "recording.wav"); err != nil {
		t.Fatal(err)
	}

	result := waitResult(t, f)
	if result.Type != ResultRecognitionFailed {
		t.Fatalf("result type = %q, want recognition_failed", result.Type)
	}
	if result.ErrorCode != repositories.TranscriptCorruptAudio {
		t.Errorf("ErrorCode = %q, want %q", result.ErrorCode, repositories.TranscriptCorruptAudio)
	}
	if f.stt.Calls() != 0 {
		t.Error("recognizer must not be called for rejected audio")
	}
}

func TestPipelineNoSpeech(t *testing.T) {
	f := newFixture(t, repositories.TranscriptResult{Code: repositories.TranscriptNoSpeech})
	session := f.registry.CreateSession(testCharacter(), f.callback)

	if err := f.registry.EnqueueAudio(session.ID, audio.GenerateSilence(0.5), "recording.wav"); err != nil {
		t.Fatal(err)
	}

	result := waitResult(t, f)
	if result.Type != ResultRecognitionFailed {
		t.Fatalf("result type = %q", result.Type)
	}
	if result.ErrorCode != repositories.TranscriptNoSpeech {
		t.Errorf("ErrorCode = %q", result.ErrorCode)
	}
	if result.Reply != nil {
		t.Error("failed recognition must not carry a reply")
	}
}

// slowSTT blocks inside Transcribe until released, letting tests end the
// session while a chunk is in flight.
type slowSTT struct {
	started chan struct{}
	release chan struct{}
}

func (s *slowSTT) Transcribe(context.Context, []byte, repositories.AudioConfig) repositories.TranscriptResult {
	close(s.started)
	<-s.release
	return ok("到这时已无人收听")
}

func TestNoCallbackAfterEndSession(t *testing.T) {
	slow := &slowSTT{started: make(chan struct{}), release: make(chan struct{})}
	results := make(chan PipelineResult, 1)
	gen := generator.NewResponseGenerator(&llm.MockChat{Response: "好的"}, zaptest.NewLogger(t))
	r := NewRegistry(slow, &tts.MockTTS{}, gen, zaptest.NewLogger(t))
	defer r.Close()

	session := r.CreateSession(testCharacter(), func(result PipelineResult) {
		results <- result
	})
	if err := r.EnqueueAudio(session.ID, audio.GenerateSilence(0.5), "recording.wav"); err != nil {
		t.Fatal(err)
	}

	<-slow.started
	if err := r.EndSession(session.ID); err != nil {
		t.Fatal(err)
	}
	close(slow.release)

	select {
	case result := <-results:
		t.Errorf("callback fired after end: %+v", result)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAutoRespondOffSkipsSynthesis(t *testing.T) {
	f := newFixture(t, ok("你好"))
	session := f.registry.CreateSession(testCharacter(), f.callback)

	off := false
	if err := f.registry.UpdateConfig(session.ID, entities.SessionConfigPatch{AutoRespond: &off}); err != nil {
		t.Fatal(err)
	}

	if err := f.registry.EnqueueAudio(session.ID, audio.GenerateSilence(0.5), "recording.wav"); err != nil {
		t.Fatal(err)
	}

	result := waitResult(t, f)
	if result.Reply == nil || result.Reply.AudioURL != "" {
		t.Errorf("Reply = %+v, want text without audio", result.Reply)
	}
	if texts := f.tts.Texts(); len(texts) != 0 {
		t.Errorf("synthesizer called %d times, want 0", len(texts))
	}
}

func TestUpdateConfigUnknownSession(t *testing.T) {
	f := newFixture(t)
	on := true
	if err := f.registry.UpdateConfig("nope", entities.SessionConfigPatch{AutoRespond: &on}); err != ErrSessionNotFound {
		t.Errorf("UpdateConfig = %v, want ErrSessionNotFound", err)
	}
}

func TestCleanupInactive(t *testing.T) {
	f := newFixture(t)
	session := f.registry.CreateSession(testCharacter(), f.callback)

	time.Sleep(20 * time.Millisecond)
	if n := f.registry.CleanupInactive(time.Hour); n != 0 {
		t.Errorf("fresh session reaped, n = %d", n)
	}
	if n := f.registry.CleanupInactive(time.Millisecond); n != 1 {
		t.Errorf("CleanupInactive = %d, want 1", n)
	}
	if _, err := f.registry.GetSession(session.ID); err != ErrSessionNotFound {
		t.Error("reaped session still resolvable")
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, ok("你好"))
	session := f.registry.CreateSession(testCharacter(), f.callback)

	stats := f.registry.Stats()
	if stats.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", stats.ActiveSessions)
	}
	if !stats.WorkerAlive {
		t.Error("worker should be alive")
	}
	if len(stats.Sessions) != 1 || stats.Sessions[0].SessionID != session.ID {
		t.Errorf("Sessions = %+v", stats.Sessions)
	}
	if stats.Sessions[0].Character != "苏格拉底" {
		t.Errorf("Character = %q", stats.Sessions[0].Character)
	}
}

func TestSubmitText(t *testing.T) {
	f := newFixture(t)
	session := f.registry.CreateSession(testCharacter(), f.callback)

	result, err := f.registry.SubmitText(context.Background(), session.ID, "什么是美德？")
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if result.Type != ResultTextReply {
		t.Errorf("Type = %q, want text_reply", result.Type)
	}
	if result.Reply == nil || result.Reply.Text != "认识你自己。" {
		t.Fatalf("Reply = %+v", result.Reply)
	}
	if result.Reply.AudioURL != "/static/audio/tts_abc12345.mp3" {
		t.Errorf("AudioURL = %q", result.Reply.AudioURL)
	}

	snapshot, err := f.registry.GetSession(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot.History) != 1 || snapshot.History[0].User != "什么是美德？" {
		t.Errorf("History = %+v", snapshot.History)
	}
	if calls := f.stt.Calls(); calls != 0 {
		t.Errorf("text turn reached the recognizer, %d calls", calls)
	}
}

func TestSubmitTextUnknownSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.SubmitText(context.Background(), "nope", "hi"); err != ErrSessionNotFound {
		t.Errorf("SubmitText = %v, want ErrSessionNotFound", err)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	f := newFixture(t)
	session := f.registry.CreateSession(testCharacter(), f.callback)

	f.registry.Close()

	// A still-connected client may keep streaming after shutdown began.
	if err := f.registry.EnqueueAudio(session.ID, audio.GenerateSilence(0.5), "recording.wav"); err != ErrSessionNotFound {
		t.Errorf("EnqueueAudio after Close = %v, want ErrSessionNotFound", err)
	}

	// Duplicate close is a no-op (the fixture cleanup closes again).
	f.registry.Close()
}
