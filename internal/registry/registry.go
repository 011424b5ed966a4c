package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
	"github.com/personavoice/server/internal/audio"
	"github.com/personavoice/server/internal/generator"
	"github.com/personavoice/server/internal/observability"
)

const (
	defaultQueueSize = 64

	// Idle sessions are reaped after this much inactivity.
	DefaultMaxIdle = 30 * time.Minute
)

// ErrSessionNotFound is returned for operations on unknown or ended sessions
var ErrSessionNotFound = errors.New("session not found")

// ResultType discriminates pipeline outcomes delivered to callbacks
type ResultType string

const (
	ResultSpeechRecognized  ResultType = "speech_recognized"
	ResultRecognitionFailed ResultType = "recognition_failed"
	ResultTextReply         ResultType = "text_reply"
)

// ReplyPayload is the character's answer to a recognized utterance
type ReplyPayload struct {
	Text      string `json:"text"`
	AudioURL  string `json:"audio_url,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// PipelineResult is delivered to the session callback once per processed
// audio chunk. Reply is nil when recognition failed.
type PipelineResult struct {
	Type      ResultType                  `json:"type"`
	SessionID string                      `json:"session_id"`
	Text      string                      `json:"text,omitempty"`
	Reply     *ReplyPayload               `json:"ai_response,omitempty"`
	ErrorCode repositories.TranscriptCode `json:"error_code,omitempty"`
	Message   string                      `json:"message,omitempty"`
	Timestamp time.Time                   `json:"timestamp"`
}

// Callback receives pipeline results for one session. It is invoked from
// the single pipeline worker, so implementations must not block for long.
type Callback func(result PipelineResult)

type session struct {
	state    *entities.VoiceSession
	callback Callback
}

type task struct {
	sessionID string
	audio     []byte
	declared  string
}

// Registry owns the realtime voice sessions and the single worker that
// drains the audio task queue. One worker keeps per-session ordering
// trivially correct: chunks come back in the order they were enqueued.
type Registry struct {
	stt    repositories.SpeechToText
	tts    repositories.TextToSpeech
	gen    *generator.ResponseGenerator
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	tasks      chan task
	workerDone chan struct{}

	janitorStop chan struct{}
}

// Option adjusts registry construction
type Option func(*options)

type options struct {
	queueSize int
}

// WithQueueSize overrides the audio task queue capacity
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// NewRegistry creates a registry and starts its pipeline worker
func NewRegistry(stt repositories.SpeechToText, tts repositories.TextToSpeech, gen *generator.ResponseGenerator, logger *zap.Logger, opts ...Option) *Registry {
	o := options{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		stt:         stt,
		tts:         tts,
		gen:         gen,
		logger:      logger,
		sessions:    make(map[string]*session),
		tasks:       make(chan task, o.queueSize),
		workerDone:  make(chan struct{}),
		janitorStop: make(chan struct{}),
	}
	go r.worker()
	logger.Info("Audio pipeline worker started", zap.Int("queue_size", o.queueSize))
	return r
}

// CreateSession registers a new voice session for a character. The
// returned value is a snapshot; session state is only mutated through the
// registry.
func (r *Registry) CreateSession(character *entities.CharacterProfile, callback Callback) entities.VoiceSession {
	state := entities.NewVoiceSession(*character)

	r.mu.Lock()
	r.sessions[state.ID] = &session{state: state, callback: callback}
	r.mu.Unlock()

	observability.RecordSessionStart()
	r.logger.Info("Voice session created",
		zap.String("session_id", state.ID),
		zap.String("character", character.ID))
	return *state
}

// EnqueueAudio queues one audio chunk for the session. When the queue is
// full the chunk is dropped with a warning instead of blocking the caller,
// realtime audio is useless once it is stale.
func (r *Registry) EnqueueAudio(sessionID string, audioData []byte, declared string) error {
	// The send happens under the lock so it cannot race Close, which
	// marks closed before closing the channel. The send is non-blocking,
	// holding the lock across it is cheap.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Warn("Registry closed, dropping chunk",
			zap.String("session_id", sessionID))
		return ErrSessionNotFound
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.state.Touch()

	select {
	case r.tasks <- task{sessionID: sessionID, audio: audioData, declared: declared}:
		observability.SetQueueDepth(len(r.tasks))
		return nil
	default:
		observability.RecordTaskDropped()
		r.logger.Warn("Audio queue full, dropping chunk",
			zap.String("session_id", sessionID),
			zap.Int("bytes", len(audioData)))
		return nil
	}
}

// SubmitText runs the reply and synthesis stages for a typed message,
// bypassing audio recognition. It blocks until the turn is complete.
func (r *Registry) SubmitText(ctx context.Context, sessionID, text string) (PipelineResult, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		s.state.Touch()
	}
	r.mu.Unlock()
	if !ok {
		return PipelineResult{}, ErrSessionNotFound
	}

	r.mu.RLock()
	character := s.state.Character
	autoRespond := s.state.Config.AutoRespond
	r.mu.RUnlock()

	start := time.Now()
	replyText := r.gen.Reply(ctx, &character, sessionID, text)
	observability.RecordStage(observability.StageReply, time.Since(start), true)

	r.mu.Lock()
	s.state.AppendTurn(text, replyText)
	r.mu.Unlock()

	reply := &ReplyPayload{Text: replyText}
	if autoRespond {
		start = time.Now()
		synthesis := r.tts.Synthesize(ctx, replyText, &character)
		observability.RecordStage(observability.StageSynthesize, time.Since(start), synthesis.Success)
		if synthesis.Success {
			reply.AudioURL = synthesis.URL
			reply.Truncated = synthesis.Truncated
		} else {
			observability.RecordProviderError("tts", synthesis.ErrorCode)
			r.logger.Warn("Synthesis failed, returning text only",
				zap.String("session_id", sessionID),
				zap.String("error_code", synthesis.ErrorCode))
		}
	}

	return PipelineResult{
		Type:      ResultTextReply,
		SessionID: sessionID,
		Text:      text,
		Reply:     reply,
		Timestamp: time.Now(),
	}, nil
}

// UpdateConfig applies a config patch to a live session
func (r *Registry) UpdateConfig(sessionID string, patch entities.SessionConfigPatch) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		s.state.ApplyPatch(patch)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	r.logger.Info("Session config updated", zap.String("session_id", sessionID))
	return nil
}

// GetSession returns a snapshot of the session state for inspection
func (r *Registry) GetSession(sessionID string) (entities.VoiceSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return entities.VoiceSession{}, ErrSessionNotFound
	}
	snapshot := *s.state
	snapshot.History = append([]entities.Turn(nil), s.state.History...)
	return snapshot, nil
}

// EndSession removes a session. Results of chunks still in flight are
// suppressed: the callback check happens after the pipeline runs, so an
// ended session never hears back.
func (r *Registry) EndSession(sessionID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.state.Stop()
	r.gen.ClearHistory(sessionID)
	observability.RecordSessionEnd(time.Since(s.state.CreatedAt))
	r.logger.Info("Voice session ended", zap.String("session_id", sessionID))
	return nil
}

// CleanupInactive ends every session idle longer than maxIdle and returns
// how many were removed.
func (r *Registry) CleanupInactive(maxIdle time.Duration) int {
	r.mu.RLock()
	var stale []string
	for id, s := range r.sessions {
		if s.state.IdleFor() > maxIdle {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		if err := r.EndSession(id); err == nil {
			r.logger.Info("Idle session reaped", zap.String("session_id", id))
		}
	}
	return len(stale)
}

// StartJanitor periodically reaps idle sessions until Close is called
func (r *Registry) StartJanitor(interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.CleanupInactive(maxIdle)
			case <-r.janitorStop:
				return
			}
		}
	}()
}

// Close stops the janitor and the pipeline worker, draining queued tasks.
// Closing twice is a no-op; enqueues after Close are rejected instead of
// panicking on the closed channel.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.janitorStop)
	close(r.tasks)
	<-r.workerDone
	r.logger.Info("Audio pipeline worker stopped")
}

func (r *Registry) worker() {
	defer close(r.workerDone)
	for t := range r.tasks {
		observability.SetQueueDepth(len(r.tasks))
		r.safeProcess(t)
	}
}

// safeProcess isolates panics so one poisoned chunk cannot kill the worker
func (r *Registry) safeProcess(t task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Pipeline panic recovered",
				zap.String("session_id", t.sessionID),
				zap.Any("panic", rec))
		}
	}()
	r.process(t)
}

func (r *Registry) process(t task) {
	r.mu.RLock()
	s, ok := r.sessions[t.sessionID]
	r.mu.RUnlock()
	if !ok {
		// Session ended while the chunk sat in the queue.
		return
	}

	result := r.runPipeline(s, t)

	// Re-check after the pipeline: an ended session gets no callback.
	r.mu.RLock()
	_, alive := r.sessions[t.sessionID]
	r.mu.RUnlock()
	if !alive || s.callback == nil {
		return
	}
	s.callback(result)
}

func (r *Registry) runPipeline(s *session, t task) PipelineResult {
	ctx := context.Background()

	r.mu.RLock()
	sessionID := s.state.ID
	character := s.state.Character
	autoRespond := s.state.Config.AutoRespond
	r.mu.RUnlock()

	// Stage 1: normalize.
	start := time.Now()
	normalized, err := audio.Normalize(t.audio, t.declared)
	observability.RecordStage(observability.StageNormalize, time.Since(start), err == nil)
	if err != nil {
		r.logger.Warn("Audio normalization failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return PipelineResult{
			Type:      ResultRecognitionFailed,
			SessionID: sessionID,
			ErrorCode: normalizeErrorCode(err),
			Message:   err.Error(),
			Timestamp: time.Now(),
		}
	}

	// Stage 2: transcribe.
	start = time.Now()
	transcript := r.stt.Transcribe(ctx, normalized.WAV, repositories.AudioConfig{
		SampleRate: audio.CanonicalSampleRate,
		Channels:   audio.CanonicalChannels,
		Format:     "wav",
	})
	observability.RecordStage(observability.StageTranscribe, time.Since(start), transcript.OK())
	if !transcript.OK() {
		if transcript.Code != repositories.TranscriptNoSpeech {
			observability.RecordProviderError("stt", string(transcript.Code))
		}
		return PipelineResult{
			Type:      ResultRecognitionFailed,
			SessionID: sessionID,
			ErrorCode: transcript.Code,
			Message:   transcript.Message,
			Timestamp: time.Now(),
		}
	}

	// Stage 3: reply.
	start = time.Now()
	replyText := r.gen.Reply(ctx, &character, sessionID, transcript.Text)
	observability.RecordStage(observability.StageReply, time.Since(start), true)

	r.mu.Lock()
	s.state.AppendTurn(transcript.Text, replyText)
	r.mu.Unlock()

	reply := &ReplyPayload{Text: replyText}

	// Stage 4: synthesize, only when the session wants spoken replies.
	if autoRespond {
		start = time.Now()
		synthesis := r.tts.Synthesize(ctx, replyText, &character)
		observability.RecordStage(observability.StageSynthesize, time.Since(start), synthesis.Success)
		if synthesis.Success {
			reply.AudioURL = synthesis.URL
			reply.Truncated = synthesis.Truncated
		} else {
			// A missing voice track degrades the reply, it does not
			// fail the turn.
			observability.RecordProviderError("tts", synthesis.ErrorCode)
			r.logger.Warn("Synthesis failed, returning text only",
				zap.String("session_id", sessionID),
				zap.String("error_code", synthesis.ErrorCode),
				zap.String("message", synthesis.Message))
		}
	}

	return PipelineResult{
		Type:      ResultSpeechRecognized,
		SessionID: sessionID,
		Text:      transcript.Text,
		Reply:     reply,
		Timestamp: time.Now(),
	}
}

func normalizeErrorCode(err error) repositories.TranscriptCode {
	switch {
	case errors.Is(err, audio.ErrEmptyAudio):
		return repositories.TranscriptCorruptAudio
	case errors.Is(err, audio.ErrUnsupportedRate):
		return repositories.TranscriptUnsupportedRate
	default:
		return repositories.TranscriptUnsupportedFormat
	}
}
