package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
)

// Conversation parameters
const (
	historyWindow = 10

	replyMaxTokens     = 500
	replyTemperature   = 0.8
	welcomeMaxTokens   = 200
	welcomeTemperature = 0.8
)

// ErrUnknownSkill is returned for skill names outside the supported set
var ErrUnknownSkill = errors.New("unknown skill")

// Fallback texts used when the language model is unavailable
const (
	replyFallback = "抱歉，我现在有些困惑，能否重新说一遍？"
)

func welcomeFallback(name string) string {
	return fmt.Sprintf("你好！我是%s，很高兴与你交流！", name)
}

// ResponseGenerator turns user utterances into in-character replies. It
// owns the per-session conversation history so the same generator serves
// both the realtime pipeline and the plain chat endpoint.
type ResponseGenerator struct {
	chat   repositories.ChatCompletion
	logger *zap.Logger

	mu        sync.Mutex
	histories map[string][]entities.Turn
}

// NewResponseGenerator creates a generator on top of a chat completion backend
func NewResponseGenerator(chat repositories.ChatCompletion, logger *zap.Logger) *ResponseGenerator {
	return &ResponseGenerator{
		chat:      chat,
		logger:    logger,
		histories: make(map[string][]entities.Turn),
	}
}

// Welcome produces a short in-character greeting. Model failures degrade to
// a canned greeting instead of erroring, a session start must never fail on
// the model being down.
func (g *ResponseGenerator) Welcome(ctx context.Context, character *entities.CharacterProfile) string {
	prompt := fmt.Sprintf(`你现在要扮演%s。
角色背景：%s
性格特点：%s
专业领域：%s

请以%s的身份，用第一人称生成一段简短的欢迎语，体现角色的性格和特点。
欢迎语应该：
1. 符合角色身份和时代背景
2. 体现角色的说话风格
3. 简洁有趣，不超过100字
4. 表达愿意与用户交流的意愿`,
		character.Name, character.Background, character.Personality, character.Expertise, character.Name)

	text, err := g.chat.Complete(ctx, repositories.ChatRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: prompt},
			{Role: repositories.UserRole, Content: "请生成欢迎语"},
		},
		MaxTokens:   welcomeMaxTokens,
		Temperature: welcomeTemperature,
	})
	if err != nil {
		g.logger.Warn("Welcome generation failed, using fallback",
			zap.String("character", character.ID), zap.Error(err))
		return welcomeFallback(character.Name)
	}
	return strings.TrimSpace(text)
}

// Reply generates the character's answer to a user message within a
// session. The session history is only extended on success; a fallback
// reply leaves it untouched so a later retry sees a clean transcript.
func (g *ResponseGenerator) Reply(ctx context.Context, character *entities.CharacterProfile, sessionID, userMessage string) string {
	messages := []repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: personaPrompt(character)},
	}
	for _, turn := range g.recentHistory(sessionID) {
		messages = append(messages,
			repositories.ChatMessage{Role: repositories.UserRole, Content: turn.User},
			repositories.ChatMessage{Role: repositories.AssistantRole, Content: turn.Assistant},
		)
	}
	messages = append(messages, repositories.ChatMessage{Role: repositories.UserRole, Content: userMessage})

	text, err := g.chat.Complete(ctx, repositories.ChatRequest{
		Messages:    messages,
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
	})
	if err != nil {
		g.logger.Warn("Reply generation failed, using fallback",
			zap.String("session_id", sessionID),
			zap.String("character", character.ID),
			zap.Error(err))
		return replyFallback
	}

	reply := strings.TrimSpace(text)
	g.appendHistory(sessionID, userMessage, reply)
	return reply
}

func personaPrompt(character *entities.CharacterProfile) string {
	return fmt.Sprintf(`你现在要完全扮演%s，请严格按照以下设定进行对话：

角色信息：
- 姓名：%s
- 背景：%s
- 性格：%s
- 专业领域：%s
- 技能：%s

扮演要求：
1. 完全以%s的身份回答，使用第一人称
2. 回答要符合角色的时代背景、知识水平和说话风格
3. 体现角色的性格特点和专业知识
4. 如果用户问题涉及你的专业领域，要展现专业性
5. 保持角色一致性，不要跳出角色设定
6. 回答要自然、有趣，避免过于正式
7. 适当使用角色相关的典型表达方式

注意：你就是%s，不是AI助手，不要提及你是AI或者模型。`,
		character.Name, character.Name, character.Background, character.Personality,
		character.Expertise, strings.Join(character.Skills, ", "),
		character.Name, character.Name)
}

func (g *ResponseGenerator) recentHistory(sessionID string) []entities.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := g.histories[sessionID]
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	out := make([]entities.Turn, len(history))
	copy(out, history)
	return out
}

func (g *ResponseGenerator) appendHistory(sessionID, user, assistant string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := append(g.histories[sessionID], entities.Turn{User: user, Assistant: assistant})
	// Only the window is ever read back, keeping more just leaks memory.
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	g.histories[sessionID] = history
}

// ClearHistory drops the transcript of a finished session
func (g *ResponseGenerator) ClearHistory(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.histories, sessionID)
}

// HistoryLen reports the stored turn count for a session
func (g *ResponseGenerator) HistoryLen(sessionID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.histories[sessionID])
}
