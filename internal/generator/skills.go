package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/personavoice/server/domain/entities"
	"github.com/personavoice/server/domain/repositories"
)

// Skill names
const (
	SkillKnowledgeQA      = "knowledge_qa"
	SkillEmotionalSupport = "emotional_support"
	SkillTeachingGuidance = "teaching_guidance"
	SkillCreativeWriting  = "creative_writing"
	SkillLanguagePractice = "language_practice"
)

// SkillResult carries the structured output of one skill execution
type SkillResult map[string]any

type skillSpec struct {
	maxTokens   int
	temperature float64
	build       func(character *entities.CharacterProfile, params map[string]string) (system, prompt string, result SkillResult)
}

var skillSpecs = map[string]skillSpec{
	SkillKnowledgeQA:      {maxTokens: 600, temperature: 0.7, build: buildKnowledgeQA},
	SkillEmotionalSupport: {maxTokens: 400, temperature: 0.8, build: buildEmotionalSupport},
	SkillTeachingGuidance: {maxTokens: 600, temperature: 0.7, build: buildTeachingGuidance},
	SkillCreativeWriting:  {maxTokens: 700, temperature: 0.9, build: buildCreativeWriting},
	SkillLanguagePractice: {maxTokens: 500, temperature: 0.7, build: buildLanguagePractice},
}

// SkillNames returns the supported skill identifiers
func SkillNames() []string {
	return []string{
		SkillKnowledgeQA,
		SkillEmotionalSupport,
		SkillTeachingGuidance,
		SkillCreativeWriting,
		SkillLanguagePractice,
	}
}

// ExecuteSkill runs one named skill for a character. The result carries the
// skill name, echo of the relevant parameters and the generated content
// under a skill-specific key.
func (g *ResponseGenerator) ExecuteSkill(ctx context.Context, character *entities.CharacterProfile, skill string, params map[string]string) (SkillResult, error) {
	spec, ok := skillSpecs[skill]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, skill)
	}

	system, prompt, result := spec.build(character, params)
	text, err := g.chat.Complete(ctx, repositories.ChatRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: system},
			{Role: repositories.UserRole, Content: prompt},
		},
		MaxTokens:   spec.maxTokens,
		Temperature: spec.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("skill %s failed: %w", skill, err)
	}

	result["skill"] = skill
	result["character"] = character.Name
	result[contentKey(skill)] = strings.TrimSpace(text)
	return result, nil
}

func contentKey(skill string) string {
	switch skill {
	case SkillKnowledgeQA:
		return "answer"
	case SkillEmotionalSupport:
		return "support_message"
	case SkillTeachingGuidance:
		return "lesson"
	case SkillCreativeWriting:
		return "creation"
	default:
		return "practice_content"
	}
}

func param(params map[string]string, key, fallback string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return fallback
}

func buildKnowledgeQA(character *entities.CharacterProfile, params map[string]string) (string, string, SkillResult) {
	question := param(params, "question", "")
	system := fmt.Sprintf("你是%s，专业领域：%s", character.Name, character.Expertise)
	prompt := fmt.Sprintf(`作为%s，请回答以下问题：%s

要求：
1. 基于你的专业知识和历史背景回答
2. 如果问题超出你的知识范围，诚实说明
3. 回答要准确、详细但易懂
4. 体现你的专业权威性
5. 可以结合你的时代背景和个人经历`, character.Name, question)
	return system, prompt, SkillResult{"question": question}
}

func buildEmotionalSupport(character *entities.CharacterProfile, params map[string]string) (string, string, SkillResult) {
	emotion := param(params, "emotion", "")
	message := param(params, "message", "")
	system := fmt.Sprintf("你是%s，以温暖理解的方式提供情感支持", character.Name)
	prompt := fmt.Sprintf(`用户现在的情绪状态：%s
用户说：%s

作为%s，请提供情感支持和安慰。要求：
1. 体现同理心和理解
2. 结合你的人生智慧和经历
3. 给出积极正面的建议
4. 语气温暖、真诚
5. 避免说教，更多是陪伴和理解`, emotion, message, character.Name)
	return system, prompt, SkillResult{}
}

func buildTeachingGuidance(character *entities.CharacterProfile, params map[string]string) (string, string, SkillResult) {
	topic := param(params, "topic", "")
	level := param(params, "level", "beginner")
	system := fmt.Sprintf("你是%s，专业教师，擅长%s", character.Name, character.Expertise)
	prompt := fmt.Sprintf(`请以%s的身份，教授关于"%s"的知识。
学习者水平：%s

要求：
1. 根据学习者水平调整教学内容和方式
2. 结合你的专业背景和教学风格
3. 提供清晰的解释和实例
4. 循序渐进，易于理解
5. 可以提出思考问题或练习建议`, character.Name, topic, level)
	return system, prompt, SkillResult{"topic": topic, "level": level}
}

func buildCreativeWriting(character *entities.CharacterProfile, params map[string]string) (string, string, SkillResult) {
	writingType := param(params, "type", "story")
	theme := param(params, "theme", "")
	style := param(params, "style", "")
	system := fmt.Sprintf("你是%s，具有深厚的文学造诣", character.Name)
	prompt := fmt.Sprintf(`请以%s的身份，协助创作一个%s。
主题：%s
风格要求：%s

要求：
1. 体现你的文学素养和创作风格
2. 结合你的时代背景和文化特色
3. 内容要有创意和深度
4. 符合指定的文体和风格
5. 可以提供创作建议和技巧`, character.Name, writingType, theme, style)
	return system, prompt, SkillResult{"type": writingType, "theme": theme}
}

func buildLanguagePractice(character *entities.CharacterProfile, params map[string]string) (string, string, SkillResult) {
	language := param(params, "language", "Chinese")
	practiceType := param(params, "type", "conversation")
	topic := param(params, "topic", "daily life")

	var system, prompt string
	if language == "Chinese" {
		system = fmt.Sprintf("你是%s，中文语言专家，帮助用户学习和提高中文水平", character.Name)
		prompt = fmt.Sprintf(`请以%s的身份，帮助用户练习中文。
练习类型：%s
话题：%s

要求：
1. 主要使用中文进行交流，适当使用其他语言解释
2. 根据练习类型提供相应的帮助：
   - 对话练习：进行自然的中文对话
   - 语法练习：讲解中文语法规则和用法
   - 词汇练习：教授新词汇和用法
   - 发音练习：指导声调和发音技巧
   - 写作练习：指导中文写作技巧
3. 纠正语言错误并给出详细建议
4. 提供文化背景知识
5. 鼓励用户多说多练，保持耐心友善`, character.Name, practiceType, topic)
	} else {
		system = fmt.Sprintf("你是%s，多语言专家，帮助用户学习%s", character.Name, language)
		prompt = fmt.Sprintf(`请以%s的身份，帮助用户练习%s。
练习类型：%s
话题：%s

要求：
1. 主要使用%s进行交流，适当使用中文解释
2. 根据练习类型提供相应的帮助：
   - 对话练习：进行自然的%s对话
   - 语法练习：讲解语法规则和用法
   - 词汇练习：教授新词汇和用法
   - 发音练习：指导发音技巧
   - 写作练习：指导写作技巧
3. 纠正语言错误并给出建议
4. 提供文化背景知识
5. 鼓励用户多说多练，保持耐心友善`, character.Name, language, practiceType, topic, language, language)
	}
	return system, prompt, SkillResult{"language": language, "type": practiceType, "topic": topic}
}
