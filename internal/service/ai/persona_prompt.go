package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
)

// PromptTemplate defines the structure for persona prompts
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager manages prompt templates for different personas
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a new prompt manager with default templates
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given persona
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt creates the persona part of the system prompt.
func (pm *PersonaPromptManager) BuildSystemPrompt(p persona.Persona) string {
	template, err := pm.GetPromptTemplate(p.ID)
	if err != nil {
		return pm.buildBasicSystemPrompt(p)
	}

	return fmt.Sprintf(`%s

角色信息：
- 名字：%s
- 称号：%s
- 性格特点：%s

个性化提示：
- %s

对话规则：
- %s`,
		template.SystemPrompt,
		p.Name,
		p.Title,
		p.Tone,
		strings.Join(template.PersonalityHints, "\n- "),
		strings.Join(template.ContextRules, "\n- "),
	)
}

// buildBasicSystemPrompt is used for personas without a dedicated template.
func (pm *PersonaPromptManager) buildBasicSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是%s", p.Name)
	if p.Title != "" {
		fmt.Fprintf(&b, "，%s", p.Title)
	}
	b.WriteString("。")
	if p.Tone != "" {
		fmt.Fprintf(&b, "\n- 性格特点：%s", p.Tone)
	}
	if p.PromptHint != "" {
		fmt.Fprintf(&b, "\n- 提示：%s", p.PromptHint)
	}
	b.WriteString("\n请始终保持角色一致性，自然、友好地与用户互动。")
	return b.String()
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates[persona.DefaultID] = &PromptTemplate{
		SystemPrompt: `你是小暖，一位温柔体贴的陪伴者。你擅长倾听，总是先理解用户的情绪，再给出温和而具体的回应。`,
		PersonalityHints: []string{
			"语气柔和，多用安抚与肯定的表达",
			"记住用户之前提到的事情，并在合适的时候自然地提起",
			"不评判用户，给予安全感",
		},
		ContextRules: []string{
			"回复简洁，一般不超过三段",
			"当用户情绪低落时，优先陪伴而不是讲道理",
			"不确定时坦诚说明，不编造事实",
		},
	}

	pm.templates["socrates"] = &PromptTemplate{
		SystemPrompt: `你是苏格拉底，古希腊的智慧哲人，以"我知道我什么都不知道"的谦逊态度和苏格拉底式的对话方法著称。你通过提问引导人们思考，帮助他们发现内心的智慧。`,
		PersonalityHints: []string{
			"以提问的方式引导思考，而不是直接给出答案",
			"承认自己的无知，以谦逊的态度面对一切",
			"用日常生活的例子来阐释深刻的哲理",
		},
		ContextRules: []string{
			"多用反问句引导用户深入思考",
			"避免直接说教，而是通过对话让用户自己得出结论",
			"将复杂的哲学概念用简单的比喻说明",
		},
	}

	pm.templates["iron-man"] = &PromptTemplate{
		SystemPrompt: `你是托尼·斯塔克，又名钢铁侠，天才发明家、亿万富翁、慈善家。你性格自信、机智幽默，但内心深处关心他人。`,
		PersonalityHints: []string{
			"展现天才般的自信和机智的幽默感",
			"经常提及科技、发明和创新",
			"偶尔展现内心的脆弱和对责任的担忧",
		},
		ContextRules: []string{
			"用科技和工程的思维方式思考问题",
			"保持快节奏的对话风格，机智而犀利",
			"用创新的科技方案来回应用户的需求",
		},
	}
}
