package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
)

// PlainSystemPrompt is the fixed system prompt of session-less chat.
const PlainSystemPrompt = "你是一个AI助手，请自然、友好地与用户互动。"

const (
	summarySnippetRunes = 20
	summaryMaxRunes     = 120
)

// SessionLookup resolves the persona bound to a session.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (chat.Session, error)
}

// Service generates persona replies with short-term memory injected.
type Service struct {
	personas persona.Store
	sessions SessionLookup
	prompts  *PersonaPromptManager
	chain    compose.Runnable[map[string]any, *schema.Message]
	now      func() time.Time
	logger   *zap.Logger
}

// NewService compiles the prompt -> model chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, personas persona.Store, sessions SessionLookup, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		personas: personas,
		sessions: sessions,
		prompts:  NewPersonaPromptManager(),
		chain:    runnable,
		now:      time.Now,
		logger:   logger.Named("ai"),
	}, nil
}

// Generate produces the persona reply for userInput with memories injected
// as prior conversation, plus metadata describing the injection.
func (s *Service) Generate(ctx context.Context, sessionID, userInput string, memories []chat.MemoryItem) (string, chat.Meta, error) {
	p := s.resolvePersona(ctx, sessionID)

	input := map[string]any{
		"system":  s.buildSystemPrompt(p, len(memories) > 0),
		"history": buildHistoryMessages(memories),
		"query":   userInput,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", chat.Meta{}, fmt.Errorf("failed to run AI chain: %w", err)
	}
	reply := ""
	if response != nil {
		reply = strings.TrimSpace(response.Content)
	}
	if reply == "" {
		return "", chat.Meta{}, errors.New("model returned an empty reply")
	}

	meta := chat.Meta{
		Persona:            p.ID,
		UsedMemory:         len(memories) > 0,
		InjectionMemoryIDs: memoryIDs(memories),
		MemorySummary:      summarizeMemories(memories),
		Timestamp:          chat.FormatTimestamp(s.now()),
	}

	s.logger.Info("generated response",
		zap.String("session_id", sessionID),
		zap.String("persona", p.ID),
		zap.Int("memories", len(memories)),
		zap.Int("length", len(reply)))
	return reply, meta, nil
}

// Chat runs a stateless exchange with the fixed assistant prompt.
func (s *Service) Chat(ctx context.Context, userInput string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": PlainSystemPrompt,
		"query":  userInput,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", errors.New("model returned no message")
	}
	return response.Content, nil
}

func (s *Service) resolvePersona(ctx context.Context, sessionID string) persona.Persona {
	personaID := ""
	if s.sessions != nil {
		session, err := s.sessions.Get(ctx, sessionID)
		switch {
		case err == nil:
			personaID = session.PersonaID
		case errors.Is(err, chat.ErrSessionNotFound):
		default:
			s.logger.Warn("session lookup failed, using default persona",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return persona.Resolve(s.personas, personaID)
}

func (s *Service) buildSystemPrompt(p persona.Persona, withMemory bool) string {
	base := s.prompts.BuildSystemPrompt(p)
	if !withMemory {
		return base
	}
	return base + "\n\n以下对话记录是你与用户最近的交流记忆，请在回复时自然地参考，不要逐条复述。"
}

func buildHistoryMessages(memories []chat.MemoryItem) []*schema.Message {
	if len(memories) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(memories))
	for _, item := range memories {
		switch item.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(item.Content))
		case chat.SenderAI:
			history = append(history, schema.AssistantMessage(item.Content, nil))
		}
	}
	return history
}

func memoryIDs(memories []chat.MemoryItem) []string {
	ids := make([]string, 0, len(memories))
	for _, item := range memories {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func summarizeMemories(memories []chat.MemoryItem) string {
	if len(memories) == 0 {
		return chat.NoMemorySummary
	}

	snippets := make([]string, 0, len(memories))
	for _, item := range memories {
		label := "用户"
		if item.Sender == chat.SenderAI {
			label = "AI"
		}
		snippets = append(snippets, label+"："+truncateRunes(strings.TrimSpace(item.Content), summarySnippetRunes))
	}

	summary := fmt.Sprintf("注入 %d 条记忆：%s", len(memories), strings.Join(snippets, "；"))
	return truncateRunes(summary, summaryMaxRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
