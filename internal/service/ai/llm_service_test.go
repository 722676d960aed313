package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeSessions map[string]chat.Session

func (f fakeSessions) Get(_ context.Context, id string) (chat.Session, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return chat.Session{}, chat.ErrSessionNotFound
}

func newTestService(t *testing.T, m *fakeChatModel, sessions SessionLookup) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), m, persona.NewMemoryStore(persona.Seed()), sessions, nil)
	require.NoError(t, err)
	return svc
}

func TestGenerateInjectsMemory(t *testing.T) {
	m := &fakeChatModel{reply: "  hi there  "}
	svc := newTestService(t, m, fakeSessions{"s1": {ID: "s1", PersonaID: "socrates"}})
	fixed := time.Date(2024, 5, 1, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	svc.now = func() time.Time { return fixed }

	memories := []chat.MemoryItem{
		{ID: "m1", Sender: chat.SenderUser, Content: "我叫小李"},
		{ID: "m2", Sender: chat.SenderAI, Content: "你好，小李"},
	}
	reply, meta, err := svc.Generate(context.Background(), "s1", "还记得我吗", memories)
	require.NoError(t, err)

	assert.Equal(t, "hi there", reply)
	assert.Equal(t, "socrates", meta.Persona)
	assert.True(t, meta.UsedMemory)
	assert.Equal(t, []string{"m1", "m2"}, meta.InjectionMemoryIDs)
	assert.True(t, strings.HasPrefix(meta.MemorySummary, "注入 2 条记忆"))
	assert.Equal(t, "2024-05-01T00:30:00.000000000Z", meta.Timestamp)
	assert.Equal(t, chat.FormatTimestamp(fixed), meta.Timestamp)

	require.Len(t, m.seen, 4)
	assert.Equal(t, schema.System, m.seen[0].Role)
	assert.Contains(t, m.seen[0].Content, "苏格拉底")
	assert.Contains(t, m.seen[0].Content, "交流记忆")
	assert.Equal(t, schema.User, m.seen[1].Role)
	assert.Equal(t, "我叫小李", m.seen[1].Content)
	assert.Equal(t, schema.Assistant, m.seen[2].Role)
	assert.Equal(t, "还记得我吗", m.seen[3].Content)
}

func TestGenerateWithoutMemoryUsesDefaultPersona(t *testing.T) {
	m := &fakeChatModel{reply: "hello"}
	svc := newTestService(t, m, fakeSessions{})

	_, meta, err := svc.Generate(context.Background(), "unknown-session", "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, persona.DefaultID, meta.Persona)
	assert.False(t, meta.UsedMemory)
	assert.NotNil(t, meta.InjectionMemoryIDs)
	assert.Empty(t, meta.InjectionMemoryIDs)
	assert.Equal(t, chat.NoMemorySummary, meta.MemorySummary)
	require.Len(t, m.seen, 2)
	assert.NotContains(t, m.seen[0].Content, "交流记忆")
}

func TestGenerateModelFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newTestService(t, &fakeChatModel{err: boom}, nil)

	_, _, err := svc.Generate(context.Background(), "s1", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGenerateEmptyReplyIsError(t *testing.T) {
	svc := newTestService(t, &fakeChatModel{reply: "   "}, nil)

	_, _, err := svc.Generate(context.Background(), "s1", "hi", nil)
	require.Error(t, err)
}

func TestChatUsesFixedPrompt(t *testing.T) {
	m := &fakeChatModel{reply: "pong"}
	svc := newTestService(t, m, nil)

	reply, err := svc.Chat(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	require.Len(t, m.seen, 2)
	assert.Equal(t, PlainSystemPrompt, m.seen[0].Content)
	assert.Equal(t, "ping", m.seen[1].Content)
}

func TestSummarizeMemoriesTruncates(t *testing.T) {
	long := strings.Repeat("很长的记忆", 20)
	memories := make([]chat.MemoryItem, 10)
	for i := range memories {
		memories[i] = chat.MemoryItem{Sender: chat.SenderUser, Content: long}
	}

	summary := summarizeMemories(memories)
	assert.True(t, strings.HasPrefix(summary, "注入 10 条记忆"))
	assert.LessOrEqual(t, len([]rune(summary)), summaryMaxRunes+1)
}

func TestBuildSystemPromptFallsBackForUnknownPersona(t *testing.T) {
	pm := NewPersonaPromptManager()
	prompt := pm.BuildSystemPrompt(persona.Persona{ID: "pirate", Name: "pirate"})
	assert.Contains(t, prompt, "你是pirate")
}
