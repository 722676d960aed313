package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
	"github.com/zhouzirui/z-tavern/nlp/internal/service/memory"
)

// ErrorTag prefixes every reply that reports a failure instead of model output.
const ErrorTag = "[error]"

// HistoryStore persists and reads chat turns.
type HistoryStore interface {
	Insert(ctx context.Context, sessionID string, sender chat.Sender, content string) (chat.Message, error)
	List(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
}

// SessionRegistry records sessions.
type SessionRegistry interface {
	CreateIfAbsent(ctx context.Context, session chat.Session) (bool, error)
	Get(ctx context.Context, sessionID string) (chat.Session, error)
	List(ctx context.Context, userID string, limit int) ([]chat.Session, error)
}

// Responder produces model replies.
type Responder interface {
	Generate(ctx context.Context, sessionID, userInput string, memories []chat.MemoryItem) (string, chat.Meta, error)
	Chat(ctx context.Context, userInput string) (string, error)
}

// Options tunes orchestration.
type Options struct {
	MemoryLimit       int
	MemoryTimeout     time.Duration
	GenerationTimeout time.Duration
	DefaultPersonaID  string
	DefaultUserID     string
}

// Service sequences memory retrieval, generation and persistence for a turn.
// It holds no per-request state.
type Service struct {
	history   HistoryStore
	sessions  SessionRegistry
	memory    memory.Retriever
	responder Responder
	personas  persona.Store
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires the orchestration service.
func NewService(history HistoryStore, sessions SessionRegistry, retriever memory.Retriever, responder Responder, personas persona.Store, opts Options, logger *zap.Logger) *Service {
	if opts.MemoryLimit <= 0 || opts.MemoryLimit > memory.MaxItems {
		opts.MemoryLimit = memory.MaxItems
	}
	if opts.DefaultPersonaID == "" {
		opts.DefaultPersonaID = persona.DefaultID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		history:   history,
		sessions:  sessions,
		memory:    retriever,
		responder: responder,
		personas:  personas,
		opts:      opts,
		now:       time.Now,
		logger:    logger.Named("chat"),
	}
}

// ChatWithSession runs one orchestrated turn. The returned Reply is always a
// well-formed envelope; err reports why the fallback envelope was used.
func (s *Service) ChatWithSession(ctx context.Context, sessionID, userInput string) (chat.Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	userInput = strings.TrimSpace(userInput)

	if sessionID == "" {
		return s.fallback(chat.Required("session_id")), chat.Required("session_id")
	}
	if userInput == "" {
		return s.fallback(chat.Required("user_input")), chat.Required("user_input")
	}

	if _, err := s.sessions.CreateIfAbsent(ctx, chat.Session{
		ID:        sessionID,
		PersonaID: s.opts.DefaultPersonaID,
		UserID:    s.opts.DefaultUserID,
	}); err != nil {
		return s.failTurn(sessionID, "session", err)
	}

	memCtx, cancelMem := withTimeout(ctx, s.opts.MemoryTimeout)
	memories, err := s.memory.Retrieve(memCtx, sessionID, s.opts.MemoryLimit, true)
	cancelMem()
	if err != nil {
		return s.failTurn(sessionID, "memory", err)
	}

	genCtx, cancelGen := withTimeout(ctx, s.opts.GenerationTimeout)
	reply, meta, err := s.responder.Generate(genCtx, sessionID, userInput, memories)
	cancelGen()
	if err != nil {
		return s.failTurn(sessionID, "generation", err)
	}
	if meta.InjectionMemoryIDs == nil {
		meta.InjectionMemoryIDs = []string{}
	}

	s.persistTurn(ctx, sessionID, chat.SenderUser, userInput)
	s.persistTurn(ctx, sessionID, chat.SenderAI, reply)

	return chat.Reply{Reply: reply, Meta: meta}, nil
}

// Chat runs a session-less exchange. The reply carries an error tag on failure.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		err := chat.Required("message")
		return fmt.Sprintf("%s %s", ErrorTag, err), err
	}

	genCtx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	reply, err := s.responder.Chat(genCtx, message)
	if err != nil {
		err = chat.AdapterError("inference", err)
		s.logger.Warn("plain chat failed", zap.Error(err))
		return fmt.Sprintf("%s 无法连接到模型：%v", ErrorTag, err), err
	}
	return reply, nil
}

// History returns the stored turns of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	return s.history.List(ctx, sessionID, limit)
}

// SaveMessage stores one explicit turn.
func (s *Service) SaveMessage(ctx context.Context, sessionID string, sender chat.Sender, content string) (chat.Message, error) {
	return s.history.Insert(ctx, sessionID, sender, content)
}

// CreateSession registers a session, generating an id when none is given.
// The stored row is returned; created is false when it already existed.
func (s *Service) CreateSession(ctx context.Context, session chat.Session) (chat.Session, bool, error) {
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.PersonaID = strings.TrimSpace(session.PersonaID)
	if session.PersonaID == "" {
		session.PersonaID = s.opts.DefaultPersonaID
	}
	if _, ok := s.personas.FindByID(session.PersonaID); !ok {
		return chat.Session{}, false, &chat.ValidationError{Field: "persona_id", Reason: "not found"}
	}
	if strings.TrimSpace(session.UserID) == "" {
		session.UserID = s.opts.DefaultUserID
	}

	created, err := s.sessions.CreateIfAbsent(ctx, session)
	if err != nil {
		return chat.Session{}, false, err
	}
	stored, err := s.sessions.Get(ctx, session.ID)
	if err != nil {
		return chat.Session{}, false, err
	}
	return stored, created, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// ListSessions lists sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]chat.Session, error) {
	return s.sessions.List(ctx, userID, limit)
}

func (s *Service) failTurn(sessionID, stage string, err error) (chat.Reply, error) {
	if !errors.Is(err, chat.ErrAdapter) {
		err = chat.AdapterError(stage, err)
	}
	s.logger.Warn("chat turn failed",
		zap.String("session_id", sessionID),
		zap.String("stage", stage),
		zap.Error(err))
	return chat.Reply{
		Reply: fmt.Sprintf("%s 无法生成回复：%v", ErrorTag, err),
		Meta:  chat.FallbackMeta(s.now()),
	}, err
}

func (s *Service) fallback(err error) chat.Reply {
	return chat.Reply{
		Reply: fmt.Sprintf("%s %v", ErrorTag, err),
		Meta:  chat.FallbackMeta(s.now()),
	}
}

func (s *Service) persistTurn(ctx context.Context, sessionID string, sender chat.Sender, content string) {
	if _, err := s.history.Insert(ctx, sessionID, sender, content); err != nil {
		s.logger.Error("failed to persist chat turn",
			zap.String("session_id", sessionID),
			zap.String("sender", string(sender)),
			zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
