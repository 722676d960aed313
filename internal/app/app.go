// Package app assembles the storage, inference and HTTP layers into one
// running service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/config"
	"github.com/zhouzirui/z-tavern/nlp/internal/handler"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/model/persona"
	"github.com/zhouzirui/z-tavern/nlp/internal/service/ai"
	chatService "github.com/zhouzirui/z-tavern/nlp/internal/service/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/service/inference"
	"github.com/zhouzirui/z-tavern/nlp/internal/service/memory"
	"github.com/zhouzirui/z-tavern/nlp/internal/store"
)

// Handle owns everything Initialize created. Close releases it.
type Handle struct {
	Config   *config.Config
	DB       *store.DB
	History  *store.HistoryStore
	Sessions *store.SessionRegistry
	Personas persona.Store
	Chat     *chatService.Service
	Router   http.Handler
	Model    string

	logger *zap.Logger
}

// Initialize opens the store, guarantees the default session exists and wires
// the services and router. A failure to create the default session is fatal.
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Handle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := store.Open(ctx, cfg.Storage.ChatHistoryDBPath, logger)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		Config:   cfg,
		DB:       db,
		History:  store.NewHistoryStore(db),
		Personas: persona.NewMemoryStore(persona.Seed()),
		logger:   logger,
	}

	h.Sessions, err = store.NewSessionRegistry(db)
	if err != nil {
		h.Close()
		return nil, err
	}

	if err := h.ensureDefaultSession(ctx); err != nil {
		h.Close()
		return nil, err
	}

	chatModel, modelName, err := inference.New(ctx, cfg.AI, logger)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("init inference: %w", err)
	}
	h.Model = modelName

	responder, err := ai.NewService(ctx, chatModel, h.Personas, h.Sessions, logger)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("init generation: %w", err)
	}

	h.Chat = chatService.NewService(
		h.History,
		h.Sessions,
		memory.NewShortTerm(h.History, logger),
		responder,
		h.Personas,
		chatService.Options{
			MemoryLimit:       cfg.AI.MemoryLimit,
			MemoryTimeout:     cfg.AI.MemoryTimeout,
			GenerationTimeout: cfg.AI.GenerationTimeout,
			DefaultPersonaID:  cfg.Session.DefaultPersonaID,
			DefaultUserID:     cfg.Session.DefaultUserID,
		},
		logger,
	)
	h.Router = handler.NewRouter(h.Personas, h.Chat, db, logger)

	logger.Info("service initialized",
		zap.Stringer("store", db),
		zap.String("provider", string(cfg.AI.Provider)),
		zap.String("model", modelName),
		zap.String("default_session", cfg.Session.DefaultSessionID))
	return h, nil
}

func (h *Handle) ensureDefaultSession(ctx context.Context) error {
	sc := h.Config.Session
	if _, ok := h.Personas.FindByID(sc.DefaultPersonaID); !ok {
		return fmt.Errorf("default persona %q is not defined", sc.DefaultPersonaID)
	}

	created, err := h.Sessions.CreateIfAbsent(ctx, chat.Session{
		ID:        sc.DefaultSessionID,
		PersonaID: sc.DefaultPersonaID,
		Title:     sc.DefaultTitle,
		UserID:    sc.DefaultUserID,
	})
	if err != nil {
		return fmt.Errorf("ensure default session: %w", err)
	}
	h.logger.Info("default session ready",
		zap.String("session_id", sc.DefaultSessionID),
		zap.Bool("created", created))
	return nil
}

// Close releases the session cache and the database handle.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	if h.Sessions != nil {
		h.Sessions.Close()
	}
	return h.DB.Close()
}
