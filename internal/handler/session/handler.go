package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	chatService "github.com/zhouzirui/z-tavern/nlp/internal/service/chat"
	"github.com/zhouzirui/z-tavern/nlp/pkg/utils"
)

// Handler 会话管理的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger.Named("handler.session")}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Get("/sessions", h.handleListSessions)
}

type createSessionRequest struct {
	SessionID string `json:"session_id"`
	PersonaID string `json:"persona_id"`
	Title     string `json:"title"`
	UserID    string `json:"user_id"`
}

type createSessionResponse struct {
	Status  string        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Created bool          `json:"created"`
	Session *chat.Session `json:"session,omitempty"`
}

// handleCreateSession 创建会话（已存在时原样返回）
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondOK(w, createSessionResponse{Status: "error", Reason: "invalid request body"})
		return
	}

	session, created, err := h.chatSvc.CreateSession(r.Context(), chat.Session{
		ID:        payload.SessionID,
		PersonaID: payload.PersonaID,
		Title:     payload.Title,
		UserID:    payload.UserID,
	})
	if err != nil {
		h.logger.Warn("create session failed", zap.String("session_id", payload.SessionID), zap.Error(err))
		utils.RespondOK(w, createSessionResponse{Status: "error", Reason: err.Error()})
		return
	}

	utils.RespondOK(w, createSessionResponse{Status: "ok", Created: created, Session: &session})
}

type sessionResponse struct {
	Session *chat.Session `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// handleGetSession 查询单个会话
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, chat.ErrSessionNotFound) {
			h.logger.Warn("get session failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		utils.RespondOK(w, sessionResponse{Error: err.Error()})
		return
	}
	utils.RespondOK(w, sessionResponse{Session: &session})
}

type sessionListResponse struct {
	Sessions []chat.Session `json:"sessions"`
	Error    string         `json:"error,omitempty"`
}

// handleListSessions 列出会话，最新的在前
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil {
		limit = 0
	}

	sessions, err := h.chatSvc.ListSessions(r.Context(), query.Get("user_id"), limit)
	if err != nil {
		h.logger.Warn("list sessions failed", zap.Error(err))
		utils.RespondOK(w, sessionListResponse{Sessions: []chat.Session{}, Error: err.Error()})
		return
	}
	utils.RespondOK(w, sessionListResponse{Sessions: sessions})
}
