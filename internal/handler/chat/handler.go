package chat

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	chatService "github.com/zhouzirui/z-tavern/nlp/internal/service/chat"
	"github.com/zhouzirui/z-tavern/nlp/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.Named("handler.chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handlePlainChat)
	r.Post("/chat_with_session", h.handleChatWithSession)
	r.Post("/chat/history", h.handleHistoryBody)
	r.Get("/chat/history", h.handleHistoryQuery)
	r.Post("/chat/save_message", h.handleSaveMessage)
}

type plainChatRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona"`
}

type plainChatResponse struct {
	Reply string `json:"reply"`
}

// handlePlainChat 无会话的简单对话
func (h *Handler) handlePlainChat(w http.ResponseWriter, r *http.Request) {
	var payload plainChatRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondOK(w, plainChatResponse{Reply: chatService.ErrorTag + " invalid request body"})
		return
	}

	reply, _ := h.chatSvc.Chat(r.Context(), payload.Message)
	utils.RespondOK(w, plainChatResponse{Reply: reply})
}

type sessionChatRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// handleChatWithSession 带会话与记忆注入的对话
func (h *Handler) handleChatWithSession(w http.ResponseWriter, r *http.Request) {
	var payload sessionChatRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		payload = sessionChatRequest{}
	}

	reply, err := h.chatSvc.ChatWithSession(r.Context(), payload.SessionID, payload.UserInput)
	if err != nil {
		h.logger.Debug("chat_with_session returned fallback", zap.String("session_id", payload.SessionID), zap.Error(err))
	}
	utils.RespondOK(w, reply)
}

type historyRequest struct {
	SessionID string          `json:"session_id"`
	Limit     json.RawMessage `json:"limit"`
}

type historyResponse struct {
	History []chat.HistoryEntry `json:"history"`
	Error   string              `json:"error,omitempty"`
}

// handleHistoryBody 读取会话历史（请求体参数）
func (h *Handler) handleHistoryBody(w http.ResponseWriter, r *http.Request) {
	var payload historyRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondOK(w, historyResponse{History: []chat.HistoryEntry{}, Error: "invalid request body"})
		return
	}
	h.respondHistory(w, r, payload.SessionID, parseLimitJSON(payload.Limit))
}

// handleHistoryQuery 读取会话历史（查询参数）
func (h *Handler) handleHistoryQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.respondHistory(w, r, query.Get("session_id"), parseLimit(query.Get("limit")))
}

// parseLimit returns 0 for anything that is not an integer; the store maps
// non-positive limits to its default.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return limit
}

// parseLimitJSON accepts a JSON number or a numeric string.
func parseLimitJSON(raw json.RawMessage) int {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return parseLimit(text)
	}
	return parseLimit(string(raw))
}

func (h *Handler) respondHistory(w http.ResponseWriter, r *http.Request, sessionID string, limit int) {
	messages, err := h.chatSvc.History(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Warn("history lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondOK(w, historyResponse{History: []chat.HistoryEntry{}, Error: err.Error()})
		return
	}
	utils.RespondOK(w, historyResponse{History: chat.Entries(messages)})
}

type saveMessageRequest struct {
	SessionID string `json:"session_id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleSaveMessage 保存消息
func (h *Handler) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	var payload saveMessageRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondOK(w, statusResponse{Status: "error", Reason: "invalid request body"})
		return
	}

	if strings.TrimSpace(payload.SessionID) == "" || strings.TrimSpace(payload.Sender) == "" || strings.TrimSpace(payload.Content) == "" {
		utils.RespondOK(w, statusResponse{Status: "error", Reason: "missing fields"})
		return
	}

	if _, err := h.chatSvc.SaveMessage(r.Context(), payload.SessionID, chat.Sender(payload.Sender), payload.Content); err != nil {
		h.logger.Warn("save message failed", zap.String("session_id", payload.SessionID), zap.Error(err))
		utils.RespondOK(w, statusResponse{Status: "error", Reason: err.Error()})
		return
	}

	utils.RespondOK(w, statusResponse{Status: "ok"})
}
